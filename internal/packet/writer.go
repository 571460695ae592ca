package packet

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
)

// MaxStringLen is the longest string a packet can carry (uint16 length prefix).
const MaxStringLen = math.MaxUint16

// Writer builds a little-endian payload.
type Writer struct {
	buf *bytes.Buffer
}

var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf: bytes.NewBuffer(make([]byte, 0, 256)),
		}
	},
}

// Get returns a Writer from the pool (already Reset).
func Get() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns a Writer to the pool.
// Do not use the Writer or its Bytes after calling Put.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: bytes.NewBuffer(make([]byte, 0, capacity)),
	}
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

// WriteUint16 writes 2 bytes, LE.
func (w *Writer) WriteUint16(v uint16) {
	w.buf.WriteByte(byte(v))
	w.buf.WriteByte(byte(v >> 8))
}

// WriteUint32 writes 4 bytes, LE.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteUint64 writes 8 bytes, LE.
func (w *Writer) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteFloat64 writes an IEEE 754 double, LE.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteBool writes 1 or 0.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

// WriteString writes a uint16 byte length followed by UTF-8 bytes.
// Strings longer than MaxStringLen are truncated.
func (w *Writer) WriteString(s string) {
	if len(s) > MaxStringLen {
		s = s[:MaxStringLen]
	}
	w.WriteUint16(uint16(len(s)))
	w.buf.WriteString(s)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	_, _ = w.buf.Write(data)
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the payload length.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset clears the buffer for reuse.
func (w *Writer) Reset() {
	w.buf.Reset()
}
