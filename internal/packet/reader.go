package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader consumes a little-endian payload.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) need(op string, n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%s: not enough data (pos=%d, need=%d, len=%d)", op, r.pos, n, len(r.data))
	}
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need("ReadByte", 1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads 2 bytes, LE.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need("ReadUint16", 2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads 4 bytes, LE.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need("ReadUint32", 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads 8 bytes, LE.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need("ReadUint64", 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadFloat64 reads an IEEE 754 double, LE.
func (r *Reader) ReadFloat64() (float64, error) {
	bits, err := r.ReadUint64()
	if err != nil {
		return 0, fmt.Errorf("ReadFloat64: %w", err)
	}
	return math.Float64frombits(bits), nil
}

// ReadBool reads one byte; anything but zero is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("ReadBool: %w", err)
	}
	return b != 0, nil
}

// ReadString reads a uint16 length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", fmt.Errorf("ReadString: %w", err)
	}
	if err := r.need("ReadString", int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// ReadBytes reads n bytes without copying.
// The returned slice shares memory with the reader's data.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if err := r.need("ReadBytes", n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position returns the current read position.
func (r *Reader) Position() int {
	return r.pos
}
