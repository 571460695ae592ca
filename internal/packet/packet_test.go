package packet

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_LittleEndianLayout(t *testing.T) {
	w := NewWriter(16)
	require.NoError(t, w.WriteByte(0x42))
	w.WriteUint16(0x1234)
	w.WriteUint32(0x12345678)

	assert.Equal(t, []byte{0x42, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12}, w.Bytes())
	assert.Equal(t, 7, w.Len())
}

func TestWriter_Float64(t *testing.T) {
	w := NewWriter(8)
	w.WriteFloat64(-12.5)

	bits := binary.LittleEndian.Uint64(w.Bytes())
	assert.Equal(t, -12.5, math.Float64frombits(bits))
}

func TestWriter_StringIsLengthPrefixed(t *testing.T) {
	w := NewWriter(16)
	w.WriteString("ghoul")

	assert.Equal(t, []byte{5, 0, 'g', 'h', 'o', 'u', 'l'}, w.Bytes())
}

func TestWriter_LongStringIsTruncated(t *testing.T) {
	w := NewWriter(16)
	w.WriteString(strings.Repeat("x", MaxStringLen+10))

	r := NewReader(w.Bytes())
	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Len(t, s, MaxStringLen)
}

func TestReader_ReadsWhatWriterWrote(t *testing.T) {
	w := Get()
	defer w.Put()

	require.NoError(t, w.WriteByte(7))
	w.WriteUint16(65000)
	w.WriteUint32(4_000_000_000)
	w.WriteUint64(math.MaxUint64 - 1)
	w.WriteFloat64(3.25)
	w.WriteBool(true)
	w.WriteString("wraith lord")

	r := NewReader(w.Bytes())

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(7), b)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(65000), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(4_000_000_000), u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-1), u64)

	f, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.25, f)

	ok, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, ok)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "wraith lord", s)

	assert.Zero(t, r.Remaining())
}

func TestReader_ShortData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(*Reader) error
	}{
		{"byte", nil, func(r *Reader) error { _, err := r.ReadByte(); return err }},
		{"uint16", []byte{1}, func(r *Reader) error { _, err := r.ReadUint16(); return err }},
		{"uint32", []byte{1, 2, 3}, func(r *Reader) error { _, err := r.ReadUint32(); return err }},
		{"float64", []byte{1, 2, 3, 4}, func(r *Reader) error { _, err := r.ReadFloat64(); return err }},
		{"string body", []byte{4, 0, 'a', 'b'}, func(r *Reader) error { _, err := r.ReadString(); return err }},
		{"negative bytes", []byte{1}, func(r *Reader) error { _, err := r.ReadBytes(-1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.read(NewReader(tt.data)))
		})
	}
}

func TestReader_Position(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	b, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, 3, r.Position())
	assert.Equal(t, 2, r.Remaining())
}
