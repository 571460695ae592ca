package replication

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	headerSize = 2
	// MaxPayload is the largest payload that fits a frame.
	MaxPayload = math.MaxUint16 - headerSize - blockSize - checksumSize
)

// WriteFrame seals payload and writes one frame: uint16 LE total length, then the sealed body.
func WriteFrame(w io.Writer, c *Cipher, payload []byte) error {
	frame, err := sealFrame(c, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func sealFrame(c *Cipher, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("sealing frame: empty payload")
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("sealing frame: payload %d exceeds %d", len(payload), MaxPayload)
	}

	buf := make([]byte, headerSize, headerSize+SealedLen(len(payload)))
	buf = c.Seal(buf, payload)
	binary.LittleEndian.PutUint16(buf[:headerSize], uint16(len(buf)))
	return buf, nil
}

// ReadFrame reads one frame into buf and returns the opened payload (a subslice of buf).
func ReadFrame(r io.Reader, c *Cipher, buf []byte) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("reading frame header: %w", err)
	}

	total := int(binary.LittleEndian.Uint16(header[:]))
	if total <= headerSize {
		return nil, fmt.Errorf("invalid frame length: %d", total)
	}

	bodyLen := total - headerSize
	if bodyLen > len(buf) {
		return nil, fmt.Errorf("frame body %d exceeds buffer size %d", bodyLen, len(buf))
	}

	body := buf[:bodyLen]
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}

	payload, err := c.Open(body)
	if err != nil {
		return nil, fmt.Errorf("opening frame: %w", err)
	}
	return payload, nil
}

// NewFrameBuffer returns a buffer large enough for any frame body.
func NewFrameBuffer() []byte {
	return make([]byte, math.MaxUint16)
}
