package replication

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

const (
	blockSize    = blowfish.BlockSize
	checksumSize = 4
)

// Cipher seals replication payloads with Blowfish ECB and a 32-bit XOR checksum.
// Safe for concurrent use: it holds no per-stream state.
type Cipher struct {
	block *blowfish.Cipher
}

// NewCipher creates a cipher from a raw key (4..56 bytes).
func NewCipher(key []byte) (*Cipher, error) {
	b, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating blowfish cipher: %w", err)
	}
	return &Cipher{block: b}, nil
}

// NewCipherHex creates a cipher from a hex-encoded key.
func NewCipherHex(key string) (*Cipher, error) {
	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decoding replication key: %w", err)
	}
	return NewCipher(raw)
}

// SealedLen returns the sealed size of a payload: payload, zero padding and
// checksum rounded up to the block size.
func SealedLen(payloadLen int) int {
	n := payloadLen + checksumSize
	if rem := n % blockSize; rem != 0 {
		n += blockSize - rem
	}
	return n
}

// Seal appends payload, padding and checksum to dst and encrypts them in place.
func (c *Cipher) Seal(dst, payload []byte) []byte {
	start := len(dst)
	size := SealedLen(len(payload))

	dst = append(dst, payload...)
	dst = append(dst, make([]byte, size-len(payload))...)
	body := dst[start:]

	appendChecksum(body)
	for i := 0; i < size; i += blockSize {
		c.block.Encrypt(body[i:i+blockSize], body[i:i+blockSize])
	}
	return dst
}

// Open decrypts data in place and verifies the checksum. The returned slice
// aliases data and still carries the zero padding.
func (c *Cipher) Open(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("opening frame: size %d is not a multiple of %d", len(data), blockSize)
	}
	for i := 0; i < len(data); i += blockSize {
		c.block.Decrypt(data[i:i+blockSize], data[i:i+blockSize])
	}
	if !verifyChecksum(data) {
		return nil, ErrChecksum
	}
	return data[:len(data)-checksumSize], nil
}

// appendChecksum stores the XOR of every preceding word in the last word,
// so the XOR over the whole buffer is zero.
func appendChecksum(data []byte) {
	var sum uint32
	end := len(data) - checksumSize
	for i := 0; i < end; i += 4 {
		sum ^= binary.LittleEndian.Uint32(data[i:])
	}
	binary.LittleEndian.PutUint32(data[end:], sum)
}

func verifyChecksum(data []byte) bool {
	if len(data)%4 != 0 || len(data) <= checksumSize {
		return false
	}
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		sum ^= binary.LittleEndian.Uint32(data[i:])
	}
	return sum == 0
}
