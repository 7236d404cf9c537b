package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sealed blob layout: magic, version, xxhash64 of the payload (big endian),
// payload.
const (
	magic           = "ALCH"
	EnvelopeVersion = 1
	headerSize      = len(magic) + 1 + 8
)

// Header describes a sealed blob.
type Header struct {
	Version  byte
	Checksum uint64
	Size     int
}

// Seal prefixes payload with the envelope header.
func Seal(payload []byte) []byte {
	out := make([]byte, 0, headerSize+len(payload))
	out = append(out, magic...)
	out = append(out, EnvelopeVersion)
	out = binary.BigEndian.AppendUint64(out, xxhash.Sum64(payload))
	return append(out, payload...)
}

// Inspect parses the header of a sealed blob without verifying the payload.
func Inspect(data []byte) (Header, error) {
	if len(data) < headerSize {
		if len(data) >= len(magic) && !bytes.Equal(data[:len(magic)], []byte(magic)) {
			return Header{}, ErrBadMagic
		}
		return Header{}, ErrTruncated
	}
	if !bytes.Equal(data[:len(magic)], []byte(magic)) {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:  data[len(magic)],
		Checksum: binary.BigEndian.Uint64(data[len(magic)+1 : headerSize]),
		Size:     len(data) - headerSize,
	}
	if h.Version != EnvelopeVersion {
		return h, fmt.Errorf("%w %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Open verifies a sealed blob and returns its payload.
func Open(data []byte) ([]byte, error) {
	h, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	payload := data[headerSize:]
	if sum := xxhash.Sum64(payload); sum != h.Checksum {
		return nil, fmt.Errorf("%w: header %016x, payload %016x", ErrChecksumMismatch, h.Checksum, sum)
	}
	return payload, nil
}
