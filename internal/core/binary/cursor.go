package binary

import (
	stdbinary "encoding/binary"
	"math"
)

// cursor walks an encoded stream. Every method fails with ErrTruncated
// instead of reading past the end.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) done() bool {
	return c.off >= len(c.data)
}

func (c *cursor) remaining() int {
	return len(c.data) - c.off
}

func (c *cursor) readByte() (byte, error) {
	if c.done() {
		return 0, ErrTruncated
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

func (c *cursor) uvarint() (uint64, error) {
	v, n := stdbinary.Uvarint(c.data[c.off:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	c.off += n
	return v, nil
}

func (c *cursor) varint() (int64, error) {
	v, n := stdbinary.Varint(c.data[c.off:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	c.off += n
	return v, nil
}

func (c *cursor) float() (float64, error) {
	raw, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(stdbinary.LittleEndian.Uint64(raw)), nil
}

func (c *cursor) take(n uint64) ([]byte, error) {
	if n > uint64(c.remaining()) {
		return nil, ErrTruncated
	}
	b := c.data[c.off : c.off+int(n)]
	c.off += int(n)
	return b, nil
}

// chunk reads a length-prefixed byte run.
func (c *cursor) chunk() ([]byte, error) {
	n, err := c.uvarint()
	if err != nil {
		return nil, err
	}
	return c.take(n)
}

func (c *cursor) readString() (string, error) {
	b, err := c.chunk()
	return string(b), err
}

// count reads an element count, rejecting counts the rest of the stream
// cannot possibly hold.
func (c *cursor) count() (int, error) {
	n, err := c.uvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(c.remaining()) {
		return 0, ErrTruncated
	}
	return int(n), nil
}

// skip advances over one payload of the given kind.
func (c *cursor) skip(kind Kind) error {
	var err error
	switch kind {
	case KindBool:
		_, err = c.readByte()
	case KindInt:
		_, err = c.varint()
	case KindUint:
		_, err = c.uvarint()
	case KindFloat:
		_, err = c.take(8)
	case KindString, KindBytes, KindObject:
		_, err = c.chunk()
	case KindStrings, KindObjects, KindAssets:
		var n int
		if n, err = c.count(); err != nil {
			return err
		}
		for i := 0; i < n && err == nil; i++ {
			_, err = c.chunk()
		}
	default:
		return ErrUnknownKind
	}
	return err
}
