package opcode

import (
	"encoding/binary"

	hlerr "github.com/wudi/hlbcgo/errors"
)

// cursor reads a prepared in-memory byte slice left to right. It never
// performs I/O: per spec.md section 5, the decoder consumes a byte
// slice the caller already holds in memory.
type cursor struct {
	data []byte
	pos  int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) truncated(what string) *hlerr.Error {
	return hlerr.New(hlerr.Decode, hlerr.ReasonTruncated, "truncated reading "+what)
}

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, c.truncated("tag byte")
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.data[c.pos:])
	if n <= 0 {
		return 0, c.truncated("varint")
	}
	c.pos += n
	return v, nil
}

func (c *cursor) varint() (int64, error) {
	u, err := c.uvarint()
	if err != nil {
		return 0, err
	}
	// zigzag decode
	return int64(u>>1) ^ -int64(u&1), nil
}

func (c *cursor) boolean() (bool, error) {
	b, err := c.byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (c *cursor) reg() (uint64, error) {
	return c.uvarint()
}
