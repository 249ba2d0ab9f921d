package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncated marks a primitive read that ran past EOF. Callers in the
// value decoder treat it as end-of-stream; callers in the header/type/trace
// phases treat it as fatal.
var ErrTruncated = errors.New("wire: truncated read")

// Cursor is a forward-and-backward big-endian reader over a seekable file.
// It is the only component in this module that touches raw bytes; every
// section/type/trace/value reader is built on top of it.
type Cursor struct {
	r    io.ReadSeeker
	size int64
}

// NewCursor wraps r, caching its total size via a Seek(0, SeekEnd) probe.
// r's position is restored to 0 before returning.
func NewCursor(r io.ReadSeeker) (*Cursor, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("wire: probing file size: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("wire: rewinding after size probe: %w", err)
	}
	return &Cursor{r: r, size: size}, nil
}

// FileSize returns the total byte length of the underlying file.
func (c *Cursor) FileSize() int64 { return c.size }

// Tell returns the current absolute read offset.
func (c *Cursor) Tell() (int64, error) {
	pos, err := c.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("wire: tell: %w", err)
	}
	return pos, nil
}

// SeekAbsolute positions the cursor at an absolute file offset.
func (c *Cursor) SeekAbsolute(offset int64) error {
	if _, err := c.r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("wire: seek to %d: %w", offset, err)
	}
	return nil
}

// SeekRelative advances (or rewinds, for negative delta) from the current
// position.
func (c *Cursor) SeekRelative(delta int64) error {
	if _, err := c.r.Seek(delta, io.SeekCurrent); err != nil {
		return fmt.Errorf("wire: seek by %d: %w", delta, err)
	}
	return nil
}

func (c *Cursor) readFull(buf []byte) error {
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return fmt.Errorf("wire: read: %w", err)
	}
	return nil
}

// ReadU32 reads a big-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	var buf [4]byte
	if err := c.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadI32 reads a big-endian 32-bit word reinterpreted as signed; the wire
// format does not distinguish signed from unsigned 32-bit words.
func (c *Cursor) ReadI32() (int32, error) {
	u, err := c.ReadU32()
	return int32(u), err
}

// ReadF64 reads a big-endian IEEE-754 double.
func (c *Cursor) ReadF64() (float64, error) {
	var buf [8]byte
	if err := c.readFull(buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

// UnreadU32 rewinds the cursor by 4 bytes, used by every dictionary-style
// reader (properties, types, trace records) to push back a terminating tag.
func (c *Cursor) UnreadU32() error {
	return c.SeekRelative(-4)
}

// ReadString reads a u32 length prefix followed by that many UTF-8 bytes,
// then skips the (−length) mod 4 zero-padding bytes up to a 4-byte boundary.
func (c *Cursor) ReadString() (string, error) {
	length, err := c.ReadU32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if err := c.readFull(buf); err != nil {
		return "", err
	}
	pad := (4 - int(length)%4) % 4
	if pad > 0 {
		var padBuf [4]byte
		if err := c.readFull(padBuf[:pad]); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
