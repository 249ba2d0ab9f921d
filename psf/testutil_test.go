package psf

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/laenix/psfgo/internal/wire"
)

// builder assembles a little in-memory PSF-shaped byte stream, word at a
// time, for tests that exercise one reader in isolation without a real
// simulator-produced file.
type builder struct {
	buf bytes.Buffer
}

func (b *builder) u32(v uint32) *builder {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) i32(v int32) *builder { return b.u32(uint32(v)) }

func (b *builder) f64(v float64) *builder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	b.buf.Write(tmp[:])
	return b
}

func (b *builder) str(s string) *builder {
	b.u32(uint32(len(s)))
	b.buf.WriteString(s)
	pad := (4 - len(s)%4) % 4
	b.buf.Write(make([]byte, pad))
	return b
}

func (b *builder) raw(p []byte) *builder {
	b.buf.Write(p)
	return b
}

func (b *builder) bytes() []byte { return b.buf.Bytes() }

func (b *builder) len() int { return b.buf.Len() }

// bytesReadSeeker adapts a byte slice to io.ReadSeeker for wire.NewCursor.
func bytesReadSeeker(p []byte) io.ReadSeeker { return bytes.NewReader(p) }

func newTestCursor(p []byte) *wire.Cursor {
	cur, err := wire.NewCursor(bytesReadSeeker(p))
	if err != nil {
		panic(err)
	}
	return cur
}

// majorChunk wraps body with a MAJOR_SECTION(tag, end_offset) preamble
// whose end_offset points just past body, as if body started right after
// the preamble at byte offset `at`.
func majorChunk(at int, body []byte) []byte {
	b := &builder{}
	b.u32(uint32(wire.MajorSection))
	b.u32(uint32(at + 8 + len(body)))
	b.raw(body)
	return b.bytes()
}

func minorChunk(at int, body []byte) []byte {
	b := &builder{}
	b.u32(uint32(wire.MinorSection))
	b.u32(uint32(at + 8 + len(body)))
	b.raw(body)
	return b.bytes()
}
