package psf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/laenix/psfgo/internal/wire"
)

// fileBuilder assembles a footer-equipped PSF file section by section,
// tracking each section's absolute offset for the trailing TOC.
type fileBuilder struct {
	buf     builder
	offsets map[wire.SectionID]int64
}

func newFileBuilder() *fileBuilder {
	fb := &fileBuilder{offsets: make(map[wire.SectionID]int64)}
	fb.buf.u32(0xF00D) // first word, unvalidated
	return fb
}

// addMajorOnly appends a section whose body is wrapped only in a
// MAJOR_SECTION preamble (Header and Sweep, and a swept Value stream,
// windowed or not).
func (fb *fileBuilder) addMajorOnly(id wire.SectionID, body []byte) {
	at := int64(fb.buf.len())
	fb.offsets[id] = at
	fb.buf.u32(uint32(wire.MajorSection))
	fb.buf.u32(uint32(at + 8 + int64(len(body))))
	fb.buf.raw(body)
}

// addMajorMinor appends a section wrapped in MAJOR_SECTION and a nested
// MINOR_SECTION (Type and Trace).
func (fb *fileBuilder) addMajorMinor(id wire.SectionID, body []byte) {
	at := int64(fb.buf.len())
	fb.offsets[id] = at
	fb.buf.u32(uint32(wire.MajorSection))
	fb.buf.u32(uint32(at + 16 + int64(len(body))))
	fb.buf.u32(uint32(wire.MinorSection))
	fb.buf.u32(uint32(at + 16 + int64(len(body))))
	fb.buf.raw(body)
}

// finish appends the footer TOC, marker, and data_size, returning the full
// file bytes.
func (fb *fileBuilder) finish() []byte {
	dataSize := uint32(fb.buf.len())
	order := []wire.SectionID{wire.SectionHeader, wire.SectionType, wire.SectionSweep, wire.SectionTrace, wire.SectionValue}
	for _, id := range order {
		off, ok := fb.offsets[id]
		if !ok {
			continue
		}
		fb.buf.u32(uint32(id))
		fb.buf.u32(uint32(off))
	}
	fb.buf.raw([]byte(wire.FooterMarker))
	fb.buf.u32(dataSize)
	return fb.buf.bytes()
}

func openTempPSF(t *testing.T, data []byte) *Reader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.psf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	return r
}

func buildSweptFile(t *testing.T, windowed bool) []byte {
	t.Helper()
	fb := newFileBuilder()

	header := &builder{}
	header.u32(uint32(wire.PropInt)).str("PSF sweep points").i32(3)
	winSize := int32(0)
	if windowed {
		winSize = 24
	}
	header.u32(uint32(wire.PropInt)).str("PSF window size").i32(winSize)
	header.u32(uint32(wire.ElementData)) // terminator, unread at EOF-of-section is fine
	fb.addMajorOnly(wire.SectionHeader, header.bytes())

	typ := &builder{}
	typ.u32(uint32(wire.ElementData)).u32(1).str("double").u32(0).u32(uint32(wire.Double))
	fb.addMajorMinor(wire.SectionType, typ.bytes())

	sweep := &builder{}
	sweep.u32(uint32(wire.ElementData)).u32(50).str("freq").u32(1)
	fb.addMajorOnly(wire.SectionSweep, sweep.bytes())

	trace := &builder{}
	trace.u32(uint32(wire.ElementData)).u32(60).str("vout").u32(1)
	fb.addMajorMinor(wire.SectionTrace, trace.bytes())

	value := &builder{}
	if windowed {
		value.u32(uint32(wire.ElementData)).u32(3) // single block, size=3
		value.f64(1).f64(2).f64(3)                 // sweep samples
		value.f64(10).f64(20).f64(30)              // vout samples
		// skip = winSize(24) - 3*8 = 0, no filler needed
	} else {
		for i, sv := range []float64{1, 2, 3} {
			value.f64(sv)
			value.u32(uint32(wire.ElementData)).u32(60).f64(10 * float64(i+1))
		}
	}
	fb.addMajorOnly(wire.SectionValue, value.bytes())

	return fb.finish()
}

func TestOpenNonWindowedSweptFile(t *testing.T) {
	r := openTempPSF(t, buildSweptFile(t, false))

	require.Equal(t, uint32(0xF00D), r.FirstWord())
	require.True(t, r.IsSwept())
	require.True(t, r.IsWellFormed())
	require.Equal(t, 3, r.ReadNPoints())
	require.Equal(t, "freq", r.SweepParamName())
	require.Equal(t, 3, r.SweepNPoints())

	sweepVals, _ := r.SweepValues().Float64s()
	require.Equal(t, []float64{1, 2, 3}, sweepVals)

	require.Contains(t, r.SignalNames(), "vout")
	col := r.Signal("vout")
	require.NotNil(t, col)
	vals, _ := col.Float64s()
	require.Equal(t, []float64{10, 20, 30}, vals)
}

func TestOpenWindowedSweptFile(t *testing.T) {
	r := openTempPSF(t, buildSweptFile(t, true))

	require.True(t, r.IsSwept())
	require.True(t, r.IsWellFormed())
	require.Equal(t, 3, r.ReadNPoints())

	col := r.Signal("vout")
	require.NotNil(t, col)
	vals, _ := col.Float64s()
	require.Equal(t, []float64{10, 20, 30}, vals)
}

func TestOpenRejectsNonPSFFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a psf file at all, just junk bytes"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	require.True(t, IsKind(err, KindNotPSF))
}
