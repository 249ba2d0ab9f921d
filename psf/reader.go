package psf

import (
	"fmt"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/laenix/psfgo/internal/wire"
)

const (
	propSweepPoints = "PSF sweep points"
	propWindowSize  = "PSF window size"
)

// Reader holds one opened PSF file's fully-decoded contents. The value
// section is decoded once in Open and the file is closed immediately after;
// window/row framing doesn't support cheap random access to individual
// points, so there is no benefit to keeping the backing file open.
type Reader struct {
	path    string
	log     *logrus.Logger
	metrics *Metrics

	firstWord   uint32
	headerProps map[string]PropertyValue
	sweepVar    *Variable

	result *decodeResult
}

// Option configures Open.
type Option func(*Reader)

// WithMetrics registers a Metrics sink. A nil Metrics (the default) makes
// every recording call a no-op.
func WithMetrics(m *Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// WithLogger overrides the default logrus.StandardLogger().
func WithLogger(l *logrus.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// Open reads path's sections, type registry, trace declarations, and value
// stream, decoding everything eagerly. The returned Reader owns no open
// file handle.
func Open(path string, opts ...Option) (*Reader, error) {
	r := &Reader{path: path, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "psf: open %s", path)
	}
	defer f.Close()

	cur, err := wire.NewCursor(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "psf: %s", path)
	}

	if err := r.parse(cur); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse(cur *wire.Cursor) error {
	if err := cur.SeekAbsolute(0); err != nil {
		return pkgerrors.Wrap(err, "psf: reading first word")
	}
	firstWord, err := cur.ReadU32()
	if err != nil {
		return pkgerrors.Wrap(err, "psf: reading first word")
	}
	r.firstWord = firstWord

	sections, footerPresent, err := discoverSections(cur)
	if err != nil {
		return pkgerrors.Wrap(err, "psf: discovering sections")
	}
	if len(sections) == 0 {
		return newParseError(KindNotPSF, "no footer marker and no recognized streamed section")
	}
	r.log.WithFields(logrus.Fields{
		"path":          r.path,
		"footer":        footerPresent,
		"section_count": len(sections),
	}).Debug("psf: sections discovered")

	headerProps := map[string]PropertyValue{}
	if info, ok := sections[wire.SectionHeader]; ok {
		headerProps, err = parseHeaderSection(cur, info)
		if err != nil {
			return pkgerrors.Wrap(err, "psf: parsing header section")
		}
		r.metrics.recordSection()
		r.log.Debug("psf: header section parsed")
	}
	r.headerProps = headerProps

	reg := typeRegistry{}
	if info, ok := sections[wire.SectionType]; ok {
		reg, err = parseTypeSectionWrap(cur, info)
		if err != nil {
			return pkgerrors.Wrap(err, "psf: parsing type section")
		}
		r.metrics.recordSection()
		r.log.WithField("types", len(reg)).Debug("psf: type section parsed")
	}

	var sweepVar *Variable
	if info, ok := sections[wire.SectionSweep]; ok {
		sweepVars, err := parseSweepSectionWrap(cur, info)
		if err != nil {
			return pkgerrors.Wrap(err, "psf: parsing sweep section")
		}
		if len(sweepVars) > 1 {
			return newParseError(KindUnsupportedMultipleSweeps, fmt.Sprintf("%d sweep variables declared", len(sweepVars)))
		}
		if len(sweepVars) == 1 {
			sweepVar = sweepVars[0]
		}
		r.metrics.recordSection()
		r.log.WithField("swept", sweepVar != nil).Debug("psf: sweep section parsed")
	}
	r.sweepVar = sweepVar

	var entries []traceEntry
	if info, ok := sections[wire.SectionTrace]; ok {
		entries, err = parseTraceSectionWrap(cur, info)
		if err != nil {
			return pkgerrors.Wrap(err, "psf: parsing trace section")
		}
		r.metrics.recordSection()
		r.log.WithField("entries", len(entries)).Debug("psf: trace section parsed")
	}

	var sweepType wire.TypeID
	if sweepVar != nil {
		t, err := reg.lookup(sweepVar.TypeID)
		if err != nil {
			return pkgerrors.Wrap(err, "psf: resolving sweep variable type")
		}
		sweepType = t.DataType
	}

	info, ok := sections[wire.SectionValue]
	if !ok {
		return newParseError(KindNotPSF, "no value section present")
	}

	winSize := int(headerProps[propWindowSize].Int)
	sweepNPoints := int(headerProps[propSweepPoints].Int)

	start := time.Now()
	result, err := decodeValueSection(cur, info, sweepVar, sweepType, winSize, sweepNPoints, entries, reg)
	r.metrics.recordDecodeDuration(time.Since(start))
	if err != nil {
		return pkgerrors.Wrap(err, "psf: decoding value section")
	}
	r.metrics.recordSection()
	if !result.completed {
		r.metrics.recordTruncated()
		r.log.WithFields(logrus.Fields{
			"path":        r.path,
			"read_points": result.readPoints,
		}).Warn("psf: value section ended before declared sweep point count")
	}

	signalCount := len(result.traceColumns)
	if !result.swept {
		signalCount = len(result.scalars)
	}
	r.metrics.recordSignals(signalCount)

	r.result = result
	return nil
}

// FirstWord exposes the unvalidated first 4 bytes of the file, ahead of
// footer probing or section discovery. Its meaning is left to the caller;
// this package makes no assumption about it beyond its byte length.
func (r *Reader) FirstWord() uint32 { return r.firstWord }

// Properties returns the Header section's full property dictionary.
func (r *Reader) Properties() map[string]PropertyValue { return r.headerProps }

// IsSwept reports whether the file declares a sweep variable.
func (r *Reader) IsSwept() bool { return r.result.swept }

// IsWellFormed reports whether the value stream ran to completion: every
// declared sweep point (swept files) or the whole non-swept tuple stream
// was read without early termination.
func (r *Reader) IsWellFormed() bool { return r.result.completed }

// ReadNPoints returns the number of sweep points actually decoded, which is
// less than SweepNPoints() when the value stream was truncated.
func (r *Reader) ReadNPoints() int { return r.result.readPoints }

// SweepParamName returns the swept variable's name, or "" for a non-swept
// file.
func (r *Reader) SweepParamName() string {
	if r.sweepVar == nil {
		return ""
	}
	return r.sweepVar.Name
}

// SweepNPoints returns the header's declared sweep point count.
func (r *Reader) SweepNPoints() int {
	return int(r.headerProps[propSweepPoints].Int)
}

// SweepValues returns the decoded sweep axis as a Column, or nil for a
// non-swept file.
func (r *Reader) SweepValues() *Column { return r.result.sweepColumn }

// SignalNames lists every decoded output column (swept) or value (non-swept)
// name.
func (r *Reader) SignalNames() []string {
	if r.result.swept {
		names := make([]string, len(r.result.traceColumns))
		for i, c := range r.result.traceColumns {
			names[i] = c.Name
		}
		return names
	}
	names := make([]string, 0, len(r.result.scalars))
	for name := range r.result.scalars {
		names = append(names, name)
	}
	return names
}

// SignalType returns name's decoded type and whether it exists. For the
// sweep parameter itself, pass SweepParamName() — the sweep axis carries a
// type the way any other signal does.
func (r *Reader) SignalType(name string) (wire.TypeID, bool) {
	if r.sweepVar != nil && name == r.sweepVar.Name && r.result.sweepColumn != nil {
		return r.result.sweepColumn.Type, true
	}
	if r.result.swept {
		for _, c := range r.result.traceColumns {
			if c.Name == name {
				return c.Type, true
			}
		}
		return 0, false
	}
	sv, ok := r.result.scalars[name]
	if !ok {
		return 0, false
	}
	return sv.Type, true
}

// SignalUnits returns the "units" property recorded against name's
// declaring Type (the scalar Variable's own type, or the owning struct
// member's type), if any. For the sweep parameter itself, the lookup
// resolves against the sweep variable's own property dictionary instead,
// since the sweep axis has no declaring Type of its own to consult.
func (r *Reader) SignalUnits(name string) (string, bool) {
	if r.sweepVar != nil && name == r.sweepVar.Name {
		u, ok := r.sweepVar.Properties["units"]
		if !ok {
			return "", false
		}
		return u.String(), true
	}
	u, ok := r.result.unitsByName[name]
	return u, ok
}

// Signal returns the decoded Column for name in a swept file, or nil if no
// such column exists (including when the file is non-swept — use
// ScalarValue for that case).
func (r *Reader) Signal(name string) *Column {
	if !r.result.swept {
		return nil
	}
	for _, c := range r.result.traceColumns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ScalarValue returns name's decoded value from a non-swept file.
func (r *Reader) ScalarValue(name string) (ScalarValue, bool) {
	sv, ok := r.result.scalars[name]
	return sv, ok
}
