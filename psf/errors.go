package psf

import (
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/laenix/psfgo/internal/wire"
)

// Kind classifies a fatal parse failure. Truncation during value decoding is
// not a Kind — it is recovered locally and surfaced only through the
// completion flag a Reader exposes via IsWellFormed.
type Kind int

const (
	// KindNotPSF: footer marker absent and streaming-section recognition
	// from offset 4 also failed, or no Value section was located.
	KindNotPSF Kind = iota
	// KindBadChunkTag: a chunk preamble's tag didn't match MAJOR_SECTION or
	// MINOR_SECTION as expected.
	KindBadChunkTag
	// KindUnknownType: a Variable's type_id has no entry in the registry.
	KindUnknownType
	// KindMalformedGroup: a Group declared N members but fewer parsed.
	KindMalformedGroup
	// KindUnsupportedMultipleSweeps: more than one sweep variable declared.
	KindUnsupportedMultipleSweeps
	// KindUnsupportedDataType: value decoding requested for a type outside
	// {INT8, INT32, DOUBLE, COMPLEX_DOUBLE}.
	KindUnsupportedDataType
)

func (k Kind) String() string {
	switch k {
	case KindNotPSF:
		return "NotPsf"
	case KindBadChunkTag:
		return "BadChunkTag"
	case KindUnknownType:
		return "UnknownType"
	case KindMalformedGroup:
		return "MalformedGroup"
	case KindUnsupportedMultipleSweeps:
		return "UnsupportedMultipleSweeps"
	case KindUnsupportedDataType:
		return "UnsupportedDataType"
	default:
		return "Unknown"
	}
}

// ParseError is a fatal error carrying the Kind a caller can switch on.
type ParseError struct {
	Kind Kind
	msg  string
}

func (e *ParseError) Error() string { return e.Kind.String() + ": " + e.msg }

func newParseError(kind Kind, msg string) error {
	return pkgerrors.WithStack(&ParseError{Kind: kind, msg: msg})
}

// IsKind reports whether err is a ParseError of the given kind, unwrapping
// any pkg/errors stack annotation.
func IsKind(err error, kind Kind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// ErrTruncated is re-exported so callers can check partial-read conditions
// with errors.Is without importing internal/wire.
var ErrTruncated = wire.ErrTruncated
