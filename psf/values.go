package psf

import (
	"errors"

	"github.com/laenix/psfgo/internal/wire"
)

// ScalarValue is a single typed value decoded from a non-swept Value
// section's (name, type, value) tuple stream — one per signal, since an
// operating-point file has no sweep axis to carry rows of samples along.
type ScalarValue struct {
	Type       wire.TypeID
	Int32      int32
	Float64    float64
	Complex128 complex128
}

// decodeResult holds everything the Value section produced, ready for the
// Reader to index by name.
type decodeResult struct {
	swept        bool
	completed    bool
	readPoints   int
	sweepColumn  *Column
	traceColumns []*Column
	scalars      map[string]ScalarValue
	unitsByName  map[string]string
}

// decodeValueSection dispatches to the windowed, non-windowed, or non-swept
// decoder depending on whether the file declares a sweep variable and
// whether the header's window size property is set.
func decodeValueSection(
	cur *wire.Cursor,
	info SectionInfo,
	sweepVar *Variable,
	sweepType wire.TypeID,
	winSize int,
	sweepNPoints int,
	entries []traceEntry,
	reg typeRegistry,
) (*decodeResult, error) {
	if err := cur.SeekAbsolute(info.Offset); err != nil {
		return nil, err
	}
	endpos, err := readChunkPreamble(cur, wire.MajorSection)
	if err != nil {
		return nil, err
	}

	if sweepVar == nil {
		endSub, err := readChunkPreamble(cur, wire.MinorSection)
		if err != nil {
			return nil, err
		}
		scalars, err := readNonSweepValues(cur, endSub)
		if err != nil {
			return nil, err
		}
		return &decodeResult{swept: false, completed: true, scalars: scalars}, nil
	}

	storages := make([]traceStorage, len(entries))
	for i, e := range entries {
		st, err := e.newStorage(reg, sweepNPoints)
		if err != nil {
			return nil, err
		}
		storages[i] = st
	}
	sweepCol := newColumn(sweepVar.Name, sweepType, sweepNPoints)

	var readPoints int
	var completed bool
	if winSize > 0 {
		var leafCols []*Column
		for _, st := range storages {
			leafCols = append(leafCols, st.columns()...)
		}
		readPoints, completed, err = readWindowedValues(cur, endpos, sweepType, winSize, sweepNPoints, sweepCol, leafCols)
	} else {
		readPoints, completed, err = readNonWindowedValues(cur, sweepType, sweepNPoints, sweepCol, storages)
	}
	if err != nil {
		return nil, err
	}

	if readPoints < sweepNPoints {
		sweepCol.truncate(readPoints)
		for _, st := range storages {
			st.truncate(readPoints)
		}
	}

	var cols []*Column
	units := make(map[string]string)
	for _, st := range storages {
		cols = append(cols, st.columns()...)
		for _, lf := range st.leafSlice() {
			if lf.props == nil {
				continue
			}
			if u, ok := lf.props["units"]; ok {
				units[lf.name] = u.String()
			}
		}
	}
	return &decodeResult{
		swept:        true,
		completed:    completed,
		readPoints:   readPoints,
		sweepColumn:  sweepCol,
		traceColumns: cols,
		unitsByName:  units,
	}, nil
}

// readWindowedValues reads fixed-byte-width window blocks until endpos or
// an unrecognized block tag. Each DATA block carries `size` sweep samples
// (stored into sweepCol) read immediately after the block header, followed
// by every flattened trace leaf in turn: for each leaf, first seek the
// realignment skip left over from the previous column's window frame, then
// read that leaf's `size` samples — no skip trails the final leaf, since
// the next thing in the file is the following block's own header. The
// skip width is computed from the *sweep* type's sample size, not the
// leaf's own, since every column shares one window size. A ZEROPAD block
// names a byte length to skip outright; it carries no samples and does not
// advance the point count. A read that runs past EOF ends the stream: the
// points of every fully-read block are kept and completed is false.
func readWindowedValues(
	cur *wire.Cursor,
	endpos int64,
	sweepType wire.TypeID,
	winSize int,
	sweepNPoints int,
	sweepCol *Column,
	leafCols []*Column,
) (readPoints int, completed bool, err error) {
	sweepSampleSize, ok := sweepType.SampleSize()
	if !ok {
		return 0, false, newParseError(KindUnsupportedDataType, "sweep type "+sweepType.String()+" has no fixed sample size")
	}

	stop := func(err error) (int, bool, error) {
		if errors.Is(err, wire.ErrTruncated) {
			return readPoints, false, nil
		}
		return readPoints, false, err
	}

	for readPoints < sweepNPoints {
		pos, err := cur.Tell()
		if err != nil {
			return readPoints, false, err
		}
		if pos >= endpos {
			return readPoints, readPoints == sweepNPoints, nil
		}

		tagWord, err := cur.ReadU32()
		if err != nil {
			if errors.Is(err, wire.ErrTruncated) {
				return readPoints, false, nil
			}
			return readPoints, false, err
		}

		switch wire.ElementID(tagWord) {
		case wire.ElementData:
			count, err := cur.ReadU32()
			if err != nil {
				return stop(err)
			}
			size := int(count & 0xFFFF)
			start := readPoints

			for j := 0; j < size; j++ {
				if err := readScalarInto(cur, sweepType, sweepCol, start+j); err != nil {
					return stop(err)
				}
			}

			skip := int64(winSize - size*sweepSampleSize)
			for _, col := range leafCols {
				if err := cur.SeekRelative(skip); err != nil {
					return readPoints, false, err
				}
				for j := 0; j < size; j++ {
					if err := readScalarInto(cur, col.Type, col, start+j); err != nil {
						return stop(err)
					}
				}
			}
			readPoints += size

		case wire.ElementZeropad:
			padBytes, err := cur.ReadU32()
			if err != nil {
				return stop(err)
			}
			if err := cur.SeekRelative(int64(padBytes)); err != nil {
				return readPoints, false, err
			}

		default:
			if err := cur.SeekRelative(-4); err != nil {
				return readPoints, false, err
			}
			return readPoints, readPoints == sweepNPoints, nil
		}
	}
	return readPoints, true, nil
}

// readNonWindowedValues reads one row per sweep point: the sweep sample
// itself (untagged), then every top-level trace entry's tagged row. A
// mismatched or unrecognized row tag terminates the stream gracefully
// rather than failing the whole decode, including an id mismatch on an
// otherwise well-formed tag.
func readNonWindowedValues(
	cur *wire.Cursor,
	sweepType wire.TypeID,
	sweepNPoints int,
	sweepCol *Column,
	storages []traceStorage,
) (readPoints int, completed bool, err error) {
	for idx := 0; idx < sweepNPoints; idx++ {
		if err := readScalarInto(cur, sweepType, sweepCol, idx); err != nil {
			if errors.Is(err, wire.ErrTruncated) {
				return idx, false, nil
			}
			return idx, false, err
		}

		for _, st := range storages {
			ok, err := st.readNonWindowedChecked(cur, idx)
			if err != nil {
				if errors.Is(err, wire.ErrTruncated) {
					return idx, false, nil
				}
				return idx, false, err
			}
			if !ok {
				return idx, false, nil
			}
		}
		readPoints = idx + 1
	}
	return readPoints, true, nil
}

// readNonSweepValues reads the (element_id=DATA, var_id, name, type, value)
// tuple stream an operating-point file stores in place of swept rows. Any
// tag other than DATA ends the stream — an unrecognized tag always
// terminates rather than looping without advancing the cursor.
func readNonSweepValues(cur *wire.Cursor, endSub int64) (map[string]ScalarValue, error) {
	values := make(map[string]ScalarValue)
	for {
		pos, err := cur.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= endSub {
			return values, nil
		}

		tagWord, err := cur.ReadU32()
		if err != nil {
			if errors.Is(err, wire.ErrTruncated) {
				return values, nil
			}
			return nil, err
		}
		if wire.ElementID(tagWord) != wire.ElementData {
			if err := cur.SeekRelative(-4); err != nil {
				return nil, err
			}
			return values, nil
		}

		if _, err := cur.ReadU32(); err != nil { // var_id, unused: values are indexed by name
			return nil, err
		}
		name, err := cur.ReadString()
		if err != nil {
			return nil, err
		}
		typeWord, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		typ := wire.TypeID(typeWord)

		sv := ScalarValue{Type: typ}
		switch typ {
		case wire.Int8, wire.Int32:
			if sv.Int32, err = cur.ReadI32(); err != nil {
				return nil, err
			}
		case wire.Double:
			if sv.Float64, err = cur.ReadF64(); err != nil {
				return nil, err
			}
		case wire.ComplexDouble:
			re, err := cur.ReadF64()
			if err != nil {
				return nil, err
			}
			im, err := cur.ReadF64()
			if err != nil {
				return nil, err
			}
			sv.Complex128 = complex(re, im)
		default:
			return nil, newParseError(KindUnsupportedDataType, "type "+typ.String()+" cannot be a non-sweep value")
		}
		values[name] = sv
	}
}
