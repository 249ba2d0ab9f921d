package psf

import "github.com/laenix/psfgo/internal/wire"

// Column is one dense, name-keyed output vector. Exactly one of the typed
// slices is populated, selected by Type. Samples beyond the decoder's
// final read_points are never populated; truncate trims the backing slice
// down to the actual count.
type Column struct {
	Name string
	Type wire.TypeID

	int32s      []int32
	float64s    []float64
	complex128s []complex128
}

// Len returns the number of decoded samples currently held.
func (c *Column) Len() int {
	switch c.Type {
	case wire.Int8, wire.Int32:
		return len(c.int32s)
	case wire.Double:
		return len(c.float64s)
	case wire.ComplexDouble:
		return len(c.complex128s)
	default:
		return 0
	}
}

// Int32s returns the backing slice for an INT8/INT32 column.
func (c *Column) Int32s() ([]int32, bool) {
	if c.Type != wire.Int8 && c.Type != wire.Int32 {
		return nil, false
	}
	return c.int32s, true
}

// Float64s returns the backing slice for a DOUBLE column.
func (c *Column) Float64s() ([]float64, bool) {
	if c.Type != wire.Double {
		return nil, false
	}
	return c.float64s, true
}

// Complex128s returns the backing slice for a COMPLEX_DOUBLE column, real
// and imaginary parts already paired in file order.
func (c *Column) Complex128s() ([]complex128, bool) {
	if c.Type != wire.ComplexDouble {
		return nil, false
	}
	return c.complex128s, true
}

func newColumn(name string, typ wire.TypeID, npoints int) *Column {
	c := &Column{Name: name, Type: typ}
	switch typ {
	case wire.Int8, wire.Int32:
		c.int32s = make([]int32, npoints)
	case wire.Double:
		c.float64s = make([]float64, npoints)
	case wire.ComplexDouble:
		c.complex128s = make([]complex128, npoints)
	}
	return c
}

func (c *Column) truncate(n int) {
	switch c.Type {
	case wire.Int8, wire.Int32:
		if n <= len(c.int32s) {
			c.int32s = c.int32s[:n]
		}
	case wire.Double:
		if n <= len(c.float64s) {
			c.float64s = c.float64s[:n]
		}
	case wire.ComplexDouble:
		if n <= len(c.complex128s) {
			c.complex128s = c.complex128s[:n]
		}
	}
}

func readScalarInto(cur *wire.Cursor, typ wire.TypeID, col *Column, idx int) error {
	switch typ {
	case wire.Int8, wire.Int32:
		v, err := cur.ReadI32()
		if err != nil {
			return err
		}
		col.int32s[idx] = v
	case wire.Double:
		v, err := cur.ReadF64()
		if err != nil {
			return err
		}
		col.float64s[idx] = v
	case wire.ComplexDouble:
		re, err := cur.ReadF64()
		if err != nil {
			return err
		}
		im, err := cur.ReadF64()
		if err != nil {
			return err
		}
		col.complex128s[idx] = complex(re, im)
	default:
		if _, ok := typ.SampleSize(); !ok {
			return newParseError(KindUnsupportedDataType, "type "+typ.String()+" cannot be a value-stream sample")
		}
	}
	return nil
}

// traceStorage is the allocated, in-progress decode state for one
// traceEntry (Variable or Group). It composes the windowed and
// non-windowed framings on top of a shared per-sample read.
type traceStorage interface {
	// readNonWindowedChecked validates the (element_id, id) preamble that
	// announces a top-level trace entry's row and, on success, reads one
	// sample per column at idx. ok is false on an unrecognized element_id
	// or an id mismatch — both terminate the row stream.
	readNonWindowedChecked(cur *wire.Cursor, idx int) (ok bool, err error)
	truncate(n int)
	columns() []*Column
	leafSlice() []leaf
}

type variableStorage struct {
	variable *Variable
	leaves   []leaf
	cols     []*Column
}

func newVariableStorage(v *Variable, reg typeRegistry, npoints int) (*variableStorage, error) {
	leaves, err := resolveLeaves(v, reg)
	if err != nil {
		return nil, err
	}
	cols := make([]*Column, len(leaves))
	for i, lf := range leaves {
		cols[i] = newColumn(lf.name, lf.typ, npoints)
	}
	return &variableStorage{variable: v, leaves: leaves, cols: cols}, nil
}

// readNonWindowedRaw reads one sample per leaf column at idx with no
// preamble check, used for a Variable nested inside a Group.
func (vs *variableStorage) readNonWindowedRaw(cur *wire.Cursor, idx int) error {
	for i, lf := range vs.leaves {
		if err := readScalarInto(cur, lf.typ, vs.cols[i], idx); err != nil {
			return err
		}
	}
	return nil
}

func (vs *variableStorage) readNonWindowedChecked(cur *wire.Cursor, idx int) (bool, error) {
	elementID, id, err := readRowPreamble(cur)
	if err != nil {
		return false, err
	}
	if elementID != wire.ElementData || id != vs.variable.ID {
		if err := cur.SeekRelative(-8); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, vs.readNonWindowedRaw(cur, idx)
}

func (vs *variableStorage) truncate(n int) {
	for _, c := range vs.cols {
		c.truncate(n)
	}
}

func (vs *variableStorage) columns() []*Column { return vs.cols }

func (vs *variableStorage) leafSlice() []leaf { return vs.leaves }

type groupStorage struct {
	group   *Group
	members []*variableStorage
}

func (gs *groupStorage) readNonWindowedChecked(cur *wire.Cursor, idx int) (bool, error) {
	elementID, id, err := readRowPreamble(cur)
	if err != nil {
		return false, err
	}
	if elementID != wire.ElementGroup || id != gs.group.ID {
		if err := cur.SeekRelative(-8); err != nil {
			return false, err
		}
		return false, nil
	}
	for _, m := range gs.members {
		if err := m.readNonWindowedRaw(cur, idx); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (gs *groupStorage) truncate(n int) {
	for _, m := range gs.members {
		m.truncate(n)
	}
}

func (gs *groupStorage) columns() []*Column {
	var cols []*Column
	for _, m := range gs.members {
		cols = append(cols, m.columns()...)
	}
	return cols
}

func (gs *groupStorage) leafSlice() []leaf {
	var leaves []leaf
	for _, m := range gs.members {
		leaves = append(leaves, m.leafSlice()...)
	}
	return leaves
}

// readRowPreamble reads the (element_id, id) pair framing one non-windowed
// value row entry.
func readRowPreamble(cur *wire.Cursor) (wire.ElementID, uint32, error) {
	elementWord, err := cur.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	id, err := cur.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	return wire.ElementID(elementWord), id, nil
}
