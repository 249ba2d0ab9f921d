package psf

import (
	"fmt"

	"github.com/laenix/psfgo/internal/wire"
)

// Variable is a leaf trace entry: a single declared signal, scalar or
// struct-typed.
type Variable struct {
	ID         uint32
	Name       string
	TypeID     uint32
	Properties map[string]PropertyValue
}

// Group is a composite trace entry with a fixed declared member count.
type Group struct {
	ID      uint32
	Name    string
	Members []*Variable
}

// traceEntry is the sum type over {Variable, Group} the trace section
// parses into.
type traceEntry interface {
	newStorage(reg typeRegistry, npoints int) (traceStorage, error)
}

func (v *Variable) newStorage(reg typeRegistry, npoints int) (traceStorage, error) {
	return newVariableStorage(v, reg, npoints)
}

func (g *Group) newStorage(reg typeRegistry, npoints int) (traceStorage, error) {
	members := make([]*variableStorage, 0, len(g.Members))
	for _, v := range g.Members {
		vs, err := newVariableStorage(v, reg, npoints)
		if err != nil {
			return nil, err
		}
		members = append(members, vs)
	}
	return &groupStorage{group: g, members: members}, nil
}

// parseVariable reads one Variable record. A leading tag other than
// ElementData means no Variable is here; it is pushed back and ok is false.
func parseVariable(cur *wire.Cursor) (v *Variable, ok bool, err error) {
	tag, err := cur.ReadU32()
	if err != nil {
		return nil, false, err
	}
	if wire.ElementID(tag) != wire.ElementData {
		if err := cur.UnreadU32(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	v = &Variable{}
	if v.ID, err = cur.ReadU32(); err != nil {
		return nil, false, err
	}
	if v.Name, err = cur.ReadString(); err != nil {
		return nil, false, err
	}
	if v.TypeID, err = cur.ReadU32(); err != nil {
		return nil, false, err
	}
	if v.Properties, err = readPropertyDictionary(cur); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// parseGroup reads one Group record: a declared member length followed by
// that many Variable records. Fewer than declared is structural corruption,
// not truncation — it fails fatally with KindMalformedGroup.
func parseGroup(cur *wire.Cursor) (g *Group, ok bool, err error) {
	tag, err := cur.ReadU32()
	if err != nil {
		return nil, false, err
	}
	if wire.ElementID(tag) != wire.ElementGroup {
		if err := cur.UnreadU32(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	g = &Group{}
	if g.ID, err = cur.ReadU32(); err != nil {
		return nil, false, err
	}
	if g.Name, err = cur.ReadString(); err != nil {
		return nil, false, err
	}
	length, err := cur.ReadU32()
	if err != nil {
		return nil, false, err
	}

	g.Members = make([]*Variable, 0, length)
	for i := uint32(0); i < length; i++ {
		v, ok, err := parseVariable(cur)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, newParseError(KindMalformedGroup, fmt.Sprintf(
				"group %q declares %d members, only %d parsed", g.Name, length, i))
		}
		g.Members = append(g.Members, v)
	}
	return g, true, nil
}

// parseTraceSection reads alternating Group and Variable records until no
// valid record remains or endSub is reached.
func parseTraceSection(cur *wire.Cursor, endSub int64) ([]traceEntry, error) {
	var entries []traceEntry
	for {
		pos, err := cur.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= endSub {
			return entries, nil
		}

		g, ok, err := parseGroup(cur)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, g)
			continue
		}

		v, ok, err := parseVariable(cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return entries, nil
		}
		entries = append(entries, v)
	}
}

// leaf is one output column's source: a scalar Variable, or one member of a
// struct-typed Variable's resolved Type. props always carries the declaring
// Type's own property dictionary — the scalar Type itself, or the member
// Type for a struct field — never the Variable's; SignalUnits reads "units"
// out of it.
type leaf struct {
	name  string
	typ   wire.TypeID
	props map[string]PropertyValue
}

// resolveLeaves expands v's type into its output columns: one column named
// after v itself for a scalar type, or one column per struct member (named
// after the member) for a struct type. Member types are always scalar —
// a struct member referencing another struct type is not modeled.
func resolveLeaves(v *Variable, reg typeRegistry) ([]leaf, error) {
	t, err := reg.lookup(v.TypeID)
	if err != nil {
		return nil, err
	}
	if t.DataType != wire.Struct {
		return []leaf{{name: v.Name, typ: t.DataType, props: t.Properties}}, nil
	}

	leaves := make([]leaf, 0, len(t.Members))
	for _, m := range t.Members {
		leaves = append(leaves, leaf{name: m.Name, typ: m.DataType, props: m.Properties})
	}
	return leaves, nil
}
