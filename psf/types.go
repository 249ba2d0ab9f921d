package psf

import (
	"github.com/laenix/psfgo/internal/wire"
)

// Type is a registered PSF_Type record: a primitive, an array, or a struct
// whose Members are themselves fully-formed Types registered under their
// own id in the same global map.
type Type struct {
	ID         uint32
	Name       string
	ArrayKind  uint32
	DataType   wire.TypeID
	Members    []*Type // populated only when DataType == wire.Struct
	Properties map[string]PropertyValue
}

// typeRegistry is the single Map<u32, Type> every Variable's type_id
// resolves against, top-level and struct-member types alike.
type typeRegistry map[uint32]*Type

func (r typeRegistry) lookup(id uint32) (*Type, error) {
	t, ok := r[id]
	if !ok {
		return nil, newParseError(KindUnknownType, "type id not registered")
	}
	return t, nil
}

// parseType reads one PSF_Type record. A leading tag other than
// ElementData signals end of the type section (or end of a struct's member
// list, when called recursively) and is pushed back; ok is false in that
// case.
func parseType(cur *wire.Cursor, reg typeRegistry) (t *Type, ok bool, err error) {
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

	t = &Type{}
	if t.ID, err = cur.ReadU32(); err != nil {
		return nil, false, err
	}
	if t.Name, err = cur.ReadString(); err != nil {
		return nil, false, err
	}
	if t.ArrayKind, err = cur.ReadU32(); err != nil {
		return nil, false, err
	}
	dt, err := cur.ReadU32()
	if err != nil {
		return nil, false, err
	}
	t.DataType = wire.TypeID(dt)

	if t.DataType == wire.Struct {
		for {
			marker, err := cur.ReadU32()
			if err != nil {
				return nil, false, err
			}
			if wire.TypeID(marker) != wire.Tuple {
				if err := cur.UnreadU32(); err != nil {
					return nil, false, err
				}
				break
			}

			member, ok, err := parseType(cur, reg)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			t.Members = append(t.Members, member)
		}
	}

	props, err := readPropertyDictionary(cur)
	if err != nil {
		return nil, false, err
	}
	t.Properties = props

	reg[t.ID] = t
	return t, true, nil
}

// parseTypeSection reads every Type record up to endSub, the MINOR_SECTION
// end offset.
func parseTypeSection(cur *wire.Cursor, endSub int64) (typeRegistry, error) {
	reg := make(typeRegistry)
	for {
		pos, err := cur.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= endSub {
			return reg, nil
		}

		_, ok, err := parseType(cur, reg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return reg, nil
		}
	}
}
