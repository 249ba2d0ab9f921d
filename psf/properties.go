package psf

import (
	"fmt"

	"github.com/laenix/psfgo/internal/wire"
)

// PropertyValue is a tagged (name, value) pair attached to a Type or
// Variable, or found standalone in the Header section's dictionary.
type PropertyValue struct {
	Tag   wire.PropertyTag
	Str   string
	Int   int32
	Float float64
}

func (p PropertyValue) String() string {
	switch p.Tag {
	case wire.PropString:
		return p.Str
	case wire.PropInt:
		return fmt.Sprintf("%d", p.Int)
	case wire.PropDouble:
		return fmt.Sprintf("%g", p.Float)
	default:
		return ""
	}
}

// readPropertyDictionary reads successive (tag, name, value) triples until
// a tag outside {STRING, INT, DOUBLE} is seen, at which point that tag is
// pushed back and the dictionary is returned. Later duplicate names
// overwrite earlier ones. An empty dictionary is valid.
func readPropertyDictionary(cur *wire.Cursor) (map[string]PropertyValue, error) {
	props := make(map[string]PropertyValue)
	for {
		tag, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}

		switch wire.PropertyTag(tag) {
		case wire.PropString:
			name, err := cur.ReadString()
			if err != nil {
				return nil, err
			}
			val, err := cur.ReadString()
			if err != nil {
				return nil, err
			}
			props[name] = PropertyValue{Tag: wire.PropString, Str: val}
		case wire.PropInt:
			name, err := cur.ReadString()
			if err != nil {
				return nil, err
			}
			val, err := cur.ReadI32()
			if err != nil {
				return nil, err
			}
			props[name] = PropertyValue{Tag: wire.PropInt, Int: val}
		case wire.PropDouble:
			name, err := cur.ReadString()
			if err != nil {
				return nil, err
			}
			val, err := cur.ReadF64()
			if err != nil {
				return nil, err
			}
			props[name] = PropertyValue{Tag: wire.PropDouble, Float: val}
		default:
			if err := cur.UnreadU32(); err != nil {
				return nil, err
			}
			return props, nil
		}
	}
}
