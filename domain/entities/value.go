package entities

import (
	"bytes"
	"fmt"
	"math"
)

// Tag identifies the variant of a Value on the wire.
type Tag byte

// Wire tags, one per Value variant.
const (
	TagNull       Tag = 0x00
	TagBool       Tag = 0x01
	TagInt        Tag = 0x02
	TagFloat      Tag = 0x03
	TagString     Tag = 0x04
	TagBytes      Tag = 0x05
	TagArray      Tag = 0x06
	TagTable      Tag = 0x07
	TagDescriptor Tag = 0x08
)

// String returns the variant name for the tag.
func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagBytes:
		return "bytes"
	case TagArray:
		return "array"
	case TagTable:
		return "table"
	case TagDescriptor:
		return "descriptor"
	default:
		return fmt.Sprintf("tag(0x%02x)", byte(t))
	}
}

// Value is the closed set of shapes exchanged with the host.
// Only the types in this package implement it.
type Value interface {
	Tag() Tag
	isValue()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int is a 64-bit signed integer. Narrower host integers widen to it without loss.
type Int int64

// Float is a 64-bit IEEE-754 float. Equality compares bit patterns, so NaN
// payloads survive a round trip.
type Float float64

// String is UTF-8 text.
type String string

// Bytes is an opaque byte string. Nil and empty compare equal.
type Bytes []byte

// Array is an ordered sequence of values.
type Array []Value

// Entry is one key/value pair of a Table.
type Entry struct {
	Key   Value
	Value Value
}

// Table maps values to values. Entry order carries no meaning.
type Table []Entry

// DescriptorRef embeds a raw host handle inside a value.
type DescriptorRef uint32

func (Null) Tag() Tag          { return TagNull }
func (Bool) Tag() Tag          { return TagBool }
func (Int) Tag() Tag           { return TagInt }
func (Float) Tag() Tag         { return TagFloat }
func (String) Tag() Tag        { return TagString }
func (Bytes) Tag() Tag         { return TagBytes }
func (Array) Tag() Tag         { return TagArray }
func (Table) Tag() Tag         { return TagTable }
func (DescriptorRef) Tag() Tag { return TagDescriptor }

func (Null) isValue()          {}
func (Bool) isValue()          {}
func (Int) isValue()           {}
func (Float) isValue()         {}
func (String) isValue()        {}
func (Bytes) isValue()         {}
func (Array) isValue()         {}
func (Table) isValue()         {}
func (DescriptorRef) isValue() {}

// Get returns the value stored under key, comparing keys with Equal.
func (t Table) Get(key Value) (Value, bool) {
	for _, e := range t {
		if Equal(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Field is Get for string keys.
func (t Table) Field(name string) (Value, bool) {
	return t.Get(String(name))
}

// Equal reports whether two values are the same shape with the same content.
// A nil Value equals only another nil Value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		return math.Float64bits(float64(av)) == math.Float64bits(float64(b.(Float)))
	case String:
		return av == b.(String)
	case Bytes:
		return bytes.Equal(av, b.(Bytes))
	case DescriptorRef:
		return av == b.(DescriptorRef)
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Table:
		return tablesEqual(av, b.(Table))
	default:
		return false
	}
}

// tablesEqual matches every entry of a against a distinct entry of b.
func tablesEqual(a, b Table) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ea := range a {
		found := false
		for j, eb := range b {
			if used[j] {
				continue
			}
			if Equal(ea.Key, eb.Key) && Equal(ea.Value, eb.Value) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
