// Package wireformat defines the binary encoding of values exchanged between
// the guest and the host. These layouts define the ABI contract and must
// remain stable.
//
// Every value is a tag byte followed by a payload. Integers and floats are
// eight bytes, little-endian. Strings and byte arrays carry a four-byte
// length; arrays and tables carry a four-byte element count and recurse.
// A descriptor reference is the four-byte raw handle.
package wireformat

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
)

// DefaultMaxDepth bounds the nesting of arrays and tables.
const DefaultMaxDepth = 32

// Codec encodes and decodes values with a nesting limit.
type Codec struct {
	maxDepth int
}

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDepth sets the maximum nesting depth of arrays and tables.
func WithMaxDepth(depth int) Option {
	return func(c *Codec) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// NewCodec creates a Codec with the given options.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxDepth returns the configured nesting limit.
func (c *Codec) MaxDepth() int {
	return c.maxDepth
}

var defaultCodec = NewCodec()

// Encode encodes v with the default codec.
func Encode(v entities.Value) ([]byte, error) {
	return defaultCodec.Append(nil, v)
}

// Decode decodes exactly one value from b with the default codec.
func Decode(b []byte) (entities.Value, error) {
	return defaultCodec.DecodeAll(b)
}

// Size returns the encoded length of the given values.
func (c *Codec) Size(vs ...entities.Value) (int, error) {
	total := 0
	for _, v := range vs {
		n, err := c.size(v, 0)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *Codec) size(v entities.Value, depth int) (int, error) {
	switch tv := v.(type) {
	case nil:
		return 0, errors.BadArgument("encode", "nil value")
	case entities.Null:
		return 1, nil
	case entities.Bool:
		return 2, nil
	case entities.Int, entities.Float:
		return 9, nil
	case entities.DescriptorRef:
		return 5, nil
	case entities.String:
		if err := checkLen("string", len(tv)); err != nil {
			return 0, err
		}
		if !utf8.ValidString(string(tv)) {
			return 0, errors.BadArgument("encode", "string is not valid UTF-8")
		}
		return 5 + len(tv), nil
	case entities.Bytes:
		if err := checkLen("bytes", len(tv)); err != nil {
			return 0, err
		}
		return 5 + len(tv), nil
	case entities.Array:
		if err := c.checkNesting(depth, len(tv)); err != nil {
			return 0, err
		}
		total := 5
		for _, e := range tv {
			n, err := c.size(e, depth+1)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	case entities.Table:
		if err := c.checkNesting(depth, len(tv)); err != nil {
			return 0, err
		}
		total := 5
		for _, e := range tv {
			kn, err := c.size(e.Key, depth+1)
			if err != nil {
				return 0, err
			}
			vn, err := c.size(e.Value, depth+1)
			if err != nil {
				return 0, err
			}
			total += kn + vn
		}
		return total, nil
	default:
		return 0, errors.BadArgument("encode", "unsupported value %T", v)
	}
}

func (c *Codec) checkNesting(depth, count int) error {
	if depth >= c.maxDepth {
		return errors.BadArgument("encode", "nesting exceeds %d levels", c.maxDepth)
	}
	return checkLen("collection", count)
}

func checkLen(what string, n int) error {
	if uint64(n) > math.MaxUint32 {
		return errors.BadArgument("encode", "%s length %d exceeds 32 bits", what, n)
	}
	return nil
}

// Append appends the encoding of v to dst. On error dst is returned unchanged.
func (c *Codec) Append(dst []byte, v entities.Value) ([]byte, error) {
	if _, err := c.size(v, 0); err != nil {
		return dst, err
	}
	return appendValue(dst, v), nil
}

// AppendAll appends the encodings of vs to dst in order.
func (c *Codec) AppendAll(dst []byte, vs ...entities.Value) ([]byte, error) {
	if _, err := c.Size(vs...); err != nil {
		return dst, err
	}
	for _, v := range vs {
		dst = appendValue(dst, v)
	}
	return dst, nil
}

// appendValue encodes a value already checked by size.
func appendValue(dst []byte, v entities.Value) []byte {
	dst = append(dst, byte(v.Tag()))
	switch tv := v.(type) {
	case entities.Null:
	case entities.Bool:
		if tv {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case entities.Int:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(tv))
	case entities.Float:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(tv)))
	case entities.String:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(tv)))
		dst = append(dst, tv...)
	case entities.Bytes:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(tv)))
		dst = append(dst, tv...)
	case entities.DescriptorRef:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(tv))
	case entities.Array:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(tv)))
		for _, e := range tv {
			dst = appendValue(dst, e)
		}
	case entities.Table:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(tv)))
		for _, e := range tv {
			dst = appendValue(dst, e.Key)
			dst = appendValue(dst, e.Value)
		}
	}
	return dst
}
