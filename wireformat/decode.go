package wireformat

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
)

// DecodeValue decodes one value from the front of b and returns it with the
// number of bytes consumed. Malformed input is a protocol violation.
func (c *Codec) DecodeValue(b []byte) (entities.Value, int, error) {
	r := reader{buf: b, maxDepth: c.maxDepth}
	v, err := r.value(0)
	if err != nil {
		return nil, 0, err
	}
	return v, r.off, nil
}

// DecodeAll decodes exactly one value that must span all of b.
func (c *Codec) DecodeAll(b []byte) (entities.Value, error) {
	v, n, err := c.DecodeValue(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, errors.ProtocolViolation("decode", "%d trailing bytes after value", len(b)-n)
	}
	return v, nil
}

// DecodeSeq decodes values back to back until b is exhausted.
func (c *Codec) DecodeSeq(b []byte) ([]entities.Value, error) {
	var out []entities.Value
	for off := 0; off < len(b); {
		v, n, err := c.DecodeValue(b[off:])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		off += n
	}
	return out, nil
}

type reader struct {
	buf      []byte
	off      int
	maxDepth int
}

func (r *reader) fail(format string, args ...any) error {
	args = append([]any{r.off}, args...)
	return errors.ProtocolViolation("decode", "offset %d: "+format, args...)
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, r.fail("need %d bytes, have %d", n, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// count reads an element count and rejects counts the remaining input
// cannot hold, so a hostile count never drives a large allocation.
func (r *reader) count(minElem int) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minElem) > uint64(r.remaining()) {
		return 0, r.fail("count %d exceeds remaining %d bytes", n, r.remaining())
	}
	return int(n), nil
}

func (r *reader) value(depth int) (entities.Value, error) {
	tb, err := r.take(1)
	if err != nil {
		return nil, err
	}
	switch tag := entities.Tag(tb[0]); tag {
	case entities.TagNull:
		return entities.Null{}, nil
	case entities.TagBool:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return entities.Bool(false), nil
		case 1:
			return entities.Bool(true), nil
		default:
			return nil, r.fail("invalid bool byte 0x%02x", b[0])
		}
	case entities.TagInt:
		u, err := r.u64()
		if err != nil {
			return nil, err
		}
		return entities.Int(int64(u)), nil
	case entities.TagFloat:
		u, err := r.u64()
		if err != nil {
			return nil, err
		}
		return entities.Float(math.Float64frombits(u)), nil
	case entities.TagString:
		n, err := r.count(1)
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, r.fail("string is not valid UTF-8")
		}
		return entities.String(b), nil
	case entities.TagBytes:
		n, err := r.count(1)
		if err != nil {
			return nil, err
		}
		b, err := r.take(n)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, b)
		return entities.Bytes(out), nil
	case entities.TagDescriptor:
		u, err := r.u32()
		if err != nil {
			return nil, err
		}
		return entities.DescriptorRef(u), nil
	case entities.TagArray:
		if depth >= r.maxDepth {
			return nil, r.fail("nesting exceeds %d levels", r.maxDepth)
		}
		n, err := r.count(1)
		if err != nil {
			return nil, err
		}
		arr := make(entities.Array, 0, n)
		for i := 0; i < n; i++ {
			v, err := r.value(depth + 1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case entities.TagTable:
		if depth >= r.maxDepth {
			return nil, r.fail("nesting exceeds %d levels", r.maxDepth)
		}
		n, err := r.count(2)
		if err != nil {
			return nil, err
		}
		tbl := make(entities.Table, 0, n)
		for i := 0; i < n; i++ {
			k, err := r.value(depth + 1)
			if err != nil {
				return nil, err
			}
			v, err := r.value(depth + 1)
			if err != nil {
				return nil, err
			}
			tbl = append(tbl, entities.Entry{Key: k, Value: v})
		}
		return tbl, nil
	default:
		r.off--
		return nil, r.fail("unknown tag 0x%02x", byte(tag))
	}
}
