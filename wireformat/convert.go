package wireformat

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
)

// ValueOf converts a plain Go value to a Value. It accepts Values, nil,
// booleans, integers that fit in 64 signed bits, floats, strings, byte
// slices, slices of any of these and maps keyed by strings or by any
// convertible type. Map entries are emitted in sorted key order.
func ValueOf(v any) (entities.Value, error) {
	switch tv := v.(type) {
	case entities.Value:
		return tv, nil
	case nil:
		return entities.Null{}, nil
	case bool:
		return entities.Bool(tv), nil
	case int:
		return entities.Int(tv), nil
	case int8:
		return entities.Int(tv), nil
	case int16:
		return entities.Int(tv), nil
	case int32:
		return entities.Int(tv), nil
	case int64:
		return entities.Int(tv), nil
	case uint8:
		return entities.Int(tv), nil
	case uint16:
		return entities.Int(tv), nil
	case uint32:
		return entities.Int(tv), nil
	case uint:
		return uintValue(uint64(tv))
	case uint64:
		return uintValue(tv)
	case float32:
		return entities.Float(tv), nil
	case float64:
		return entities.Float(tv), nil
	case string:
		return entities.String(tv), nil
	case []byte:
		return entities.Bytes(tv), nil
	case []entities.Value:
		return entities.Array(tv), nil
	case []any:
		arr := make(entities.Array, 0, len(tv))
		for i, e := range tv {
			ev, err := ValueOf(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr = append(arr, ev)
		}
		return arr, nil
	case []string:
		arr := make(entities.Array, len(tv))
		for i, e := range tv {
			arr[i] = entities.String(e)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		tbl := make(entities.Table, 0, len(tv))
		for _, k := range keys {
			ev, err := ValueOf(tv[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			tbl = append(tbl, entities.Entry{Key: entities.String(k), Value: ev})
		}
		return tbl, nil
	case map[any]any:
		keys := make([]any, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		slices.SortStableFunc(keys, func(a, b any) int {
			return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		})
		tbl := make(entities.Table, 0, len(tv))
		for _, k := range keys {
			kv, err := ValueOf(k)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			ev, err := ValueOf(tv[k])
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			tbl = append(tbl, entities.Entry{Key: kv, Value: ev})
		}
		return tbl, nil
	default:
		return nil, errors.BadArgument("convert", "unsupported type %T", v)
	}
}

func uintValue(u uint64) (entities.Value, error) {
	if u > math.MaxInt64 {
		return nil, errors.BadArgument("convert", "integer %d overflows int64", u)
	}
	return entities.Int(int64(u)), nil
}

// ValuesOf converts each argument with ValueOf.
func ValuesOf(vs ...any) ([]entities.Value, error) {
	out := make([]entities.Value, 0, len(vs))
	for i, v := range vs {
		ev, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// ToAny converts a Value back to plain Go types: nil, bool, int64, float64,
// string, []byte, []any, and map[string]any for tables whose keys are all
// strings (map[any]any otherwise, with unhashable keys rendered as strings).
// Descriptor references become entities.DescriptorRef.
func ToAny(v entities.Value) any {
	switch tv := v.(type) {
	case nil, entities.Null:
		return nil
	case entities.Bool:
		return bool(tv)
	case entities.Int:
		return int64(tv)
	case entities.Float:
		return float64(tv)
	case entities.String:
		return string(tv)
	case entities.Bytes:
		return []byte(tv)
	case entities.DescriptorRef:
		return tv
	case entities.Array:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = ToAny(e)
		}
		return out
	case entities.Table:
		if m, ok := stringKeyed(tv); ok {
			return m
		}
		out := make(map[any]any, len(tv))
		for _, e := range tv {
			k := ToAny(e.Key)
			switch k.(type) {
			case []any, []byte, map[string]any, map[any]any:
				k = fmt.Sprint(k)
			}
			out[k] = ToAny(e.Value)
		}
		return out
	default:
		return fmt.Sprint(v)
	}
}

func stringKeyed(t entities.Table) (map[string]any, bool) {
	out := make(map[string]any, len(t))
	for _, e := range t {
		k, ok := e.Key.(entities.String)
		if !ok {
			return nil, false
		}
		out[string(k)] = ToAny(e.Value)
	}
	return out, true
}
