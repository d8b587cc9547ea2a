package ocsafe

import (
	"math"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
)

// StringAt extracts the string result at index i.
func StringAt(results []entities.Value, i int) (string, bool) {
	if i < 0 || i >= len(results) {
		return "", false
	}
	s, ok := results[i].(entities.String)
	return string(s), ok
}

// IntAt extracts the integer result at index i.
// Floats with no fractional part are accepted, as hosts often return numbers as floats.
func IntAt(results []entities.Value, i int) (int64, bool) {
	if i < 0 || i >= len(results) {
		return 0, false
	}
	switch n := results[i].(type) {
	case entities.Int:
		return int64(n), true
	case entities.Float:
		if v := float64(n); v >= math.MinInt64 && v < math.MaxInt64 && v == math.Trunc(v) {
			return int64(v), true
		}
	}
	return 0, false
}

// FloatAt extracts the numeric result at index i as a float64.
func FloatAt(results []entities.Value, i int) (float64, bool) {
	if i < 0 || i >= len(results) {
		return 0, false
	}
	switch n := results[i].(type) {
	case entities.Float:
		return float64(n), true
	case entities.Int:
		return float64(n), true
	default:
		return 0, false
	}
}

// BoolAt extracts the bool result at index i.
func BoolAt(results []entities.Value, i int) (bool, bool) {
	if i < 0 || i >= len(results) {
		return false, false
	}
	b, ok := results[i].(entities.Bool)
	return bool(b), ok
}

// BytesAt extracts the byte string result at index i.
func BytesAt(results []entities.Value, i int) ([]byte, bool) {
	if i < 0 || i >= len(results) {
		return nil, false
	}
	b, ok := results[i].(entities.Bytes)
	return []byte(b), ok
}

// MustStringAt extracts a string result or returns a protocol violation.
// Use this when the method is documented to return a string there.
func MustStringAt(results []entities.Value, i int) (string, error) {
	s, ok := StringAt(results, i)
	if !ok {
		return "", errors.ProtocolViolation("result", "result %d is missing or not a string", i)
	}
	return s, nil
}

// MustIntAt extracts an integer result or returns a protocol violation.
func MustIntAt(results []entities.Value, i int) (int64, error) {
	n, ok := IntAt(results, i)
	if !ok {
		return 0, errors.ProtocolViolation("result", "result %d is missing or not an integer", i)
	}
	return n, nil
}

// MustBoolAt extracts a bool result or returns a protocol violation.
func MustBoolAt(results []entities.Value, i int) (bool, error) {
	b, ok := BoolAt(results, i)
	if !ok {
		return false, errors.ProtocolViolation("result", "result %d is missing or not a boolean", i)
	}
	return b, nil
}

// IntAtDefault extracts an integer result with a default.
func IntAtDefault(results []entities.Value, i int, defaultValue int64) int64 {
	n, ok := IntAt(results, i)
	if !ok {
		return defaultValue
	}
	return n
}
