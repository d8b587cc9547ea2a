// Package testutil provides common test utilities and assertions for ocsafe tests.
package testutil

import (
	"testing"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireKind fails the test unless err carries the given boundary error kind.
func RequireKind(t *testing.T, err error, kind errors.Kind, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	require.Equal(t, kind, errors.KindOf(err), msgAndArgs...)
}

// AssertValuesEqual compares value lists with entities.Equal, so tables
// match regardless of entry order.
func AssertValuesEqual(t *testing.T, expected, actual []entities.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	ok := true
	for i := range expected {
		if !entities.Equal(expected[i], actual[i]) {
			ok = assert.Fail(t, "values differ", "index %d: expected %#v, got %#v", i, expected[i], actual[i])
		}
	}
	return ok
}
