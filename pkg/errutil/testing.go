// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails t unless err carries the oops code want.
func AssertErrorCode(t testing.TB, err error, want string) {
	t.Helper()
	require.Error(t, err)
	_, isOops := oops.AsOops(err)
	require.Truef(t, isOops, "want oops error with code %q, got %T: %v", want, err, err)
	assert.Equal(t, want, Code(err))
}

// AssertErrorContext fails t unless err carries key=value in its oops context.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, isOops := oops.AsOops(err)
	require.Truef(t, isOops, "want oops error with %s, got %T: %v", key, err, err)
	got, present := oopsErr.Context()[key]
	require.Truef(t, present, "context has no %q", key)
	assert.Equal(t, value, got)
}
