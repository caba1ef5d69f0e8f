// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package test

import (
	"net/http/httptest"
	"testing"

	"github.com/taigaio/taiga-back-sub001/modules/json"

	"github.com/stretchr/testify/require"
)

// MockVariableValue sets a variable for the length of a test, the returned func restores it
func MockVariableValue[T any](p *T, v ...T) (reset func()) {
	old := *p
	if len(v) > 0 {
		*p = v[0]
	}
	return func() { *p = old }
}

// DecodeJSON decodes the body of a recorded response
func DecodeJSON(t testing.TB, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v), "body: %s", resp.Body.String())
}
