// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package test

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockVariableValue(t *testing.T) {
	v := 1
	reset := MockVariableValue(&v, 2)
	assert.Equal(t, 2, v)
	reset()
	assert.Equal(t, 1, v)
}
