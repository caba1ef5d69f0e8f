// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package occ

import (
	"testing"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldName(t *testing.T) {
	assert.Equal(t, "status", FieldName("status_id"))
	assert.Equal(t, "status", FieldName(" Status "))
	assert.Equal(t, "id", FieldName("id"))
	assert.Equal(t, "user_story", FieldName("user_story_id"))
}

func TestNormalizePatch(t *testing.T) {
	patch, err := NormalizePatch(map[string]any{"status_id": 3, "subject": "s"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": 3, "subject": "s"}, patch)

	for _, key := range []string{"version", "ref", "is_closed", "finish_date", "finished_date", "owner_id", "project"} {
		_, err := NormalizePatch(map[string]any{key: 1})
		assert.True(t, agile_model.IsErrReadonlyField(err), key)
	}

	_, err = NormalizePatch(map[string]any{"status": 1, "status_id": 2})
	assert.True(t, agile_model.IsErrValidation(err))
}
