// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package watch_test

import (
	"testing"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	"github.com/taigaio/taiga-back-sub001/models/watch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func TestCreateOrUpdateWatchMode(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	kind := project_model.KindUserStory

	require.NoError(t, watch.CreateOrUpdateWatchMode(ctx, 1, 1, kind, 10, watch.ModeAuto))
	require.NoError(t, watch.CreateOrUpdateWatchMode(ctx, 2, 1, kind, 10, watch.ModeNormal))
	require.NoError(t, watch.CreateOrUpdateWatchMode(ctx, 3, 1, kind, 10, watch.ModeDont))
	// an explicit unwatch survives the automatic watch
	require.NoError(t, watch.CreateOrUpdateWatchMode(ctx, 3, 1, kind, 10, watch.ModeAuto))
	// the ghost user never watches
	require.NoError(t, watch.CreateOrUpdateWatchMode(ctx, -1, 1, kind, 10, watch.ModeNormal))

	ids, err := watch.GetWatchers(ctx, kind, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	ids, err = watch.GetExplicitWatchers(ctx, kind, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	ok, err := watch.IsWatching(ctx, 3, kind, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, watch.CreateOrUpdateWatchMode(ctx, 2, 1, kind, 10, watch.ModeNone))
	ok, err = watch.IsWatching(ctx, 2, kind, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	// watches are keyed by kind
	ids, err = watch.GetWatchers(ctx, project_model.KindTask, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, watch.DeleteProjectWatches(ctx, 1))
	ids, err = watch.GetWatchers(ctx, kind, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
