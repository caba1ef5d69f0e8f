// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package importer_test

import (
	"errors"
	"testing"
	"time"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/models/importer"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func TestJobLifecycle(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	job, err := importer.CreateJob(ctx, "jira", 1, map[string]string{"project": "DEMO"})
	require.NoError(t, err)
	assert.Equal(t, importer.JobStatusQueued, job.Status)

	require.NoError(t, importer.MarkRunning(ctx, job))
	assert.Error(t, importer.MarkRunning(ctx, job))

	require.NoError(t, importer.ReportProgress(ctx, job, 40))
	require.NoError(t, importer.ReportProgress(ctx, job, 20))
	got, err := importer.GetJobByUUID(ctx, job.UUID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "DEMO", got.Options["project"])

	require.NoError(t, importer.MarkFinished(ctx, job))
	got, err = importer.GetJobByUUID(ctx, job.UUID)
	require.NoError(t, err)
	assert.True(t, got.Status.IsDone())
	assert.Equal(t, 100, got.Progress)
}

func TestFailStaleJobs(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	stale, err := importer.CreateJob(ctx, "pivotal", 1, nil)
	require.NoError(t, err)
	fresh, err := importer.CreateJob(ctx, "jira", 1, nil)
	require.NoError(t, err)
	done, err := importer.CreateJob(ctx, "file", 1, nil)
	require.NoError(t, err)
	require.NoError(t, importer.MarkFailed(ctx, done, errors.New("boom")))

	longAgo := timeutil.TimeStampNow().AddDuration(-7 * time.Hour)
	_, err = db.Exec(ctx, "UPDATE import_job SET updated_unix = ? WHERE id IN (?, ?)", int64(longAgo), stale.ID, done.ID)
	require.NoError(t, err)

	n, err := importer.FailStaleJobs(ctx, timeutil.TimeStampNow().AddDuration(-6*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := importer.GetJobByUUID(ctx, stale.UUID)
	require.NoError(t, err)
	assert.Equal(t, importer.JobStatusFailed, got.Status)
	assert.Equal(t, "import stalled", got.Error)
	got, err = importer.GetJobByUUID(ctx, fresh.UUID)
	require.NoError(t, err)
	assert.Equal(t, importer.JobStatusQueued, got.Status)
	got, err = importer.GetJobByUUID(ctx, done.UUID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.Error)
}
