// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package importer

import (
	"context"
	"fmt"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"github.com/google/uuid"
)

// JobStatus is the state of an import job
type JobStatus int

const (
	JobStatusQueued JobStatus = iota + 1
	JobStatusRunning
	JobStatusFinished
	JobStatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusQueued:
		return "queued"
	case JobStatusRunning:
		return "running"
	case JobStatusFinished:
		return "finished"
	case JobStatusFailed:
		return "failed"
	}
	return fmt.Sprintf("JobStatus(%d)", int(s))
}

// IsDone reports whether the job will not change anymore
func (s JobStatus) IsDone() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

// Job tracks a long running project import
type Job struct {
	ID        int64     `xorm:"pk autoincr"`
	UUID      string    `xorm:"uuid UNIQUE NOT NULL"`
	Source    string    `xorm:"VARCHAR(32) NOT NULL"`
	OwnerID   int64     `xorm:"INDEX"`
	ProjectID int64     `xorm:"INDEX"`
	Status    JobStatus `xorm:"INDEX NOT NULL"`
	// Progress is a percentage
	Progress int    `xorm:"NOT NULL DEFAULT 0"`
	Error    string `xorm:"TEXT"`
	// Options are the downloader options without credentials
	Options map[string]string `xorm:"JSON TEXT"`

	CreatedUnix  timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix  timeutil.TimeStamp `xorm:"INDEX updated"`
	FinishedUnix timeutil.TimeStamp
}

// TableName keeps the job table name readable
func (*Job) TableName() string {
	return "import_job"
}

func init() {
	db.RegisterModel(new(Job))
}

// CreateJob queues a new job
func CreateJob(ctx context.Context, source string, ownerID int64, options map[string]string) (*Job, error) {
	if source == "" {
		return nil, util.NewInvalidArgumentErrorf("import source is empty")
	}
	job := &Job{
		UUID:    uuid.NewString(),
		Source:  source,
		OwnerID: ownerID,
		Status:  JobStatusQueued,
		Options: options,
	}
	return job, db.Insert(ctx, job)
}

// GetJobByUUID returns the job with the given uuid
func GetJobByUUID(ctx context.Context, id string) (*Job, error) {
	job := &Job{UUID: id}
	has, err := db.GetEngine(ctx).Get(job)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, util.NewNotExistErrorf("import job does not exist [uuid: %s]", id)
	}
	return job, nil
}

// MarkRunning moves a queued job to running
func MarkRunning(ctx context.Context, job *Job) error {
	affected, err := db.GetEngine(ctx).Where("id=? AND status=?", job.ID, int(JobStatusQueued)).
		Cols("status").Update(&Job{Status: JobStatusRunning})
	if err != nil {
		return err
	} else if affected == 0 {
		return util.NewInvalidArgumentErrorf("import job %s is not queued", job.UUID)
	}
	job.Status = JobStatusRunning
	return nil
}

// SetProject records the project the job materializes into
func SetProject(ctx context.Context, job *Job, projectID int64) error {
	job.ProjectID = projectID
	_, err := db.GetEngine(ctx).ID(job.ID).Cols("project_id").Update(job)
	return err
}

// ReportProgress moves the progress of a running job forward
func ReportProgress(ctx context.Context, job *Job, pct int) error {
	pct = min(max(pct, 0), 100)
	if pct <= job.Progress {
		return nil
	}
	job.Progress = pct
	_, err := db.GetEngine(ctx).Where("id=? AND progress<?", job.ID, pct).Cols("progress").Update(job)
	return err
}

// MarkFinished completes the job
func MarkFinished(ctx context.Context, job *Job) error {
	job.Status = JobStatusFinished
	job.Progress = 100
	job.FinishedUnix = timeutil.TimeStampNow()
	_, err := db.GetEngine(ctx).ID(job.ID).Cols("status", "progress", "finished_unix").Update(job)
	return err
}

// MarkFailed fails the job with the given cause
func MarkFailed(ctx context.Context, job *Job, cause error) error {
	job.Status = JobStatusFailed
	job.Error = cause.Error()
	job.FinishedUnix = timeutil.TimeStampNow()
	_, err := db.GetEngine(ctx).ID(job.ID).Cols("status", "error", "finished_unix").Update(job)
	return err
}

// FailStaleJobs fails the unfinished jobs not updated since olderThan, it returns how many were failed
func FailStaleJobs(ctx context.Context, olderThan timeutil.TimeStamp) (int64, error) {
	return db.GetEngine(ctx).
		Where("status IN (?, ?) AND updated_unix < ?", int(JobStatusQueued), int(JobStatusRunning), int64(olderThan)).
		Cols("status", "error", "finished_unix").
		Update(&Job{Status: JobStatusFailed, Error: "import stalled", FinishedUnix: timeutil.TimeStampNow()})
}
