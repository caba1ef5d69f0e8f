// Copyright 2019 Gitea. All rights reserved.
// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"sync"
	"time"

	importer_model "github.com/taigaio/taiga-back-sub001/models/importer"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/queue"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/services/migrations"
)

// taskQueue is a global queue of import job uuids
var taskQueue *queue.WorkerPoolQueue[string]

// credentials keeps the secrets of queued jobs in memory, they are never stored with the job
var credentials sync.Map

type jobCredentials struct {
	token, username, password string
}

// Init will start the service running the queued import jobs
func Init(ctx context.Context) error {
	if taskQueue != nil {
		return nil
	}
	var err error
	taskQueue, err = queue.NewWorkerPoolQueueWithContext(ctx, "import", setting.GetQueueSettings("import"), func(items ...string) []string {
		for _, jobUUID := range items {
			if err := Run(ctx, jobUUID); err != nil {
				log.Error("Run import job %s failed: %v", jobUUID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	go taskQueue.Run()
	return nil
}

// Shutdown waits for the running imports to end
func Shutdown(timeout time.Duration) {
	if taskQueue != nil {
		taskQueue.ShutdownWait(timeout)
		taskQueue = nil
	}
}

// SubmitImport records an import job and queues it, the job tracks the progress of the import
func SubmitImport(ctx context.Context, ownerID int64, opts base.ImportOptions) (*importer_model.Job, error) {
	opts.OwnerID = ownerID
	job, err := importer_model.CreateJob(ctx, opts.Source, ownerID, migrations.OptionsToMap(opts))
	if err != nil {
		return nil, err
	}
	if opts.AuthToken != "" || opts.AuthUsername != "" {
		credentials.Store(job.UUID, jobCredentials{token: opts.AuthToken, username: opts.AuthUsername, password: opts.AuthPassword})
	}
	if taskQueue == nil {
		// without a queue the import runs in the background of this process
		go func() {
			if err := Run(context.WithoutCancel(ctx), job.UUID); err != nil {
				log.Error("Run import job %s failed: %v", job.UUID, err)
			}
		}()
		return job, nil
	}
	if err := taskQueue.Push(job.UUID); err != nil {
		credentials.Delete(job.UUID)
		return nil, err
	}
	return job, nil
}

// Run runs a queued import job
func Run(ctx context.Context, jobUUID string) error {
	job, err := importer_model.GetJobByUUID(ctx, jobUUID)
	if err != nil {
		return err
	}
	return runImportJob(ctx, job)
}
