// Copyright 2019 Gitea. All rights reserved.
// SPDX-License-Identifier: MIT

package task

import (
	"context"
	"fmt"
	"runtime/debug"

	importer_model "github.com/taigaio/taiga-back-sub001/models/importer"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/services/migrations"
)

func runImportJob(ctx context.Context, job *importer_model.Job) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("PANIC whilst trying to run import job: %v", e)
			log.Critical("PANIC during runImportJob[%s] for OwnerID[%d]: %v\nStacktrace: %s", job.UUID, job.OwnerID, e, debug.Stack())
		}
		credentials.Delete(job.UUID)
		if err == nil {
			return
		}
		if failErr := importer_model.MarkFailed(ctx, job, err); failErr != nil {
			log.Error("MarkFailed[%s] failed: %v", job.UUID, failErr)
		}
	}()

	if job.Status.IsDone() {
		return nil
	}

	doer, err := user_model.GetUserByID(ctx, job.OwnerID)
	if err != nil {
		return err
	}
	opts, err := migrations.OptionsFromMap(job.Options)
	if err != nil {
		return err
	}
	if c, ok := credentials.Load(job.UUID); ok {
		creds := c.(jobCredentials)
		opts.AuthToken, opts.AuthUsername, opts.AuthPassword = creds.token, creds.username, creds.password
	}

	if err = importer_model.MarkRunning(ctx, job); err != nil {
		return err
	}
	log.Info("Import job %s started: %s for user %d", job.UUID, opts.Source, doer.ID)

	project, err := migrations.ImportProject(ctx, doer, opts, func(pct int) {
		if err := importer_model.ReportProgress(ctx, job, pct); err != nil {
			log.Error("ReportProgress[%s]: %v", job.UUID, err)
		}
	})
	if err != nil {
		if base.IsErrSourceUnauthorized(err) {
			return fmt.Errorf("authentication failed: %w", err)
		}
		return fmt.Errorf("import failed: %w", err)
	}

	if err = importer_model.SetProject(ctx, job, project.ID); err != nil {
		return err
	}
	if err = importer_model.MarkFinished(ctx, job); err != nil {
		return err
	}
	log.Info("Import job %s finished: project %d (%s)", job.UUID, project.ID, project.Slug)
	return nil
}
