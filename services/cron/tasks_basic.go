// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cron

import (
	"context"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	importer_model "github.com/taigaio/taiga-back-sub001/models/importer"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

func registerFailStaleImports() {
	RegisterTaskFatal("fail_stale_imports", &OlderThanConfig{
		BaseConfig: baseConfigFrom(setting.Cron.FailStaleImports),
		OlderThan:  setting.Cron.FailStaleImports.OlderThan,
	}, func(ctx context.Context, cfg Config) error {
		olderThan := cfg.(*OlderThanConfig).OlderThan
		n, err := importer_model.FailStaleJobs(ctx, timeutil.TimeStampNow().AddDuration(-olderThan))
		if err != nil {
			return err
		}
		if n > 0 {
			log.Warn("Marked %d stalled import jobs as failed", n)
		}
		return nil
	})
}

func registerCheckRefCounters() {
	cfg := baseConfigFrom(setting.Cron.CheckRefCounters)
	RegisterTaskFatal("check_ref_counters", &cfg, func(ctx context.Context, _ Config) error {
		return CheckRefCounters(ctx)
	})
}

// CheckRefCounters moves the ref counters of every project up to the highest ref in use
func CheckRefCounters(ctx context.Context) error {
	ids, err := project_model.GetProjectIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := agile_model.RebuildRefCounters(ctx, id); err != nil {
			return err
		}
	}
	log.Debug("Checked the ref counters of %d projects", len(ids))
	return nil
}

func initBasicTasks() {
	registerFailStaleImports()
	registerCheckRefCounters()
}
