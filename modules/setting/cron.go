// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"time"

	ini "gopkg.in/ini.v1"
)

// CronTask is the configuration of a scheduled task
type CronTask struct {
	Enabled    bool          `ini:"ENABLED"`
	RunAtStart bool          `ini:"RUN_AT_START"`
	Schedule   string        `ini:"SCHEDULE"`
	OlderThan  time.Duration `ini:"OLDER_THAN"`
}

// Cron settings
var Cron = struct {
	FailStaleImports CronTask
	CheckRefCounters CronTask
}{
	FailStaleImports: CronTask{Enabled: true, Schedule: "@every 10m", OlderThan: 6 * time.Hour},
	CheckRefCounters: CronTask{Enabled: false, Schedule: "@midnight"},
}

func loadCronFrom(cfg *ini.File) {
	mustMapSetting(cfg, "cron.fail_stale_imports", &Cron.FailStaleImports)
	mustMapSetting(cfg, "cron.check_ref_counters", &Cron.CheckRefCounters)
}
