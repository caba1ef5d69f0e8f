// Copyright 2018 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import ini "gopkg.in/ini.v1"

// Metrics settings
var Metrics = struct {
	Enabled bool   `ini:"ENABLED"`
	Token   string `ini:"TOKEN"`
}{
	Enabled: false,
}

func loadMetricsFrom(cfg *ini.File) {
	mustMapSetting(cfg, "metrics", &Metrics)
}
