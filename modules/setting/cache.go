// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"time"

	ini "gopkg.in/ini.v1"
)

// CacheService settings of the in-process display name cache
var CacheService = struct {
	Enabled bool          `ini:"ENABLED"`
	Size    int           `ini:"SIZE"`
	TTL     time.Duration `ini:"ITEM_TTL"`
}{
	Enabled: true,
	Size:    10000,
	TTL:     5 * time.Minute,
}

func loadCacheFrom(cfg *ini.File) {
	mustMapSetting(cfg, "cache", &CacheService)
	if CacheService.Size <= 0 {
		CacheService.Size = 10000
	}
}
