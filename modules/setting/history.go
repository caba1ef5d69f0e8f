// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import ini "gopkg.in/ini.v1"

// History settings
var History = struct {
	// SnapshotInterval is the number of diff entries after which a full snapshot is stored again
	SnapshotInterval int `ini:"SNAPSHOT_INTERVAL"`
	// OCCHistoryTail bounds how many entries are read to compute the changed fields of a stale update
	OCCHistoryTail int `ini:"OCC_HISTORY_TAIL"`
	// DescriptionDiff enables storing a rendered text diff of description changes
	DescriptionDiff bool `ini:"DESCRIPTION_DIFF"`
}{
	SnapshotInterval: 60,
	OCCHistoryTail:   50,
	DescriptionDiff:  true,
}

func loadHistoryFrom(cfg *ini.File) {
	mustMapSetting(cfg, "history", &History)
	if History.SnapshotInterval < 1 {
		History.SnapshotInterval = 1
	}
	if History.OCCHistoryTail < 1 {
		History.OCCHistoryTail = 1
	}
}
