// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"io"
	"os"

	"github.com/taigaio/taiga-back-sub001/modules/log"

	ini "gopkg.in/ini.v1"
)

// Log settings
var Log = struct {
	Level    log.Level
	Mode     string // console or json
	Colorize bool
	Caller   bool
	LogSQL   bool
}{
	Level: log.INFO,
	Mode:  "console",
}

func loadLogFrom(cfg *ini.File) {
	sec := cfg.Section("log")
	Log.Level = log.LevelFromString(sec.Key("LEVEL").MustString("info"))
	Log.Mode = sec.Key("MODE").In("console", []string{"console", "json"})
	Log.Colorize = sec.Key("COLORIZE").MustBool(false)
	Log.Caller = sec.Key("CALLER").MustBool(false)
}

// InitLogger applies the log settings to the logging backend
func InitLogger() {
	var out io.Writer = os.Stderr
	log.SetupDefault(out, log.WriterMode{
		Level:    Log.Level,
		Console:  Log.Mode == "console",
		Colorize: Log.Colorize,
		Caller:   Log.Caller,
	})
}
