// Copyright 2014 The Gogs Authors. All rights reserved.
// Copyright 2016 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Taiga keeps the agile work items of a project consistent: refs, derived closures,
// optimistic concurrency, history and notifications, and imports from other trackers.
package main

import (
	"os"
	"runtime"

	"github.com/taigaio/taiga-back-sub001/cmd"
	"github.com/taigaio/taiga-back-sub001/modules/log"

	// register supported doctor checks
	_ "github.com/taigaio/taiga-back-sub001/services/doctor"
)

// these flags will be set by the build flags
var (
	Version     = "development" // program version for this build
	Tags        = ""            // the Golang build tags
	MakeVersion = ""            // "make" program version if built with make
)

func main() {
	extra := " built with " + runtime.Version()
	if MakeVersion != "" {
		extra += ", " + MakeVersion
	}
	if Tags != "" {
		extra += " : " + Tags
	}
	app := cmd.NewMainApp(cmd.AppVersion{Version: Version, Extra: extra})
	_ = cmd.RunMainApp(app, os.Args...) // all errors should have been handled by the RunMainApp
	log.Info("Shutting down")
}
