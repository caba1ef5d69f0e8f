// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ini "gopkg.in/ini.v1"
)

// Importer settings
var Importer = struct {
	BatchSize            int
	RetryTimes           int
	RetryDelay           int // seconds
	MaxAttachmentWorkers int
	HTTPTimeout          time.Duration
	ClosedStatusGlobs    []glob.Glob
	JiraBaseURL          string
	JiraToken            string
	JiraUsername         string
	JiraPassword         string
	PivotalBaseURL       string
	PivotalToken         string
}{
	BatchSize:            1000,
	RetryTimes:           3,
	RetryDelay:           2,
	MaxAttachmentWorkers: 4,
	HTTPTimeout:          30 * time.Second,
	PivotalBaseURL:       "https://www.pivotaltracker.com/services/v5",
}

func loadImporterFrom(cfg *ini.File) error {
	sec := cfg.Section("importer")
	Importer.BatchSize = sec.Key("BATCH_SIZE").MustInt(1000)
	if Importer.BatchSize <= 0 || Importer.BatchSize > 1000 {
		Importer.BatchSize = 1000
	}
	Importer.RetryTimes = sec.Key("RETRY_TIMES").MustInt(3)
	Importer.RetryDelay = sec.Key("RETRY_DELAY").MustInt(2)
	Importer.MaxAttachmentWorkers = sec.Key("MAX_ATTACHMENT_WORKERS").MustInt(4)
	Importer.HTTPTimeout = sec.Key("HTTP_TIMEOUT").MustDuration(30 * time.Second)
	Importer.JiraBaseURL = sec.Key("JIRA_BASE_URL").String()
	Importer.JiraToken = sec.Key("JIRA_TOKEN").String()
	Importer.JiraUsername = sec.Key("JIRA_USERNAME").String()
	Importer.JiraPassword = sec.Key("JIRA_PASSWORD").String()
	Importer.PivotalBaseURL = sec.Key("PIVOTAL_BASE_URL").MustString(Importer.PivotalBaseURL)
	Importer.PivotalToken = sec.Key("PIVOTAL_TOKEN").String()

	Importer.ClosedStatusGlobs = Importer.ClosedStatusGlobs[:0]
	for _, pattern := range strings.Split(sec.Key("CLOSED_STATUS_GLOBS").String(), ",") {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid importer.CLOSED_STATUS_GLOBS pattern %q: %w", pattern, err)
		}
		Importer.ClosedStatusGlobs = append(Importer.ClosedStatusGlobs, g)
	}
	return nil
}

// IsClosedStatusName reports whether a foreign status name matches CLOSED_STATUS_GLOBS, which is empty unless configured
func IsClosedStatusName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, g := range Importer.ClosedStatusGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
