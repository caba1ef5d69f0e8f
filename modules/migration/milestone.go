// Copyright 2019 The Gitea Authors. All rights reserved.
// Copyright 2018 Jonas Franz. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import "time"

// Milestone defines a standard sprint of a foreign project
type Milestone struct {
	ExternalID      string     `json:"external_id" yaml:"external_id"`
	Name            string     `json:"name" yaml:"name"`
	EstimatedStart  *time.Time `json:"estimated_start" yaml:"estimated_start"`
	EstimatedFinish *time.Time `json:"estimated_finish" yaml:"estimated_finish"`
	Created         time.Time  `json:"created" yaml:"created"`
	Updated         *time.Time `json:"updated" yaml:"updated"`
	Closed          bool       `json:"closed" yaml:"closed"`
}
