// Copyright 2019 The Gitea Authors. All rights reserved.
// Copyright 2018 Jonas Franz. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

// Uploader uploads all the information of one project
type Uploader interface {
	MaxBatchInsertSize(tp string) int
	CreateProject(project *Project, opts ImportOptions) error
	CreateUsers(users ...*User) error
	CreateStatuses(statuses ...*Status) error
	CreateMilestones(milestones ...*Milestone) error
	CreateWorkItems(items ...*WorkItem) error
	CreateHistory(items ...*HistoryItem) error
	CreateAttachments(attachments ...*Attachment) error
	// Finish runs the reconciliation of the imported project
	Finish() error
	Rollback() error
	Close()
}
