// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

// NullUploader implements a blank uploader
type NullUploader struct{}

var _ Uploader = &NullUploader{}

func (g *NullUploader) MaxBatchInsertSize(tp string) int {
	return 0
}

func (g *NullUploader) CreateProject(project *Project, opts ImportOptions) error {
	return nil
}

func (g *NullUploader) CreateUsers(users ...*User) error {
	return nil
}

func (g *NullUploader) CreateStatuses(statuses ...*Status) error {
	return nil
}

func (g *NullUploader) CreateMilestones(milestones ...*Milestone) error {
	return nil
}

func (g *NullUploader) CreateWorkItems(items ...*WorkItem) error {
	return nil
}

func (g *NullUploader) CreateHistory(items ...*HistoryItem) error {
	return nil
}

func (g *NullUploader) CreateAttachments(attachments ...*Attachment) error {
	return nil
}

func (g *NullUploader) Finish() error {
	return nil
}

func (g *NullUploader) Rollback() error {
	return nil
}

func (g *NullUploader) Close() {}
