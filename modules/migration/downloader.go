// Copyright 2019 The Gitea Authors. All rights reserved.
// Copyright 2018 Jonas Franz. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import "context"

// Downloader downloads the site repo information
type Downloader interface {
	GetProject(ctx context.Context) (*Project, error)
	GetUsers(ctx context.Context) ([]*User, error)
	GetStatuses(ctx context.Context) ([]*Status, error)
	GetMilestones(ctx context.Context) ([]*Milestone, error)
	// GetWorkItems returns the items page by page, an epic comes before its user stories and a user story before its tasks
	GetWorkItems(ctx context.Context, page, perPage int) ([]*WorkItem, bool, error)
	GetHistory(ctx context.Context, item *WorkItem) ([]*HistoryItem, error)
	GetAttachments(ctx context.Context, item *WorkItem) ([]*Attachment, error)
}

// DownloaderFactory defines an interface to match a downloader implementation and create a downloader
type DownloaderFactory interface {
	New(ctx context.Context, opts ImportOptions) (Downloader, error)
	Source() string
}

// NullDownloader implements a blank downloader
type NullDownloader struct{}

var _ Downloader = &NullDownloader{}

// GetProject returns the project information
func (n NullDownloader) GetProject(_ context.Context) (*Project, error) {
	return nil, ErrNotSupported{Entity: "Project"}
}

// GetUsers returns the accounts of the source
func (n NullDownloader) GetUsers(_ context.Context) ([]*User, error) {
	return nil, ErrNotSupported{Entity: "Users"}
}

// GetStatuses returns the workflow statuses
func (n NullDownloader) GetStatuses(_ context.Context) ([]*Status, error) {
	return nil, ErrNotSupported{Entity: "Statuses"}
}

// GetMilestones returns the sprints
func (n NullDownloader) GetMilestones(_ context.Context) ([]*Milestone, error) {
	return nil, ErrNotSupported{Entity: "Milestones"}
}

// GetWorkItems returns a page of work items
func (n NullDownloader) GetWorkItems(_ context.Context, _, _ int) ([]*WorkItem, bool, error) {
	return nil, false, ErrNotSupported{Entity: "WorkItems"}
}

// GetHistory returns the comments and change log of an item
func (n NullDownloader) GetHistory(_ context.Context, _ *WorkItem) ([]*HistoryItem, error) {
	return nil, ErrNotSupported{Entity: "History"}
}

// GetAttachments returns the files of an item
func (n NullDownloader) GetAttachments(_ context.Context, _ *WorkItem) ([]*Attachment, error) {
	return nil, ErrNotSupported{Entity: "Attachments"}
}
