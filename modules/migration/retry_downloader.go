// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import (
	"context"
	"errors"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/util"
)

var _ Downloader = &RetryDownloader{}

// RetryDownloader retry the downloads
type RetryDownloader struct {
	Downloader
	RetryTimes int // the total execute times
	RetryDelay int // time to delay seconds
}

// NewRetryDownloader creates a retry downloader
func NewRetryDownloader(downloader Downloader, retryTimes, retryDelay int) *RetryDownloader {
	return &RetryDownloader{
		Downloader: downloader,
		RetryTimes: retryTimes,
		RetryDelay: retryDelay,
	}
}

func (d *RetryDownloader) retry(ctx context.Context, work func(context.Context) error) error {
	var (
		times = d.RetryTimes
		err   error
	)
	for ; times > 0; times-- {
		if err = work(ctx); err == nil {
			return nil
		}
		if IsErrNotSupported(err) || IsErrSourceUnauthorized(err) || errors.Is(err, util.ErrInvalidArgument) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second * time.Duration(d.RetryDelay)):
		}
	}
	return err
}

// GetProject returns the project information with retry
func (d *RetryDownloader) GetProject(ctx context.Context) (*Project, error) {
	var (
		project *Project
		err     error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		project, err = d.Downloader.GetProject(ctx)
		return err
	})

	return project, err
}

// GetUsers returns the accounts of the source with retry
func (d *RetryDownloader) GetUsers(ctx context.Context) ([]*User, error) {
	var (
		users []*User
		err   error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		users, err = d.Downloader.GetUsers(ctx)
		return err
	})

	return users, err
}

// GetStatuses returns the workflow statuses with retry
func (d *RetryDownloader) GetStatuses(ctx context.Context) ([]*Status, error) {
	var (
		statuses []*Status
		err      error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		statuses, err = d.Downloader.GetStatuses(ctx)
		return err
	})

	return statuses, err
}

// GetMilestones returns the sprints with retry
func (d *RetryDownloader) GetMilestones(ctx context.Context) ([]*Milestone, error) {
	var (
		milestones []*Milestone
		err        error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		milestones, err = d.Downloader.GetMilestones(ctx)
		return err
	})

	return milestones, err
}

// GetWorkItems returns a page of work items with retry
func (d *RetryDownloader) GetWorkItems(ctx context.Context, page, perPage int) ([]*WorkItem, bool, error) {
	var (
		items []*WorkItem
		isEnd bool
		err   error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		items, isEnd, err = d.Downloader.GetWorkItems(ctx, page, perPage)
		return err
	})

	return items, isEnd, err
}

// GetHistory returns the comments and change log of an item with retry
func (d *RetryDownloader) GetHistory(ctx context.Context, item *WorkItem) ([]*HistoryItem, error) {
	var (
		history []*HistoryItem
		err     error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		history, err = d.Downloader.GetHistory(ctx, item)
		return err
	})

	return history, err
}

// GetAttachments returns the files of an item with retry
func (d *RetryDownloader) GetAttachments(ctx context.Context, item *WorkItem) ([]*Attachment, error) {
	var (
		attachments []*Attachment
		err         error
	)

	err = d.retry(ctx, func(ctx context.Context) error {
		attachments, err = d.Downloader.GetAttachments(ctx, item)
		return err
	})

	return attachments, err
}
