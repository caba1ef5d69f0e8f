// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"gopkg.in/yaml.v3"
)

var (
	_ base.Downloader        = &FileDownloader{}
	_ base.DownloaderFactory = &FileDownloaderFactory{}
)

func init() {
	RegisterDownloaderFactory(&FileDownloaderFactory{})
}

// FileDownloaderFactory defines a downloader factory reading project dumps
type FileDownloaderFactory struct{}

// New returns a Downloader related to this factory according to ImportOptions
func (f *FileDownloaderFactory) New(_ context.Context, opts base.ImportOptions) (base.Downloader, error) {
	if opts.FilePath == "" {
		return nil, util.NewInvalidArgumentErrorf("dump file path is empty")
	}
	return NewFileDownloader(opts.FilePath)
}

// Source returns the source served by this factory
func (f *FileDownloaderFactory) Source() string {
	return base.SourceFile
}

// projectDump is the layout of a dump file, YAML and JSON dumps share it
type projectDump struct {
	Project     *base.Project       `json:"project" yaml:"project"`
	Users       []*base.User        `json:"users" yaml:"users"`
	Statuses    []*base.Status      `json:"statuses" yaml:"statuses"`
	Milestones  []*base.Milestone   `json:"milestones" yaml:"milestones"`
	WorkItems   []*base.WorkItem    `json:"work_items" yaml:"work_items"`
	History     []*base.HistoryItem `json:"history" yaml:"history"`
	Attachments []*base.Attachment  `json:"attachments" yaml:"attachments"`
}

// FileDownloader reads a project from a dump file. Attachments without url scheme are
// paths relative to the directory of the dump.
type FileDownloader struct {
	base.NullDownloader
	path string
	dir  string
	dump projectDump
}

// NewFileDownloader parses the dump at path, the format follows the extension
func NewFileDownloader(path string) (*FileDownloader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := &FileDownloader{path: path, dir: filepath.Dir(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.NewDecoder(f).Decode(&d.dump)
	case ".json":
		err = json.NewDecoder(f).Decode(&d.dump)
	default:
		return nil, util.NewInvalidArgumentErrorf("unsupported dump format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse dump %s: %w", path, err)
	}
	if d.dump.Project == nil {
		return nil, util.NewInvalidArgumentErrorf("dump %s has no project", path)
	}
	d.orderItems()
	log.Trace("Read dump %s: %d items, %d history entries, %d attachments", path, len(d.dump.WorkItems), len(d.dump.History), len(d.dump.Attachments))
	return d, nil
}

// orderItems puts epics first, then user stories, then tasks and issues, keeping the dump order otherwise
func (d *FileDownloader) orderItems() {
	rank := map[string]int{base.KindEpic: 0, base.KindUserStory: 1, base.KindTask: 2, base.KindIssue: 3}
	slices.SortStableFunc(d.dump.WorkItems, func(a, b *base.WorkItem) int {
		return rank[a.Kind] - rank[b.Kind]
	})
}

// String implements Stringer
func (d *FileDownloader) String() string {
	return "import from dump " + d.path
}

// GetProject returns the project information
func (d *FileDownloader) GetProject(_ context.Context) (*base.Project, error) {
	return d.dump.Project, nil
}

// GetUsers returns the accounts of the dump
func (d *FileDownloader) GetUsers(_ context.Context) ([]*base.User, error) {
	return d.dump.Users, nil
}

// GetStatuses returns the statuses of the dump
func (d *FileDownloader) GetStatuses(_ context.Context) ([]*base.Status, error) {
	return d.dump.Statuses, nil
}

// GetMilestones returns the milestones of the dump
func (d *FileDownloader) GetMilestones(_ context.Context) ([]*base.Milestone, error) {
	return d.dump.Milestones, nil
}

// GetWorkItems returns a page of the items, pages start at 1
func (d *FileDownloader) GetWorkItems(_ context.Context, page, perPage int) ([]*base.WorkItem, bool, error) {
	if perPage <= 0 {
		return nil, false, util.NewInvalidArgumentErrorf("page size must be positive")
	}
	start := min(max(page-1, 0)*perPage, len(d.dump.WorkItems))
	end := min(start+perPage, len(d.dump.WorkItems))
	return d.dump.WorkItems[start:end], end >= len(d.dump.WorkItems), nil
}

// GetHistory returns the history of an item
func (d *FileDownloader) GetHistory(_ context.Context, item *base.WorkItem) ([]*base.HistoryItem, error) {
	var history []*base.HistoryItem
	for _, h := range d.dump.History {
		if h.ItemKind == item.Kind && h.ItemExternalID == item.ExternalID {
			history = append(history, h)
		}
	}
	slices.SortStableFunc(history, func(a, b *base.HistoryItem) int {
		return a.Created.Compare(b.Created)
	})
	return history, nil
}

// openLocal opens a file of the dump directory, a path leaving the directory fails only this attachment
func (d *FileDownloader) openLocal(name, rel string) func() (io.ReadCloser, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return func() (io.ReadCloser, error) {
			return nil, util.NewInvalidArgumentErrorf("attachment %q points outside of the dump", name)
		}
	}
	local := filepath.Join(d.dir, filepath.FromSlash(rel))
	return func() (io.ReadCloser, error) {
		return os.Open(local)
	}
}

// GetAttachments returns the files of an item, local files are opened lazily
func (d *FileDownloader) GetAttachments(_ context.Context, item *base.WorkItem) ([]*base.Attachment, error) {
	var attachments []*base.Attachment
	for _, a := range d.dump.Attachments {
		if a.ItemKind != item.Kind || a.ItemExternalID != item.ExternalID {
			continue
		}
		if a.DownloadURL != nil && a.DownloadFunc == nil {
			if u, err := url.Parse(*a.DownloadURL); err == nil && u.Scheme == "" {
				a.DownloadFunc = d.openLocal(a.Name, *a.DownloadURL)
			}
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}
