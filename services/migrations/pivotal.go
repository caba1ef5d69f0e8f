// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

var (
	_ base.Downloader        = &PivotalDownloader{}
	_ base.DownloaderFactory = &PivotalDownloaderFactory{}
)

func init() {
	RegisterDownloaderFactory(&PivotalDownloaderFactory{})
}

// PivotalDownloaderFactory defines a pivotal tracker downloader factory
type PivotalDownloaderFactory struct{}

// New returns a Downloader related to this factory according to ImportOptions
func (f *PivotalDownloaderFactory) New(ctx context.Context, opts base.ImportOptions) (base.Downloader, error) {
	if opts.ProjectKey == "" {
		return nil, util.NewInvalidArgumentErrorf("pivotal project id is empty")
	}
	baseURL := cmp.Or(opts.BaseURL, setting.Importer.PivotalBaseURL)
	token := cmp.Or(opts.AuthToken, setting.Importer.PivotalToken)
	log.Trace("Create pivotal downloader. BaseURL: %s Project: %s", baseURL, opts.ProjectKey)
	return NewPivotalDownloader(ctx, baseURL, opts.ProjectKey, token)
}

// Source returns the source served by this factory
func (f *PivotalDownloaderFactory) Source() string {
	return base.SourcePivotal
}

// pivotalStates are the fixed story states of pivotal tracker in workflow order
var pivotalStates = []string{"unscheduled", "unstarted", "planned", "started", "finished", "delivered", "rejected", "accepted"}

type pivotalPerson struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type pivotalComment struct {
	ID              int64     `json:"id"`
	Text            string    `json:"text"`
	PersonID        int64     `json:"person_id"`
	CreatedAt       time.Time `json:"created_at"`
	FileAttachments []struct {
		ID          int64     `json:"id"`
		Filename    string    `json:"filename"`
		ContentType string    `json:"content_type"`
		Size        int64     `json:"size"`
		DownloadURL string    `json:"download_url"`
		UploaderID  int64     `json:"uploader_id"`
		CreatedAt   time.Time `json:"created_at"`
	} `json:"file_attachments"`
}

type pivotalTask struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Complete    bool      `json:"complete"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type pivotalStory struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	StoryType     string           `json:"story_type"`
	CurrentState  string           `json:"current_state"`
	Estimate      *float64         `json:"estimate"`
	RequestedByID int64            `json:"requested_by_id"`
	OwnerIDs      []int64          `json:"owner_ids"`
	Labels        []pivotalLabel   `json:"labels"`
	Tasks         []pivotalTask    `json:"tasks"`
	Comments      []pivotalComment `json:"comments"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type pivotalLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PivotalDownloader implements a Downloader interface to get a project from pivotal tracker
type PivotalDownloader struct {
	base.NullDownloader
	client    *apiClient
	projectID string

	people map[int64]*pivotalPerson
	// epics maps the label of an epic to the epic id
	epics       map[string]string
	epicsSent   bool
	offset      int
	iterationOf map[int64]string
	stories     map[string]*pivotalStory
	activity    map[string][]*pivotalActivity
}

// NewPivotalDownloader creates a pivotal tracker downloader authenticated by an api token
func NewPivotalDownloader(_ context.Context, baseURL, projectID, token string) (*PivotalDownloader, error) {
	if _, err := strconv.ParseInt(projectID, 10, 64); err != nil {
		return nil, util.NewInvalidArgumentErrorf("pivotal project id %q is not a number", projectID)
	}
	client, err := newAPIClient(base.SourcePivotal, baseURL, func(req *http.Request) {
		if token != "" {
			req.Header.Set("X-TrackerToken", token)
		}
	})
	if err != nil {
		return nil, err
	}
	return &PivotalDownloader{
		client:      client,
		projectID:   projectID,
		people:      make(map[int64]*pivotalPerson),
		epics:       make(map[string]string),
		iterationOf: make(map[int64]string),
		stories:     make(map[string]*pivotalStory),
		activity:    make(map[string][]*pivotalActivity),
	}, nil
}

// String implements Stringer
func (d *PivotalDownloader) String() string {
	return fmt.Sprintf("import from pivotal tracker project %s", d.projectID)
}

func (d *PivotalDownloader) endpoint(path string) string {
	return "projects/" + d.projectID + path
}

// GetProject returns the project information
// https://www.pivotaltracker.com/help/api/rest/v5#Project
func (d *PivotalDownloader) GetProject(ctx context.Context) (*base.Project, error) {
	var raw struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Public      bool      `json:"public"`
		CreatedAt   time.Time `json:"created_at"`
	}
	if err := d.client.getJSON(ctx, d.endpoint(""), nil, &raw); err != nil {
		return nil, err
	}
	return &base.Project{
		Name:        raw.Name,
		Description: raw.Description,
		OriginalURL: fmt.Sprintf("https://www.pivotaltracker.com/n/projects/%d", raw.ID),
		IsPrivate:   !raw.Public,
		Created:     raw.CreatedAt,
	}, nil
}

// GetUsers returns the members of the project
func (d *PivotalDownloader) GetUsers(ctx context.Context) ([]*base.User, error) {
	var raw []struct {
		Person pivotalPerson `json:"person"`
	}
	if err := d.client.getJSON(ctx, d.endpoint("/memberships"), nil, &raw); err != nil {
		return nil, err
	}
	users := make([]*base.User, 0, len(raw))
	for _, m := range raw {
		person := m.Person
		d.people[person.ID] = &person
		users = append(users, &base.User{
			ExternalID: strconv.FormatInt(person.ID, 10),
			Name:       cmp.Or(person.Name, person.Username),
			Email:      person.Email,
		})
	}
	return users, nil
}

// GetStatuses returns the fixed states of pivotal tracker, accepted stories and complete tasks are closed
func (d *PivotalDownloader) GetStatuses(_ context.Context) ([]*base.Status, error) {
	var statuses []*base.Status
	for _, kind := range []string{base.KindUserStory, base.KindIssue} {
		for _, state := range pivotalStates {
			statuses = append(statuses, &base.Status{Kind: kind, Name: state, IsClosed: state == "accepted", Known: true})
		}
	}
	statuses = append(statuses,
		&base.Status{Kind: base.KindTask, Name: "incomplete", Known: true},
		&base.Status{Kind: base.KindTask, Name: "complete", IsClosed: true, Known: true},
		&base.Status{Kind: base.KindEpic, Name: "open", Known: true},
	)
	return statuses, nil
}

// GetMilestones returns the iterations, each one becomes a milestone named after its number
func (d *PivotalDownloader) GetMilestones(ctx context.Context) ([]*base.Milestone, error) {
	var raw []struct {
		Number  int64     `json:"number"`
		Start   time.Time `json:"start"`
		Finish  time.Time `json:"finish"`
		Stories []struct {
			ID int64 `json:"id"`
		} `json:"stories"`
	}
	query := url.Values{"fields": {"number,start,finish,stories(id)"}, "limit": {"1000"}}
	if err := d.client.getJSON(ctx, d.endpoint("/iterations"), query, &raw); err != nil {
		return nil, err
	}
	now := time.Now()
	milestones := make([]*base.Milestone, 0, len(raw))
	for _, it := range raw {
		id := strconv.FormatInt(it.Number, 10)
		for _, s := range it.Stories {
			d.iterationOf[s.ID] = id
		}
		start, finish := it.Start, it.Finish
		milestones = append(milestones, &base.Milestone{
			ExternalID:      id,
			Name:            "Iteration " + id,
			EstimatedStart:  &start,
			EstimatedFinish: &finish,
			Created:         start,
			Closed:          !finish.IsZero() && finish.Before(now),
		})
	}
	return milestones, nil
}

func (d *PivotalDownloader) person(id int64) (string, string) {
	if id == 0 {
		return "", ""
	}
	name := ""
	if p, ok := d.people[id]; ok {
		name = cmp.Or(p.Name, p.Username)
	}
	return strconv.FormatInt(id, 10), name
}

// getEpics returns the epics, stories join them through the label of the epic
func (d *PivotalDownloader) getEpics(ctx context.Context) ([]*base.WorkItem, error) {
	var raw []struct {
		ID          int64        `json:"id"`
		Name        string       `json:"name"`
		Description string       `json:"description"`
		Label       pivotalLabel `json:"label"`
		CreatedAt   time.Time    `json:"created_at"`
		UpdatedAt   time.Time    `json:"updated_at"`
	}
	if err := d.client.getJSON(ctx, d.endpoint("/epics"), nil, &raw); err != nil {
		return nil, err
	}
	items := make([]*base.WorkItem, 0, len(raw))
	for _, e := range raw {
		id := "epic-" + strconv.FormatInt(e.ID, 10)
		if e.Label.Name != "" {
			d.epics[strings.ToLower(e.Label.Name)] = id
		}
		items = append(items, &base.WorkItem{
			Kind:        base.KindEpic,
			ExternalID:  id,
			Subject:     e.Name,
			Description: e.Description,
			Status:      "open",
			Created:     e.CreatedAt,
			Updated:     e.UpdatedAt,
		})
	}
	return items, nil
}

// GetWorkItems returns the epics on the first page, then the stories page by page, each story followed by its tasks
// https://www.pivotaltracker.com/help/api/rest/v5#Stories
func (d *PivotalDownloader) GetWorkItems(ctx context.Context, _, perPage int) ([]*base.WorkItem, bool, error) {
	if !d.epicsSent {
		epics, err := d.getEpics(ctx)
		if err != nil {
			return nil, false, err
		}
		d.epicsSent = true
		if len(epics) > 0 {
			return epics, false, nil
		}
	}

	var raw []*pivotalStory
	query := url.Values{
		"limit":  {strconv.Itoa(perPage)},
		"offset": {strconv.Itoa(d.offset)},
		"fields": {":default,tasks,comments(:default,file_attachments),labels"},
	}
	if err := d.client.getJSON(ctx, d.endpoint("/stories"), query, &raw); err != nil {
		return nil, false, err
	}
	d.offset += len(raw)

	var items []*base.WorkItem
	for _, s := range raw {
		items = append(items, d.convertStory(s)...)
	}
	return items, len(raw) < perPage, nil
}

func (d *PivotalDownloader) convertStory(s *pivotalStory) []*base.WorkItem {
	id := strconv.FormatInt(s.ID, 10)
	d.stories[id] = s

	ownerID, ownerName := d.person(s.RequestedByID)
	item := &base.WorkItem{
		Kind:        base.KindUserStory,
		ExternalID:  id,
		Subject:     s.Name,
		Description: s.Description,
		Status:      s.CurrentState,
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		Points:      s.Estimate,
		Milestone:   d.iterationOf[s.ID],
		Type:        s.StoryType,
		Created:     s.CreatedAt,
		Updated:     s.UpdatedAt,
	}
	if s.StoryType == "bug" {
		item.Kind = base.KindIssue
		item.Type = "Bug"
		item.Points = nil
	}
	if len(s.OwnerIDs) > 0 {
		item.AssigneeID, _ = d.person(s.OwnerIDs[0])
	}
	for _, l := range s.Labels {
		if epicID, ok := d.epics[strings.ToLower(l.Name)]; ok && item.Kind == base.KindUserStory {
			item.Epic = epicID
			continue
		}
		item.Tags = append(item.Tags, l.Name)
	}

	items := []*base.WorkItem{item}
	if item.Kind != base.KindUserStory {
		return items
	}
	for _, t := range s.Tasks {
		items = append(items, &base.WorkItem{
			Kind:       base.KindTask,
			ExternalID: "task-" + strconv.FormatInt(t.ID, 10),
			Subject:    t.Description,
			Status:     util.Iif(t.Complete, "complete", "incomplete"),
			OwnerID:    ownerID,
			OwnerName:  ownerName,
			UserStory:  id,
			Created:    t.CreatedAt,
			Updated:    t.UpdatedAt,
		})
	}
	return items
}

type pivotalChange struct {
	Kind           string         `json:"kind"`
	ChangeType     string         `json:"change_type"`
	ID             int64          `json:"id"`
	OriginalValues map[string]any `json:"original_values"`
	NewValues      map[string]any `json:"new_values"`
}

type pivotalActivity struct {
	Kind        string          `json:"kind"`
	Changes     []pivotalChange `json:"changes"`
	PerformedBy pivotalPerson   `json:"performed_by"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// pivotalActivityPage is the largest page the activity endpoint serves
const pivotalActivityPage = 500

// storyActivity returns the update activities of a story, oldest first
// https://www.pivotaltracker.com/help/api/rest/v5#Story_Activity
func (d *PivotalDownloader) storyActivity(ctx context.Context, storyID string) ([]*pivotalActivity, error) {
	if activity, ok := d.activity[storyID]; ok {
		return activity, nil
	}
	var all []*pivotalActivity
	for offset := 0; ; offset += pivotalActivityPage {
		var page []*pivotalActivity
		query := url.Values{"limit": {strconv.Itoa(pivotalActivityPage)}, "offset": {strconv.Itoa(offset)}}
		if err := d.client.getJSON(ctx, d.endpoint("/stories/"+storyID+"/activity"), query, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pivotalActivityPage {
			break
		}
	}
	slices.SortStableFunc(all, func(a, b *pivotalActivity) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})
	d.activity[storyID] = all
	return all, nil
}

// pivotalFields names the story and task fields of pivotal like the local history does
var pivotalFields = map[string]map[string]string{
	"story": {
		"name":          "subject",
		"description":   "description",
		"current_state": "status",
		"estimate":      "points",
		"owner_ids":     "assigned_to",
		"story_type":    "type",
	},
	"task": {
		"description": "subject",
		"complete":    "status",
	},
}

func (d *PivotalDownloader) pivotalValue(field string, v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if field == "complete" {
			return util.Iif(v, "complete", "incomplete")
		}
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		names := make([]string, 0, len(v))
		for _, e := range v {
			if id, ok := e.(float64); ok && field == "owner_ids" {
				_, name := d.person(int64(id))
				names = append(names, cmp.Or(name, strconv.FormatInt(int64(id), 10)))
				continue
			}
			names = append(names, d.pivotalValue(field, e))
		}
		return strings.Join(names, ", ")
	}
	return fmt.Sprint(v)
}

// activityChanges maps the updates of one resource in an activity, kind and id select the resource
func (d *PivotalDownloader) activityChanges(a *pivotalActivity, kind string, id int64) []*base.FieldChange {
	var changes []*base.FieldChange
	for _, c := range a.Changes {
		if c.Kind != kind || c.ID != id || c.ChangeType != "update" {
			continue
		}
		fields := slices.Sorted(maps.Keys(c.NewValues))
		for _, field := range fields {
			local, ok := pivotalFields[kind][field]
			if !ok {
				continue
			}
			changes = append(changes, &base.FieldChange{
				Field: local,
				From:  d.pivotalValue(field, c.OriginalValues[field]),
				To:    d.pivotalValue(field, c.NewValues[field]),
			})
		}
	}
	return changes
}

// GetHistory returns the comments and the updates of a story or a task in time order
func (d *PivotalDownloader) GetHistory(ctx context.Context, item *base.WorkItem) ([]*base.HistoryItem, error) {
	storyID, kind, resourceID := item.ExternalID, "story", int64(0)
	if item.Kind == base.KindTask {
		storyID, kind = item.UserStory, "task"
		resourceID, _ = strconv.ParseInt(strings.TrimPrefix(item.ExternalID, "task-"), 10, 64)
	}
	s, ok := d.stories[storyID]
	if !ok {
		return nil, nil
	}
	if kind == "story" {
		resourceID = s.ID
	}

	var history []*base.HistoryItem
	if kind == "story" {
		for _, c := range s.Comments {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			authorID, authorName := d.person(c.PersonID)
			history = append(history, &base.HistoryItem{
				ItemKind:       item.Kind,
				ItemExternalID: item.ExternalID,
				AuthorID:       authorID,
				AuthorName:     authorName,
				Comment:        c.Text,
				Created:        c.CreatedAt,
			})
		}
	}

	activity, err := d.storyActivity(ctx, storyID)
	if err != nil {
		return nil, err
	}
	for _, a := range activity {
		changes := d.activityChanges(a, kind, resourceID)
		if len(changes) == 0 {
			continue
		}
		authorID, authorName := d.person(a.PerformedBy.ID)
		history = append(history, &base.HistoryItem{
			ItemKind:       item.Kind,
			ItemExternalID: item.ExternalID,
			AuthorID:       authorID,
			AuthorName:     cmp.Or(authorName, a.PerformedBy.Name),
			Changes:        changes,
			Created:        a.OccurredAt,
		})
	}
	slices.SortStableFunc(history, func(a, b *base.HistoryItem) int {
		return a.Created.Compare(b.Created)
	})
	return history, nil
}

// GetAttachments returns the files attached to the comments of a story
func (d *PivotalDownloader) GetAttachments(ctx context.Context, item *base.WorkItem) ([]*base.Attachment, error) {
	s, ok := d.stories[item.ExternalID]
	if !ok {
		return nil, nil
	}
	var attachments []*base.Attachment
	for _, c := range s.Comments {
		for _, f := range c.FileAttachments {
			ownerID, _ := d.person(f.UploaderID)
			downloadURL, err := d.client.baseURL.Parse(strings.TrimPrefix(f.DownloadURL, "/"))
			if err != nil {
				return nil, err
			}
			target := downloadURL.String()
			attachments = append(attachments, &base.Attachment{
				ItemKind:       item.Kind,
				ItemExternalID: item.ExternalID,
				Name:           f.Filename,
				ContentType:    f.ContentType,
				Size:           util.ToPointer(f.Size),
				OwnerID:        ownerID,
				Created:        f.CreatedAt,
				DownloadURL:    &target,
				DownloadFunc: func() (io.ReadCloser, error) {
					return d.client.download(ctx, target)
				},
			})
		}
	}
	return attachments, nil
}
