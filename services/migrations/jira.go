// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"cmp"
	"context"
	"fmt"
	"io"
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
	_ base.Downloader        = &JiraDownloader{}
	_ base.DownloaderFactory = &JiraDownloaderFactory{}
)

func init() {
	RegisterDownloaderFactory(&JiraDownloaderFactory{})
}

// JiraDownloaderFactory defines a jira downloader factory
type JiraDownloaderFactory struct{}

// New returns a Downloader related to this factory according to ImportOptions
func (f *JiraDownloaderFactory) New(ctx context.Context, opts base.ImportOptions) (base.Downloader, error) {
	baseURL := cmp.Or(opts.BaseURL, setting.Importer.JiraBaseURL)
	if baseURL == "" {
		return nil, util.NewInvalidArgumentErrorf("jira base url is not configured")
	}
	if opts.ProjectKey == "" {
		return nil, util.NewInvalidArgumentErrorf("jira project key is empty")
	}
	token := cmp.Or(opts.AuthToken, setting.Importer.JiraToken)
	username := cmp.Or(opts.AuthUsername, setting.Importer.JiraUsername)
	password := cmp.Or(opts.AuthPassword, setting.Importer.JiraPassword)

	log.Trace("Create jira downloader. BaseURL: %s Project: %s", baseURL, opts.ProjectKey)
	return NewJiraDownloader(ctx, baseURL, opts.ProjectKey, token, username, password)
}

// Source returns the source served by this factory
func (f *JiraDownloaderFactory) Source() string {
	return base.SourceJira
}

// jiraTime parses the timestamps of the jira api, "2024-03-01T10:20:30.000+0100"
type jiraTime struct {
	time.Time
}

func (t *jiraTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid jira time %q", s)
}

type jiraUser struct {
	AccountID    string `json:"accountId"`
	Key          string `json:"key"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// id returns the identifier of the user, cloud instances use account ids and servers use keys
func (u *jiraUser) id() string {
	if u == nil {
		return ""
	}
	return cmp.Or(u.AccountID, u.Key, u.Name)
}

func (u *jiraUser) name() string {
	if u == nil {
		return ""
	}
	return cmp.Or(u.DisplayName, u.Name)
}

type jiraNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type jiraStatus struct {
	Name           string `json:"name"`
	StatusCategory struct {
		Key string `json:"key"`
	} `json:"statusCategory"`
}

type jiraIssueType struct {
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

type jiraIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string        `json:"summary"`
		Description string        `json:"description"`
		Status      jiraStatus    `json:"status"`
		IssueType   jiraIssueType `json:"issuetype"`
		Priority    *jiraNamed    `json:"priority"`
		Labels      []string      `json:"labels"`
		FixVersions []jiraNamed   `json:"fixVersions"`
		Assignee    *jiraUser     `json:"assignee"`
		Reporter    *jiraUser     `json:"reporter"`
		Parent      *struct {
			Key    string `json:"key"`
			Fields struct {
				IssueType jiraIssueType `json:"issuetype"`
			} `json:"fields"`
		} `json:"parent"`
		Created jiraTime `json:"created"`
		Updated jiraTime `json:"updated"`
		Comment struct {
			Comments []struct {
				Author  *jiraUser `json:"author"`
				Body    string    `json:"body"`
				Created jiraTime  `json:"created"`
			} `json:"comments"`
		} `json:"comment"`
		Attachment []struct {
			Filename string    `json:"filename"`
			MimeType string    `json:"mimeType"`
			Size     int64     `json:"size"`
			Content  string    `json:"content"`
			Author   *jiraUser `json:"author"`
			Created  jiraTime  `json:"created"`
		} `json:"attachment"`
	} `json:"fields"`
	Changelog struct {
		Histories []struct {
			Author  *jiraUser `json:"author"`
			Created jiraTime  `json:"created"`
			Items   []struct {
				Field      string `json:"field"`
				FromString string `json:"fromString"`
				ToString   string `json:"toString"`
			} `json:"items"`
		} `json:"histories"`
	} `json:"changelog"`
}

// kind maps the jira issue type on a local kind
func (i *jiraIssue) kind() string {
	switch {
	case strings.EqualFold(i.Fields.IssueType.Name, "epic"):
		return base.KindEpic
	case i.Fields.IssueType.Subtask:
		return base.KindTask
	case strings.EqualFold(i.Fields.IssueType.Name, "bug"):
		return base.KindIssue
	}
	return base.KindUserStory
}

// jiraPhase is one search of the import, the phases run in order so that parents come first
type jiraPhase struct {
	kind string
	jql  string
}

// JiraDownloader implements a Downloader interface to get a project from a jira server
type JiraDownloader struct {
	base.NullDownloader
	client     *apiClient
	projectKey string

	phases  []jiraPhase
	phase   int
	startAt int
	// issues keeps the comments, change log and files of the downloaded issues
	issues map[string]*jiraIssue
}

// NewJiraDownloader creates a jira downloader, a token is sent as bearer and takes precedence over basic auth
func NewJiraDownloader(_ context.Context, baseURL, projectKey, token, username, password string) (*JiraDownloader, error) {
	client, err := newAPIClient(base.SourceJira, baseURL, func(req *http.Request) {
		switch {
		case token != "":
			req.Header.Set("Authorization", "Bearer "+token)
		case username != "":
			req.SetBasicAuth(username, password)
		}
	})
	if err != nil {
		return nil, err
	}
	project := strconv.Quote(projectKey)
	return &JiraDownloader{
		client:     client,
		projectKey: projectKey,
		phases: []jiraPhase{
			{kind: base.KindEpic, jql: fmt.Sprintf("project = %s AND issuetype = Epic ORDER BY id ASC", project)},
			{kind: base.KindUserStory, jql: fmt.Sprintf("project = %s AND issuetype != Epic AND issuetype != Bug AND issuetype not in subTaskIssueTypes() ORDER BY id ASC", project)},
			{kind: base.KindTask, jql: fmt.Sprintf("project = %s AND issuetype in subTaskIssueTypes() ORDER BY id ASC", project)},
			{kind: base.KindIssue, jql: fmt.Sprintf("project = %s AND issuetype = Bug ORDER BY id ASC", project)},
		},
		issues: make(map[string]*jiraIssue),
	}, nil
}

// String implements Stringer
func (d *JiraDownloader) String() string {
	return fmt.Sprintf("import from jira server %s project %s", d.client.baseURL, d.projectKey)
}

// GetProject returns the project information
// https://docs.atlassian.com/software/jira/docs/api/REST/latest/#api/2/project-getProject
func (d *JiraDownloader) GetProject(ctx context.Context) (*base.Project, error) {
	var raw struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := d.client.getJSON(ctx, "rest/api/2/project/"+url.PathEscape(d.projectKey), nil, &raw); err != nil {
		return nil, err
	}
	browse, _ := d.client.baseURL.Parse("browse/" + url.PathEscape(raw.Key))
	return &base.Project{
		Name:        raw.Name,
		Description: raw.Description,
		OriginalURL: browse.String(),
		IsPrivate:   true,
	}, nil
}

// GetUsers returns the users assignable in the project
func (d *JiraDownloader) GetUsers(ctx context.Context) ([]*base.User, error) {
	var raw []*jiraUser
	query := url.Values{"project": {d.projectKey}, "maxResults": {"1000"}}
	if err := d.client.getJSON(ctx, "rest/api/2/user/assignable/search", query, &raw); err != nil {
		return nil, err
	}
	users := make([]*base.User, 0, len(raw))
	for _, u := range raw {
		users = append(users, &base.User{ExternalID: u.id(), Name: u.name(), Email: u.EmailAddress})
	}
	return users, nil
}

// GetStatuses returns the workflow statuses of every issue type, the done category is closed
func (d *JiraDownloader) GetStatuses(ctx context.Context) ([]*base.Status, error) {
	var raw []struct {
		Name     string       `json:"name"`
		Subtask  bool         `json:"subtask"`
		Statuses []jiraStatus `json:"statuses"`
	}
	if err := d.client.getJSON(ctx, "rest/api/2/project/"+url.PathEscape(d.projectKey)+"/statuses", nil, &raw); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var statuses []*base.Status
	for _, issueType := range raw {
		sample := &jiraIssue{}
		sample.Fields.IssueType = jiraIssueType{Name: issueType.Name, Subtask: issueType.Subtask}
		kind := sample.kind()
		for _, s := range issueType.Statuses {
			key := kind + "/" + strings.ToLower(s.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			statuses = append(statuses, &base.Status{
				Kind:     kind,
				Name:     s.Name,
				IsClosed: s.StatusCategory.Key == "done",
				Known:    s.StatusCategory.Key != "",
			})
		}
	}
	return statuses, nil
}

// GetMilestones returns the versions of the project, each version becomes a milestone
func (d *JiraDownloader) GetMilestones(ctx context.Context) ([]*base.Milestone, error) {
	var raw []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		StartDate   string `json:"startDate"`
		ReleaseDate string `json:"releaseDate"`
		Released    bool   `json:"released"`
	}
	if err := d.client.getJSON(ctx, "rest/api/2/project/"+url.PathEscape(d.projectKey)+"/versions", nil, &raw); err != nil {
		return nil, err
	}
	milestones := make([]*base.Milestone, 0, len(raw))
	for _, v := range raw {
		m := &base.Milestone{ExternalID: v.ID, Name: v.Name, Closed: v.Released}
		if t, err := time.Parse(time.DateOnly, v.StartDate); err == nil {
			m.EstimatedStart = &t
		}
		if t, err := time.Parse(time.DateOnly, v.ReleaseDate); err == nil {
			m.EstimatedFinish = &t
		}
		milestones = append(milestones, m)
	}
	return milestones, nil
}

// GetWorkItems returns the issues page by page, running one search per kind
// https://docs.atlassian.com/software/jira/docs/api/REST/latest/#api/2/search-search
func (d *JiraDownloader) GetWorkItems(ctx context.Context, _, perPage int) ([]*base.WorkItem, bool, error) {
	if d.phase >= len(d.phases) {
		return nil, true, nil
	}
	phase := d.phases[d.phase]
	var result struct {
		StartAt int          `json:"startAt"`
		Total   int          `json:"total"`
		Issues  []*jiraIssue `json:"issues"`
	}
	query := url.Values{
		"jql":        {phase.jql},
		"startAt":    {strconv.Itoa(d.startAt)},
		"maxResults": {strconv.Itoa(perPage)},
		"fields":     {"*all"},
		"expand":     {"changelog"},
	}
	if err := d.client.getJSON(ctx, "rest/api/2/search", query, &result); err != nil {
		return nil, false, err
	}

	items := make([]*base.WorkItem, 0, len(result.Issues))
	for _, issue := range result.Issues {
		d.issues[issue.Key] = issue
		items = append(items, d.convertIssue(issue))
	}

	d.startAt += len(result.Issues)
	if len(result.Issues) == 0 || d.startAt >= result.Total {
		d.phase++
		d.startAt = 0
	}
	return items, d.phase >= len(d.phases), nil
}

func (d *JiraDownloader) convertIssue(issue *jiraIssue) *base.WorkItem {
	f := &issue.Fields
	item := &base.WorkItem{
		Kind:        issue.kind(),
		ExternalID:  issue.Key,
		Subject:     f.Summary,
		Description: f.Description,
		Status:      f.Status.Name,
		OwnerID:     f.Reporter.id(),
		OwnerName:   f.Reporter.name(),
		AssigneeID:  f.Assignee.id(),
		Tags:        f.Labels,
		Created:     f.Created.Time,
		Updated:     f.Updated.Time,
	}
	// the number of "KEY-123" is kept as the local ref
	if _, num, ok := strings.Cut(issue.Key, "-"); ok {
		item.Ref, _ = strconv.ParseInt(num, 10, 64)
	}
	if f.Priority != nil {
		item.Priority = f.Priority.Name
	}
	if len(f.FixVersions) > 0 {
		item.Milestone = f.FixVersions[0].ID
	}
	if f.Parent != nil {
		switch item.Kind {
		case base.KindTask:
			item.UserStory = f.Parent.Key
		case base.KindUserStory:
			if strings.EqualFold(f.Parent.Fields.IssueType.Name, "epic") {
				item.Epic = f.Parent.Key
			}
		}
	}
	return item
}

// GetHistory returns the comments and the change log of an issue in time order
func (d *JiraDownloader) GetHistory(_ context.Context, item *base.WorkItem) ([]*base.HistoryItem, error) {
	issue, ok := d.issues[item.ExternalID]
	if !ok {
		return nil, nil
	}
	var history []*base.HistoryItem
	for _, c := range issue.Fields.Comment.Comments {
		history = append(history, &base.HistoryItem{
			ItemKind:       item.Kind,
			ItemExternalID: item.ExternalID,
			AuthorID:       c.Author.id(),
			AuthorName:     c.Author.name(),
			Comment:        c.Body,
			Created:        c.Created.Time,
		})
	}
	for _, h := range issue.Changelog.Histories {
		entry := &base.HistoryItem{
			ItemKind:       item.Kind,
			ItemExternalID: item.ExternalID,
			AuthorID:       h.Author.id(),
			AuthorName:     h.Author.name(),
			Created:        h.Created.Time,
		}
		for _, change := range h.Items {
			entry.Changes = append(entry.Changes, &base.FieldChange{Field: jiraField(change.Field), From: change.FromString, To: change.ToString})
		}
		history = append(history, entry)
	}
	slices.SortStableFunc(history, func(a, b *base.HistoryItem) int {
		return a.Created.Compare(b.Created)
	})
	return history, nil
}

// jiraField names a jira change log field like the local history does
func jiraField(field string) string {
	switch strings.ToLower(field) {
	case "summary":
		return "subject"
	case "labels":
		return "tags"
	case "fix version":
		return "milestone"
	case "assignee":
		return "assigned_to"
	}
	return strings.ToLower(strings.ReplaceAll(field, " ", "_"))
}

// GetAttachments returns the files of an issue, bodies are fetched lazily with the jira credentials
func (d *JiraDownloader) GetAttachments(ctx context.Context, item *base.WorkItem) ([]*base.Attachment, error) {
	issue, ok := d.issues[item.ExternalID]
	if !ok {
		return nil, nil
	}
	attachments := make([]*base.Attachment, 0, len(issue.Fields.Attachment))
	for _, a := range issue.Fields.Attachment {
		content := a.Content
		attachments = append(attachments, &base.Attachment{
			ItemKind:       item.Kind,
			ItemExternalID: item.ExternalID,
			Name:           a.Filename,
			ContentType:    a.MimeType,
			Size:           util.ToPointer(a.Size),
			OwnerID:        a.Author.id(),
			Created:        a.Created.Time,
			DownloadFunc: func() (io.ReadCloser, error) {
				return d.client.download(ctx, content)
			},
		})
	}
	return attachments, nil
}
