// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	base "github.com/taigaio/taiga-back-sub001/modules/migration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJiraServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("/rest/api/2/project/APP", reply(`{"key":"APP","name":"Apollo","description":"rocket"}`))
	mux.HandleFunc("/rest/api/2/project/APP/statuses", reply(`[
		{"name":"Story","subtask":false,"statuses":[{"name":"To Do","statusCategory":{"key":"new"}},{"name":"Done","statusCategory":{"key":"done"}}]},
		{"name":"Sub-task","subtask":true,"statuses":[{"name":"Done","statusCategory":{"key":"done"}}]}
	]`))
	mux.HandleFunc("/rest/api/2/project/APP/versions", reply(`[{"id":"10","name":"1.0","startDate":"2024-01-01","releaseDate":"2024-02-01","released":true}]`))
	mux.HandleFunc("/rest/api/2/user/assignable/search", reply(`[{"accountId":"acc-1","displayName":"Alice"}]`))
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		jql := r.URL.Query().Get("jql")
		body := `{"startAt":0,"total":0,"issues":[]}`
		switch {
		case strings.Contains(jql, "issuetype = Epic"):
			body = `{"startAt":0,"total":1,"issues":[{"id":"1","key":"APP-1","fields":{"summary":"Launch","issuetype":{"name":"Epic"},"status":{"name":"To Do"},"created":"2024-01-02T10:00:00.000+0000"}}]}`
		case strings.Contains(jql, "issuetype != Epic"):
			body = `{"startAt":0,"total":1,"issues":[{"id":"2","key":"APP-2","fields":{
				"summary":"Fuel","description":"liquid","issuetype":{"name":"Story"},"status":{"name":"Done"},
				"labels":["fuel"],"fixVersions":[{"id":"10","name":"1.0"}],
				"reporter":{"accountId":"acc-1","displayName":"Alice"},
				"parent":{"key":"APP-1","fields":{"issuetype":{"name":"Epic"}}},
				"created":"2024-01-03T10:00:00.000+0000","updated":"2024-01-04T10:00:00.000+0000",
				"comment":{"comments":[{"author":{"accountId":"acc-2","displayName":"Bob"},"body":"ready","created":"2024-01-05T10:00:00.000+0000"}]},
				"attachment":[{"filename":"plan.txt","mimeType":"text/plain","size":4,"content":"` + "http://" + r.Host + `/files/plan.txt"}]},
				"changelog":{"histories":[{"author":{"accountId":"acc-1","displayName":"Alice"},"created":"2024-01-04T10:00:00.000+0000","items":[{"field":"summary","fromString":"Fue","toString":"Fuel"}]}]}}]}`
		case strings.Contains(jql, "subTaskIssueTypes"):
			body = `{"startAt":0,"total":1,"issues":[{"id":"3","key":"APP-3","fields":{"summary":"Pump","issuetype":{"name":"Sub-task","subtask":true},"status":{"name":"Done"},"parent":{"key":"APP-2","fields":{"issuetype":{"name":"Story"}}}}}]}`
		}
		reply(body)(w, r)
	})
	mux.HandleFunc("/files/plan.txt", reply("plan"))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestJiraDownloader(t *testing.T) {
	ctx := t.Context()
	srv := newJiraServer(t)
	d, err := NewJiraDownloader(ctx, srv.URL, "APP", "token", "", "")
	require.NoError(t, err)

	project, err := d.GetProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Apollo", project.Name)
	assert.Equal(t, srv.URL+"/browse/APP", project.OriginalURL)

	statuses, err := d.GetStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*base.Status{
		{Kind: base.KindUserStory, Name: "To Do", Known: true},
		{Kind: base.KindUserStory, Name: "Done", IsClosed: true, Known: true},
		{Kind: base.KindTask, Name: "Done", IsClosed: true, Known: true},
	}, statuses)

	users, err := d.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*base.User{{ExternalID: "acc-1", Name: "Alice"}}, users)

	milestones, err := d.GetMilestones(ctx)
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Equal(t, "1.0", milestones[0].Name)
	assert.True(t, milestones[0].Closed)
	require.NotNil(t, milestones[0].EstimatedFinish)

	var items []*base.WorkItem
	for page := 1; ; page++ {
		got, isEnd, err := d.GetWorkItems(ctx, page, 50)
		require.NoError(t, err)
		items = append(items, got...)
		if isEnd {
			break
		}
	}
	require.Len(t, items, 3)
	epic, story, task := items[0], items[1], items[2]
	assert.Equal(t, base.KindEpic, epic.Kind)
	assert.Equal(t, int64(1), epic.Ref)
	assert.Equal(t, base.KindUserStory, story.Kind)
	assert.Equal(t, "APP-1", story.Epic)
	assert.Equal(t, "10", story.Milestone)
	assert.Equal(t, "acc-1", story.OwnerID)
	assert.Equal(t, []string{"fuel"}, story.Tags)
	assert.Equal(t, base.KindTask, task.Kind)
	assert.Equal(t, "APP-2", task.UserStory)

	history, err := d.GetHistory(ctx, story)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []*base.FieldChange{{Field: "subject", From: "Fue", To: "Fuel"}}, history[0].Changes)
	assert.Equal(t, "ready", history[1].Comment)
	assert.Equal(t, "Bob", history[1].AuthorName)

	attachments, err := d.GetAttachments(ctx, story)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	rc, err := attachments[0].DownloadFunc()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "plan", string(content))
}

func TestJiraUnauthorized(t *testing.T) {
	ctx := t.Context()
	srv := newJiraServer(t)
	d, err := NewJiraDownloader(ctx, srv.URL, "APP", "wrong", "", "")
	require.NoError(t, err)
	_, err = base.NewRetryDownloader(d, 3, 0).GetProject(ctx)
	assert.True(t, base.IsErrSourceUnauthorized(err))

	_, err = NewJiraDownloader(ctx, "ftp://jira.example.com", "APP", "", "", "")
	assert.Error(t, err)
}
