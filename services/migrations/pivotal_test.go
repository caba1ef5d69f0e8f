// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	base "github.com/taigaio/taiga-back-sub001/modules/migration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPivotalDownloader(t *testing.T) {
	ctx := t.Context()
	mux := http.NewServeMux()
	reply := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-TrackerToken") != "token" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("/projects/99", reply(`{"id":99,"name":"Tracker","public":false,"created_at":"2023-05-01T00:00:00Z"}`))
	mux.HandleFunc("/projects/99/memberships", reply(`[{"person":{"id":5,"name":"Carol","email":"carol@example.com"}}]`))
	mux.HandleFunc("/projects/99/iterations", reply(`[{"number":1,"start":"2023-05-01T00:00:00Z","finish":"2023-05-08T00:00:00Z","stories":[{"id":100}]}]`))
	mux.HandleFunc("/projects/99/epics", reply(`[{"id":7,"name":"Onboarding","label":{"id":1,"name":"onboarding"}}]`))
	mux.HandleFunc("/projects/99/stories", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			reply(`[]`)(w, r)
			return
		}
		reply(`[
			{"id":100,"name":"Sign up","story_type":"feature","current_state":"accepted","estimate":2,"requested_by_id":5,
			 "labels":[{"id":1,"name":"onboarding"},{"id":2,"name":"web"}],
			 "tasks":[{"id":1000,"description":"Form","complete":true}],
			 "comments":[{"id":1,"text":"shipped","person_id":5,"created_at":"2023-05-02T00:00:00Z",
			   "file_attachments":[{"id":3,"filename":"mock.png","content_type":"image/png","size":3,"download_url":"/file_attachments/3/download"}]}]},
			{"id":101,"name":"Crash on login","story_type":"bug","current_state":"started","estimate":1}
		]`)(w, r)
	})
	mux.HandleFunc("/projects/99/stories/100/activity", reply(`[
		{"kind":"story_update_activity","occurred_at":"2023-05-03T00:00:00Z","performed_by":{"id":5,"name":"Carol"},
		 "changes":[
		   {"kind":"story","change_type":"update","id":100,
		    "original_values":{"current_state":"delivered","owner_ids":[],"updated_at":1683072000000},
		    "new_values":{"current_state":"accepted","owner_ids":[5],"updated_at":1683158400000}},
		   {"kind":"task","change_type":"update","id":1000,"original_values":{"complete":false},"new_values":{"complete":true}}]},
		{"kind":"comment_create_activity","occurred_at":"2023-05-02T00:00:00Z","performed_by":{"id":5,"name":"Carol"},
		 "changes":[{"kind":"comment","change_type":"create","id":1,"new_values":{"text":"shipped"}}]}
	]`))
	mux.HandleFunc("/file_attachments/3/download", reply("png"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d, err := NewPivotalDownloader(ctx, srv.URL, "99", "token")
	require.NoError(t, err)

	project, err := d.GetProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tracker", project.Name)
	assert.True(t, project.IsPrivate)

	users, err := d.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*base.User{{ExternalID: "5", Name: "Carol", Email: "carol@example.com"}}, users)

	milestones, err := d.GetMilestones(ctx)
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Equal(t, "Iteration 1", milestones[0].Name)
	assert.True(t, milestones[0].Closed)

	epics, isEnd, err := d.GetWorkItems(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, isEnd)
	require.Len(t, epics, 1)
	assert.Equal(t, base.KindEpic, epics[0].Kind)

	items, isEnd, err := d.GetWorkItems(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, isEnd)
	require.Len(t, items, 3)
	story, task, bug := items[0], items[1], items[2]
	assert.Equal(t, base.KindUserStory, story.Kind)
	assert.Equal(t, epics[0].ExternalID, story.Epic)
	assert.Equal(t, []string{"web"}, story.Tags)
	assert.Equal(t, "1", story.Milestone)
	assert.Equal(t, "accepted", story.Status)
	require.NotNil(t, story.Points)
	assert.InDelta(t, 2.0, *story.Points, 0.001)
	assert.Equal(t, base.KindTask, task.Kind)
	assert.Equal(t, "complete", task.Status)
	assert.Equal(t, story.ExternalID, task.UserStory)
	assert.Equal(t, base.KindIssue, bug.Kind)
	assert.Nil(t, bug.Points)

	history, err := d.GetHistory(ctx, story)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Carol", history[0].AuthorName)
	assert.Equal(t, "shipped", history[0].Comment)
	assert.Equal(t, "5", history[1].AuthorID)
	assert.Equal(t, []*base.FieldChange{
		{Field: "status", From: "delivered", To: "accepted"},
		{Field: "assigned_to", From: "", To: "Carol"},
	}, history[1].Changes)

	taskHistory, err := d.GetHistory(ctx, task)
	require.NoError(t, err)
	require.Len(t, taskHistory, 1)
	assert.Equal(t, base.KindTask, taskHistory[0].ItemKind)
	assert.Equal(t, []*base.FieldChange{{Field: "status", From: "incomplete", To: "complete"}}, taskHistory[0].Changes)

	attachments, err := d.GetAttachments(ctx, story)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	rc, err := attachments[0].DownloadFunc()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "png", string(content))

	statuses, err := d.GetStatuses(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Known)
		assert.Equal(t, s.Name == "accepted" || s.Name == "complete", s.IsClosed, s.Name)
	}

	bad, err := NewPivotalDownloader(ctx, srv.URL, "99", "")
	require.NoError(t, err)
	_, err = bad.GetProject(ctx)
	assert.True(t, base.IsErrSourceUnauthorized(err))
}
