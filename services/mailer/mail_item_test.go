// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mailer

import (
	"testing"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/test"
	sender_service "github.com/taigaio/taiga-back-sub001/services/mailer/sender"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailItemEntry(t *testing.T) {
	defer test.MockVariableValue(&setting.MailService, &setting.Mailer{
		Enabled: true, Protocol: "dummy", FromName: "Taiga", FromEmail: "bot@example.com",
	})()
	var sent []*sender_service.Message
	defer test.MockVariableValue(&SendAsync, func(msgs ...*sender_service.Message) {
		sent = append(sent, msgs...)
	})()

	p := &project_model.Project{ID: 1, Name: "Apollo", Slug: "apollo"}
	us := &agile_model.UserStory{ID: 7, ProjectID: 1, Ref: 12, Subject: "Login page"}
	entry := &history_model.Entry{
		Key:      history_model.Key(project_model.KindUserStory, 7),
		Type:     history_model.EntryTypeChange,
		UserName: "alice",
		Diff: history_model.Diff{
			"status":  {float64(3), float64(4)},
			"subject": {"Login", "Login page"},
		},
		Values:  history_model.Values{"status": {"3": "New", "4": "Done"}},
		Comment: "ready",
	}
	recipients := []*user_model.User{
		{ID: 2, Name: "bob", Email: "bob@example.com", IsActive: true},
		{ID: 3, Name: "carol", Email: "carol@example.com", IsActive: false},
		{ID: 4, Name: "dave", IsActive: true},
	}

	MailItemEntry(p, us, entry, recipients)
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "[Apollo] US #12 Login page", msg.Subject)
	assert.Contains(t, msg.Body, "alice changed US #12 Login page")
	assert.Contains(t, msg.Body, "status: New => Done")
	assert.Contains(t, msg.Body, "subject: Login => Login page")
	assert.Contains(t, msg.Body, "ready")
	assert.Contains(t, msg.Body, "project/apollo/us/7")
}

func TestComposeUnknownTemplate(t *testing.T) {
	_, err := composeMessages("nope", nil, &ItemContext{})
	assert.Error(t, err)
}

func TestItemTitle(t *testing.T) {
	assert.Equal(t, "Task #3 Wire", ItemTitle(&agile_model.Task{Ref: 3, Subject: "Wire"}))
	assert.Equal(t, "Sprint One", ItemTitle(&agile_model.Milestone{Name: "One"}))
}
