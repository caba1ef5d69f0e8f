// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mailer

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	sender_service "github.com/taigaio/taiga-back-sub001/services/mailer/sender"
)

// Mail templates of item notifications
const (
	TplItemCreate = "item/create"
	TplItemChange = "item/change"
	TplItemDelete = "item/delete"
)

var itemSubject = template.Must(template.New("subject").Parse(`[{{.Project}}] {{.Title}}`))

var bodyTemplates = map[string]*template.Template{
	TplItemCreate: template.Must(template.New(TplItemCreate).Parse(
		`{{.Actor}} created {{.Title}}
{{range .Changes}}
  {{.Field}}: {{.New}}{{end}}
{{if .Comment}}
{{.Comment}}
{{end}}
{{.Link}}
`)),
	TplItemChange: template.Must(template.New(TplItemChange).Parse(
		`{{.Actor}} changed {{.Title}}
{{range .Changes}}
  {{.Field}}: {{.Old}} => {{.New}}{{end}}
{{if .Comment}}
Comment:
{{.Comment}}
{{end}}
{{.Link}}
`)),
	TplItemDelete: template.Must(template.New(TplItemDelete).Parse(
		`{{.Actor}} deleted {{.Title}}
{{if .Comment}}
{{.Comment}}
{{end}}`)),
}

// FieldChange is one line of a notification body
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// ItemContext is the data rendered by the item templates
type ItemContext struct {
	Project string
	Title   string
	Actor   string
	Comment string
	Link    string
	Changes []FieldChange
}

// Enqueue renders the template for every recipient and hands the messages to the mail queue
func Enqueue(templateID string, recipients []*user_model.User, data *ItemContext) error {
	msgs, err := composeMessages(templateID, recipients, data)
	if err != nil {
		return err
	}
	SendAsync(msgs...)
	return nil
}

func composeMessages(templateID string, recipients []*user_model.User, data *ItemContext) ([]*sender_service.Message, error) {
	tpl, ok := bodyTemplates[templateID]
	if !ok {
		return nil, fmt.Errorf("unknown mail template %q", templateID)
	}
	var subject, body bytes.Buffer
	if err := itemSubject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := tpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", templateID, err)
	}

	msgs := make([]*sender_service.Message, 0, len(recipients))
	for _, u := range recipients {
		if u.Email == "" || !u.IsActive {
			continue
		}
		msg := sender_service.NewMessageFrom(u.Email, setting.MailService.FromName, setting.MailService.FromEmail, subject.String(), body.String())
		msg.Info = fmt.Sprintf("%s: %s", templateID, data.Title)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// MailItemEntry tells the recipients about the mutation recorded by entry
func MailItemEntry(p *project_model.Project, item agile_model.Item, entry *history_model.Entry, recipients []*user_model.User) {
	if setting.MailService == nil || len(recipients) == 0 {
		return
	}
	templateID := TplItemChange
	switch entry.Type {
	case history_model.EntryTypeCreate:
		templateID = TplItemCreate
	case history_model.EntryTypeDelete:
		templateID = TplItemDelete
	}
	data := &ItemContext{
		Project: p.Name,
		Title:   ItemTitle(item),
		Actor:   entry.UserName,
		Comment: entry.Comment,
		Link:    fmt.Sprintf("%sproject/%s/%s/%d", setting.Server.AppURL, p.Slug, item.ItemKind().PermissionSlug(), item.GetID()),
		Changes: entryChanges(entry),
	}
	if err := Enqueue(templateID, recipients, data); err != nil {
		log.Error("MailItemEntry [%s]: %v", entry.Key, err)
	}
}

// ItemTitle renders an item the way users refer to it, for example "US #12 Login page"
func ItemTitle(item agile_model.Item) string {
	switch it := item.(type) {
	case *agile_model.UserStory:
		return fmt.Sprintf("US #%d %s", it.Ref, it.Subject)
	case *agile_model.Task:
		return fmt.Sprintf("Task #%d %s", it.Ref, it.Subject)
	case *agile_model.Issue:
		return fmt.Sprintf("Issue #%d %s", it.Ref, it.Subject)
	case *agile_model.Epic:
		return fmt.Sprintf("Epic #%d %s", it.Ref, it.Subject)
	case *agile_model.Milestone:
		return "Sprint " + it.Name
	}
	return fmt.Sprintf("%s %d", item.ItemKind(), item.GetID())
}

func entryChanges(entry *history_model.Entry) []FieldChange {
	fields := slices.Sorted(maps.Keys(entry.Diff))
	changes := make([]FieldChange, 0, len(fields))
	for _, f := range fields {
		change := entry.Diff[f]
		changes = append(changes, FieldChange{
			Field: f,
			Old:   displayValue(entry.Values[f], change[0]),
			New:   displayValue(entry.Values[f], change[1]),
		})
	}
	return changes
}

// displayValue prefers the rendered name of a foreign key
func displayValue(names map[string]string, v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, displayValue(names, p))
		}
		return strings.Join(parts, ", ")
	case float64:
		key := fmt.Sprintf("%d", int64(val))
		if name, ok := names[key]; ok {
			return name
		}
		if val == float64(int64(val)) {
			return key
		}
	case int64:
		key := fmt.Sprintf("%d", val)
		if name, ok := names[key]; ok {
			return name
		}
		return key
	}
	return fmt.Sprint(v)
}
