// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	attachment_model "github.com/taigaio/taiga-back-sub001/models/attachment"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

// the task comes before its user story on purpose, the file source orders the items
const testDump = `
project:
  name: Legacy
  description: imported from a dump
  created: 2020-01-02T03:04:05Z
users:
  - external_id: u1
    name: Alice
  - external_id: u2
    name: Bob
statuses:
  - kind: userstory
    name: Resolved
    is_closed: true
    known: true
  - kind: task
    name: Won't fix
    known: false
milestones:
  - external_id: m1
    name: Sprint 1
    created: 2020-01-02T10:00:00Z
work_items:
  - kind: task
    external_id: t1
    ref: 3
    subject: Write docs
    status: Closed
    user_story: us1
    created: 2020-01-03T11:00:00Z
  - kind: userstory
    external_id: us1
    ref: 7
    subject: Docs
    status: Resolved
    owner_id: u1
    milestone: m1
    epic: e1
    points: 3
    tags: [docs]
    created: 2020-01-03T10:00:00Z
  - kind: userstory
    external_id: us2
    ref: 7
    subject: Second
    status: New
    created: 2020-01-03T12:00:00Z
  - kind: userstory
    external_id: broken
    subject: ""
  - kind: epic
    external_id: e1
    ref: 1
    subject: Epic
    created: 2020-01-02T12:00:00Z
  - kind: issue
    external_id: i1
    subject: Crash
    status: Triaged
    priority: High
    created: 2020-01-05T10:00:00Z
history:
  - item_kind: userstory
    item_external_id: us1
    author_id: u2
    author_name: Bob
    comment: looks good
    changes:
      - field: subject
        from: Doc
        to: Docs
    created: 2020-01-04T10:00:00Z
  - item_kind: userstory
    item_external_id: us1
    author_id: u1
    changes:
      - field: status
        from: New
        to: Resolved
      - field: assigned_to
        from: ""
        to: Alice
    created: 2020-01-04T11:00:00Z
  - item_kind: userstory
    item_external_id: us2
    author_name: Carol
    comment: written before the story existed
    created: 2020-01-01T00:00:00Z
attachments:
  - item_kind: userstory
    item_external_id: us1
    name: notes.txt
    content_type: text/plain
    download_url: files/notes.txt
`

func writeDump(t *testing.T, dump string) string {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "files"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "notes.txt"), []byte("hello world"), 0o644))
	path := filepath.Join(dir, "dump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dump), 0o644))
	return path
}

func prepareUsers(t *testing.T) (owner, alice *user_model.User) {
	unittest.PrepareTestEnv(t)
	owner = &user_model.User{Name: "owner", Email: "owner@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(db.DefaultContext, owner))
	alice = &user_model.User{Name: "alice", Email: "alice@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(db.DefaultContext, alice))
	return owner, alice
}

func TestImportFromDump(t *testing.T) {
	owner, alice := prepareUsers(t)
	ctx := db.DefaultContext

	var progress []int
	p, err := ImportProject(ctx, owner, base.ImportOptions{
		Source:       base.SourceFile,
		FilePath:     writeDump(t, testDump),
		UserBindings: map[string]int64{"u1": alice.ID},
		History:      true,
		Attachments:  true,
	}, func(pct int) { progress = append(progress, pct) })
	require.NoError(t, err)
	assert.Equal(t, 100, progress[len(progress)-1])
	assert.IsIncreasing(t, progress)

	p, err = project_model.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Legacy", p.Name)
	assert.Equal(t, owner.ID, p.OwnerID)
	assert.Equal(t, base.SourceFile, p.ImportedFrom)
	assert.Equal(t, timeutil.FromTime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)), p.CreatedUnix)
	assert.Contains(t, p.TagsColors, "docs")

	stories, err := agile_model.GetProjectUserStories(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	byRef := map[int64]*agile_model.UserStory{}
	for _, us := range stories {
		byRef[us.Ref] = us
	}
	us1, us2 := byRef[7], byRef[8]
	require.NotNil(t, us1)
	require.NotNil(t, us2)
	assert.Equal(t, "Docs", us1.Subject)
	assert.Equal(t, alice.ID, us1.OwnerID)
	assert.Equal(t, owner.ID, us2.OwnerID)
	assert.Equal(t, timeutil.FromTime(time.Date(2020, 1, 3, 10, 0, 0, 0, time.UTC)), us1.CreatedUnix)
	// a closed status with every task closed closes the story during reconciliation
	assert.True(t, us1.IsClosed)
	assert.NotZero(t, us1.FinishDate)
	assert.False(t, us2.IsClosed)
	assert.Equal(t, []string{"docs"}, us1.Tags)

	total, err := agile_model.TotalPoints(ctx, us1.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, total, 0.001)

	tasks, err := agile_model.GetTasksByUserStory(ctx, us1.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(3), tasks[0].Ref)
	assert.NotZero(t, us1.MilestoneID)
	assert.Equal(t, us1.MilestoneID, tasks[0].MilestoneID)
	assert.NotZero(t, tasks[0].FinishedDate)

	m, err := agile_model.GetMilestoneByID(ctx, us1.MilestoneID)
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1", m.Name)
	assert.True(t, m.Closed)

	epics, err := agile_model.GetProjectEpics(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Equal(t, project_model.TagColor("Epic"), epics[0].Color)
	related, err := agile_model.GetRelatedUserStories(ctx, epics[0].ID)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, us1.ID, related[0].UserStoryID)

	issues, err := agile_model.GetProjectIssues(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, int64(1), issues[0].Ref)
	triaged, err := project_model.GetStatusByID(ctx, p.ID, project_model.KindIssue, issues[0].StatusID)
	require.NoError(t, err)
	assert.Equal(t, "Triaged", triaged.Name)
	assert.False(t, triaged.IsClosed)

	// without CLOSED_STATUS_GLOBS a status the source cannot classify is open
	statuses, err := project_model.GetStatuses(ctx, p.ID, project_model.KindTask)
	require.NoError(t, err)
	var wontFix *project_model.Status
	for _, s := range statuses {
		if s.Name == "Won't fix" {
			wontFix = s
		}
	}
	require.NotNil(t, wontFix)
	assert.False(t, wontFix.IsClosed)

	// the counters continue after the imported refs
	assert.Equal(t, int64(8), p.LastRef(project_model.KindUserStory))
	ref, err := agile_model.AllocateRef(ctx, p.ID, project_model.KindUserStory)
	require.NoError(t, err)
	assert.Equal(t, int64(9), ref)

	entries, err := history_model.GetEntries(ctx, history_model.Key(project_model.KindUserStory, us1.ID))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, history_model.EntryTypeCreate, entries[0].Type)
	assert.True(t, entries[0].IsSnapshot)
	assert.Equal(t, "looks good", entries[1].Comment)
	assert.Equal(t, int64(0), entries[1].UserID)
	assert.Equal(t, "Bob", entries[1].UserName)
	assert.Equal(t, int64(0), entries[1].Version)
	assert.Empty(t, entries[1].Diff)
	assert.Equal(t, history_model.Change{"Doc", "Docs"}, entries[1].ImportedDiff["subject"])
	assert.Equal(t, alice.ID, entries[2].UserID)
	assert.Equal(t, history_model.Change{"New", "Resolved"}, entries[2].ImportedDiff["status"])

	// replaying the history from the snapshot gives the imported state
	for _, us := range []*agile_model.UserStory{us1, us2} {
		entries, err := history_model.GetEntries(ctx, history_model.Key(project_model.KindUserStory, us.ID))
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.True(t, entries[0].IsSnapshot)
		current, err := history_service.Freeze(ctx, us)
		require.NoError(t, err)
		state, err := history_service.Reconstruct(ctx, project_model.KindUserStory, us.ID, entries[len(entries)-1].ID)
		require.NoError(t, err)
		assert.Equal(t, current, state)
	}

	attachments, err := attachment_model.GetItemAttachments(ctx, project_model.KindUserStory, us1.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "notes.txt", attachments[0].Name)
	assert.Equal(t, int64(len("hello world")), attachments[0].Size)

	// bound users join the project
	_, err = project_model.GetMembership(ctx, p.ID, alice.ID)
	assert.NoError(t, err)
}

func TestImportSkipsBrokenEntities(t *testing.T) {
	owner, _ := prepareUsers(t)
	ctx := db.DefaultContext

	dump := `
project:
  name: Partial
milestones:
  - external_id: m0
    name: ""
work_items:
  - kind: userstory
    external_id: us1
    subject: Story
  - kind: userstory
    external_id: us2
    subject: Other story
attachments:
  - item_kind: userstory
    item_external_id: us1
    name: secret
    download_url: ../../etc/passwd
  - item_kind: userstory
    item_external_id: us1
    name: notes.txt
    download_url: files/notes.txt
  - item_kind: userstory
    item_external_id: us1
    name: missing.txt
    download_url: files/missing.txt
`
	p, err := ImportProject(ctx, owner, base.ImportOptions{
		Source:      base.SourceFile,
		FilePath:    writeDump(t, dump),
		History:     true,
		Attachments: true,
	}, nil)
	require.NoError(t, err)

	stories, err := agile_model.GetProjectUserStories(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	milestones, err := agile_model.GetProjectMilestones(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, milestones)

	var us1 *agile_model.UserStory
	for _, us := range stories {
		if us.Subject == "Story" {
			us1 = us
		}
	}
	require.NotNil(t, us1)
	attachments, err := attachment_model.GetItemAttachments(ctx, project_model.KindUserStory, us1.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "notes.txt", attachments[0].Name)
}

func TestImportCancelledRollsBack(t *testing.T) {
	owner, _ := prepareUsers(t)
	ctx, cancel := context.WithCancel(db.DefaultContext)
	defer cancel()

	_, err := ImportProject(ctx, owner, base.ImportOptions{
		Source:   base.SourceFile,
		FilePath: writeDump(t, testDump),
	}, func(pct int) {
		if pct == 15 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)

	count, err := db.GetEngine(db.DefaultContext).Count(new(project_model.Project))
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = db.GetEngine(db.DefaultContext).Count(new(agile_model.UserStory))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportUnknownSource(t *testing.T) {
	owner, _ := prepareUsers(t)
	_, err := ImportProject(db.DefaultContext, owner, base.ImportOptions{Source: "trello"}, nil)
	assert.Error(t, err)
}

func TestJobOptions(t *testing.T) {
	opts := base.ImportOptions{
		Source:       base.SourceJira,
		ProjectKey:   "APP",
		BaseURL:      "https://jira.example.com",
		AuthToken:    "secret",
		OwnerID:      4,
		History:      true,
		UserBindings: map[string]int64{"acc-1": 2},
	}
	m := OptionsToMap(opts)
	assert.NotContains(t, m, "auth_token")
	for _, v := range m {
		assert.NotEqual(t, "secret", v)
	}

	restored, err := OptionsFromMap(m)
	require.NoError(t, err)
	opts.AuthToken = ""
	assert.Equal(t, opts, restored)

	_, err = OptionsFromMap(map[string]string{"owner_id": "x"})
	assert.Error(t, err)
}
