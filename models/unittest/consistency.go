// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package unittest

import (
	"slices"

	"github.com/taigaio/taiga-back-sub001/models/db"

	"github.com/stretchr/testify/assert"
	"xorm.io/builder"
)

// the rows are read through plain structs so that unittest does not import the models it checks

type statusRow struct {
	ID       int64
	IsClosed bool
}

type storyRow struct {
	ID          int64
	Ref         int64
	StatusID    int64
	MilestoneID int64
	IsClosed    bool
	FinishDate  int64
}

type taskRow struct {
	ID           int64
	Ref          int64
	StatusID     int64
	UserStoryID  int64
	MilestoneID  int64
	FinishedDate int64
}

type issueRow struct {
	ID           int64
	Ref          int64
	StatusID     int64
	FinishedDate int64
}

type milestoneRow struct {
	ID     int64
	Closed bool
}

type roleRow struct {
	ID         int64
	Computable bool
}

type rolePointsRow struct {
	UserStoryID int64
	RoleID      int64
}

type projectRow struct {
	ID           int64
	LastUsRef    int64 `xorm:"'last_us_ref'"`
	LastTaskRef  int64
	LastIssueRef int64
	LastEpicRef  int64
}

// AssertCountByCond test the count of database entries matching bean
func AssertCountByCond(t assert.TestingT, tableName string, cond builder.Cond, expected int) bool {
	actual, err := db.GetEngine(db.DefaultContext).Table(tableName).Where(cond).Count()
	return assert.NoError(t, err) && assert.EqualValues(t, expected, actual,
		"Failed consistency test, the counted bean (of table %s) was %+v", tableName, cond)
}

func findRows[T any](t assert.TestingT, table string, projectID int64) []*T {
	rows := make([]*T, 0, 10)
	assert.NoError(t, db.GetEngine(db.DefaultContext).Table(table).Where("project_id=?", projectID).Find(&rows))
	return rows
}

// CheckProjectConsistency asserts that the derived state of every agile item of the project agrees
// with its status, its tasks and the project catalogs
func CheckProjectConsistency(t assert.TestingT, projectID int64) {
	p := new(projectRow)
	has, err := db.GetEngine(db.DefaultContext).Table("project").ID(projectID).Get(p)
	if !assert.NoError(t, err) || !assert.True(t, has, "project %d", projectID) {
		return
	}

	statuses := map[int64]bool{}
	for _, s := range findRows[statusRow](t, "work_item_status", projectID) {
		statuses[s.ID] = s.IsClosed
	}
	stories := findRows[storyRow](t, "user_story", projectID)
	tasks := findRows[taskRow](t, "task", projectID)
	issues := findRows[issueRow](t, "issue", projectID)
	milestones := findRows[milestoneRow](t, "milestone", projectID)

	checkRefs := func(kind string, refs []int64, last int64) {
		seen := make(map[int64]bool, len(refs))
		for _, ref := range refs {
			assert.False(t, seen[ref], "%s ref %d is duplicated", kind, ref)
			assert.LessOrEqual(t, ref, last, "%s ref %d is above the project counter", kind, ref)
			seen[ref] = true
		}
	}
	storyRefs := make([]int64, 0, len(stories))
	for _, us := range stories {
		storyRefs = append(storyRefs, us.Ref)
	}
	checkRefs("userstory", storyRefs, p.LastUsRef)
	taskRefs := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		taskRefs = append(taskRefs, task.Ref)
	}
	checkRefs("task", taskRefs, p.LastTaskRef)
	issueRefs := make([]int64, 0, len(issues))
	for _, issue := range issues {
		issueRefs = append(issueRefs, issue.Ref)
	}
	checkRefs("issue", issueRefs, p.LastIssueRef)

	openTasks := map[int64]int{}
	storyByID := make(map[int64]*storyRow, len(stories))
	for _, us := range stories {
		storyByID[us.ID] = us
	}
	for _, task := range tasks {
		closed := statuses[task.StatusID]
		assert.Equal(t, closed, task.FinishedDate != 0, "task %d finished date does not follow its status", task.ID)
		if task.UserStoryID == 0 {
			continue
		}
		if !closed {
			openTasks[task.UserStoryID]++
		}
		if us, ok := storyByID[task.UserStoryID]; assert.True(t, ok, "task %d points at a missing user story", task.ID) {
			assert.Equal(t, us.MilestoneID, task.MilestoneID, "task %d does not follow the milestone of its user story", task.ID)
		}
	}
	for _, us := range stories {
		expected := statuses[us.StatusID] && openTasks[us.ID] == 0
		assert.Equal(t, expected, us.IsClosed, "user story %d closure", us.ID)
		assert.Equal(t, us.IsClosed, us.FinishDate != 0, "user story %d finish date does not follow its closure", us.ID)
	}
	for _, issue := range issues {
		assert.Equal(t, statuses[issue.StatusID], issue.FinishedDate != 0, "issue %d finished date does not follow its status", issue.ID)
	}

	for _, m := range milestones {
		total, allClosed := 0, true
		for _, us := range stories {
			if us.MilestoneID == m.ID {
				total++
				allClosed = allClosed && us.IsClosed
			}
		}
		for _, task := range tasks {
			if task.MilestoneID == m.ID {
				total++
				allClosed = allClosed && statuses[task.StatusID]
			}
		}
		if total > 0 {
			assert.Equal(t, allClosed, m.Closed, "milestone %d closure", m.ID)
		}
	}

	computable := make([]int64, 0, 8)
	for _, r := range findRows[roleRow](t, "role", projectID) {
		if r.Computable {
			computable = append(computable, r.ID)
		}
	}
	slices.Sort(computable)
	if len(stories) == 0 {
		return
	}
	storyIDs := make([]int64, 0, len(stories))
	for _, us := range stories {
		storyIDs = append(storyIDs, us.ID)
	}
	points := make([]*rolePointsRow, 0, len(stories)*len(computable))
	assert.NoError(t, db.GetEngine(db.DefaultContext).Table("role_points").In("user_story_id", storyIDs).Find(&points))
	roles := map[int64][]int64{}
	for _, rp := range points {
		roles[rp.UserStoryID] = append(roles[rp.UserStoryID], rp.RoleID)
	}
	for _, us := range stories {
		got := roles[us.ID]
		slices.Sort(got)
		assert.Equal(t, computable, append([]int64{}, got...), "user story %d points roles", us.ID)
	}
}
