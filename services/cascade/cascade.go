// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cascade

import (
	"context"
	"fmt"
	"slices"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/metrics"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// Recorder is told about every derived write with the row before and after it
type Recorder func(ctx context.Context, pre, post agile_model.Item) error

// Batch collects the user stories and milestones touched by one mutation and
// re-evaluates each of them once, tasks first, then user stories, then milestones.
// It must be used inside the transaction of the mutation.
type Batch struct {
	ProjectID int64
	// Importing writes keep the modified stamps and bump no counters
	Importing bool
	Recorder  Recorder
	Now       timeutil.TimeStamp

	statuses       map[int64]*project_model.Status
	storyMoves     map[int64]struct{}
	dirtyStories   map[int64]struct{}
	dirtyMilestone map[int64]struct{}
	visited        map[string]bool
	writes         int
}

// NewBatch returns an empty batch for the project, origin is excluded from the derived writes
func NewBatch(projectID int64, origin agile_model.Item) *Batch {
	b := &Batch{
		ProjectID:      projectID,
		Now:            timeutil.TimeStampNow(),
		storyMoves:     map[int64]struct{}{},
		dirtyStories:   map[int64]struct{}{},
		dirtyMilestone: map[int64]struct{}{},
		visited:        map[string]bool{},
	}
	if origin != nil {
		b.Exclude(origin)
	}
	return b
}

// Exclude keeps the derived writes away from item, used once a created origin has its id
func (b *Batch) Exclude(item agile_model.Item) {
	b.visited[visitKey(item.ItemKind(), item.GetID())] = true
}

func visitKey(kind project_model.ItemKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// Writes returns the number of derived rows written so far
func (b *Batch) Writes() int {
	return b.writes
}

// MarkStory asks for the closure of the user story to be re-evaluated
func (b *Batch) MarkStory(id int64) {
	if id > 0 {
		b.dirtyStories[id] = struct{}{}
	}
}

// MarkMilestone asks for the closure of the milestone to be re-evaluated
func (b *Batch) MarkMilestone(id int64) {
	if id > 0 {
		b.dirtyMilestone[id] = struct{}{}
	}
}

// MarkStoryMoved asks for the tasks of the user story to follow its milestone
func (b *Batch) MarkStoryMoved(id int64) {
	if id > 0 {
		b.storyMoves[id] = struct{}{}
	}
}

// IsStatusClosed reports the closed bit of a status of the project, a missing status is open
func (b *Batch) IsStatusClosed(ctx context.Context, statusID int64) (bool, error) {
	if statusID <= 0 {
		return false, nil
	}
	if b.statuses == nil {
		statuses, err := project_model.GetProjectStatuses(ctx, b.ProjectID)
		if err != nil {
			return false, err
		}
		b.statuses = statuses
	}
	s, ok := b.statuses[statusID]
	return ok && s.IsClosed, nil
}

// Run applies the derived writes in topological order, each row at most once
func (b *Batch) Run(ctx context.Context) error {
	for _, id := range sortedIDs(b.storyMoves) {
		if err := b.followStory(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range sortedIDs(b.dirtyStories) {
		if err := b.evaluateStory(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range sortedIDs(b.dirtyMilestone) {
		if err := b.evaluateMilestone(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// followStory moves the tasks of the user story to its milestone
func (b *Batch) followStory(ctx context.Context, storyID int64) error {
	us, err := agile_model.GetUserStoryByID(ctx, storyID)
	if agile_model.IsErrNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	tasks, err := agile_model.GetTasksByUserStory(ctx, storyID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.MilestoneID == us.MilestoneID {
			continue
		}
		b.MarkMilestone(t.MilestoneID)
		b.MarkMilestone(us.MilestoneID)
		pre := *t
		t.MilestoneID = us.MilestoneID
		if err := b.write(ctx, &pre, t, "milestone_id"); err != nil {
			return err
		}
	}
	return nil
}

// StoryClosure computes the closure of a user story from its status and its tasks
func (b *Batch) StoryClosure(ctx context.Context, us *agile_model.UserStory) (bool, error) {
	closed, err := b.IsStatusClosed(ctx, us.StatusID)
	if err != nil || !closed || us.ID == 0 {
		return closed, err
	}
	tasks, err := agile_model.GetTasksByUserStory(ctx, us.ID)
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		taskClosed, err := b.IsStatusClosed(ctx, t.StatusID)
		if err != nil {
			return false, err
		}
		if !taskClosed {
			return false, nil
		}
	}
	return true, nil
}

// SetStoryClosure sets the derived closure of a user story, entering closure stamps the finish date
func (b *Batch) SetStoryClosure(us *agile_model.UserStory, closed bool) bool {
	switch {
	case closed && !us.IsClosed:
		us.IsClosed, us.FinishDate = true, b.Now
	case !closed && us.IsClosed:
		us.IsClosed, us.FinishDate = false, 0
	case closed && us.FinishDate == 0:
		us.FinishDate = b.Now
	case !closed && us.FinishDate != 0:
		us.FinishDate = 0
	default:
		return false
	}
	return true
}

// SetFinishedDate stamps or clears the finished date of a task or an issue following its closed bit
func (b *Batch) SetFinishedDate(date *timeutil.TimeStamp, closed bool) bool {
	switch {
	case closed && *date == 0:
		*date = b.Now
	case !closed && *date != 0:
		*date = 0
	default:
		return false
	}
	return true
}

func (b *Batch) evaluateStory(ctx context.Context, storyID int64) error {
	key := visitKey(project_model.KindUserStory, storyID)
	if b.visited[key] {
		return nil
	}
	b.visited[key] = true

	us, err := agile_model.GetUserStoryByID(ctx, storyID)
	if agile_model.IsErrNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	closed, err := b.StoryClosure(ctx, us)
	if err != nil {
		return err
	}
	pre := *us
	if !b.SetStoryClosure(us, closed) {
		return nil
	}
	b.MarkMilestone(us.MilestoneID)
	return b.write(ctx, &pre, us, "is_closed", "finish_date")
}

// MilestoneClosure computes the closure of a milestone, ok is false when it holds no item
func (b *Batch) MilestoneClosure(ctx context.Context, milestoneID int64) (closed, ok bool, err error) {
	stories, err := agile_model.GetUserStoriesByMilestone(ctx, milestoneID)
	if err != nil {
		return false, false, err
	}
	tasks, err := agile_model.GetTasksByMilestone(ctx, milestoneID)
	if err != nil {
		return false, false, err
	}
	if len(stories)+len(tasks) == 0 {
		return false, false, nil
	}
	for _, us := range stories {
		if !us.IsClosed {
			return false, true, nil
		}
	}
	for _, t := range tasks {
		taskClosed, err := b.IsStatusClosed(ctx, t.StatusID)
		if err != nil {
			return false, false, err
		}
		if !taskClosed {
			return false, true, nil
		}
	}
	return true, true, nil
}

func (b *Batch) evaluateMilestone(ctx context.Context, milestoneID int64) error {
	key := visitKey(project_model.KindMilestone, milestoneID)
	if b.visited[key] {
		return nil
	}
	b.visited[key] = true

	m, err := agile_model.GetMilestoneByID(ctx, milestoneID)
	if agile_model.IsErrNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	closed, ok, err := b.MilestoneClosure(ctx, milestoneID)
	if err != nil {
		return err
	}
	if !ok || closed == m.Closed {
		return nil
	}
	pre := *m
	m.Closed = closed
	return b.write(ctx, &pre, m, "closed")
}

// DetachMilestone moves every user story, task and issue of the milestone out of it, closures are unchanged
func (b *Batch) DetachMilestone(ctx context.Context, milestoneID int64) error {
	stories, err := agile_model.GetUserStoriesByMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	for _, us := range stories {
		pre := *us
		us.MilestoneID = 0
		if err := b.write(ctx, &pre, us, "milestone_id"); err != nil {
			return err
		}
	}
	tasks, err := agile_model.GetTasksByMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		pre := *t
		t.MilestoneID = 0
		if err := b.write(ctx, &pre, t, "milestone_id"); err != nil {
			return err
		}
	}
	issues, err := agile_model.GetIssuesByMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		pre := *issue
		issue.MilestoneID = 0
		if err := b.write(ctx, &pre, issue, "milestone_id"); err != nil {
			return err
		}
	}
	return nil
}

// DetachStory moves the tasks of a deleted user story out of it, they keep their milestone
func (b *Batch) DetachStory(ctx context.Context, storyID int64) error {
	tasks, err := agile_model.GetTasksByUserStory(ctx, storyID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		pre := *t
		t.UserStoryID = 0
		if err := b.write(ctx, &pre, t, "user_story_id"); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batch) write(ctx context.Context, pre, post agile_model.Item, cols ...string) error {
	var err error
	if b.Importing {
		err = agile_model.UpdateItemColsNoAutoTime(ctx, post, cols...)
	} else {
		err = agile_model.UpdateItemCols(ctx, post, cols...)
	}
	if err != nil {
		return fmt.Errorf("cascade write of %s %d: %w", post.ItemKind(), post.GetID(), err)
	}
	b.writes++
	log.Trace("cascade: %s %d wrote %v", post.ItemKind(), post.GetID(), cols)
	if b.Importing {
		return nil
	}
	metrics.CascadeWrites.WithLabelValues(string(post.ItemKind())).Inc()
	if b.Recorder != nil {
		return b.Recorder(ctx, pre, post)
	}
	return nil
}
