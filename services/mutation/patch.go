// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mutation

import (
	"context"
	"maps"
	"regexp"
	"slices"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/services/cascade"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// applier writes a normalized patch onto an item and collects the columns to store
type applier struct {
	project *project_model.Project
	batch   *cascade.Batch
	patch   map[string]any
	// creating is set while the item has no row yet
	creating bool

	cols   []string
	points map[int64]int64
	tags   []string
}

func (a *applier) set(cols ...string) {
	for _, col := range cols {
		if !slices.Contains(a.cols, col) {
			a.cols = append(a.cols, col)
		}
	}
}

// fields iterates the patch in a stable order
func (a *applier) fields() []string {
	return slices.Sorted(maps.Keys(a.patch))
}

func (a *applier) has(field string) bool {
	_, ok := a.patch[field]
	return ok
}

func unknownField(field string) error {
	return agile_model.NewErrValidation(field, "unknown field")
}

// apply dispatches on the kind of item, pre is nil on creation
func (a *applier) apply(ctx context.Context, pre, item agile_model.Item) error {
	switch it := item.(type) {
	case *agile_model.UserStory:
		p, _ := pre.(*agile_model.UserStory)
		return a.applyUserStory(ctx, p, it)
	case *agile_model.Task:
		p, _ := pre.(*agile_model.Task)
		return a.applyTask(ctx, p, it)
	case *agile_model.Issue:
		p, _ := pre.(*agile_model.Issue)
		return a.applyIssue(ctx, p, it)
	case *agile_model.Epic:
		return a.applyEpic(ctx, it)
	case *agile_model.Milestone:
		return a.applyMilestone(ctx, it)
	}
	return agile_model.NewErrValidation("kind", "unsupported item %T", item)
}

// applyCommon handles the fields shared by the work items, handled reports whether field was one of them
func (a *applier) applyCommon(ctx context.Context, kind project_model.ItemKind, field string, subject, description *string, statusID, assignedToID *int64, tags *[]string) (handled bool, err error) {
	v := a.patch[field]
	switch field {
	case "subject":
		*subject, err = asRequiredString(field, v)
		a.set("subject")
	case "description":
		*description, err = asString(field, v)
		a.set("description")
	case "status":
		if *statusID, err = asID(field, v); err == nil {
			err = a.checkStatus(ctx, kind, *statusID)
		}
		a.set("status_id")
	case "assigned_to":
		if *assignedToID, err = asID(field, v); err == nil {
			err = a.checkAssignee(ctx, *assignedToID)
		}
		a.set("assigned_to_id")
	case "tags":
		*tags, err = asTags(field, v)
		a.tags = *tags
		a.set("tags")
	default:
		return false, nil
	}
	return true, err
}

// defaults fills the status and the subject check of a new work item
func (a *applier) defaults(ctx context.Context, kind project_model.ItemKind, subject string, statusID *int64) error {
	if !a.creating {
		return nil
	}
	if subject == "" {
		return agile_model.NewErrValidation("subject", "this field is required")
	}
	if *statusID > 0 {
		return nil
	}
	s, err := project_model.GetDefaultStatus(ctx, a.project.ID, kind)
	if err != nil {
		return err
	}
	*statusID = s.ID
	a.set("status_id")
	return nil
}

func (a *applier) applyUserStory(ctx context.Context, pre, us *agile_model.UserStory) error {
	for _, field := range a.fields() {
		handled, err := a.applyCommon(ctx, project_model.KindUserStory, field, &us.Subject, &us.Description, &us.StatusID, &us.AssignedToID, &us.Tags)
		if err != nil {
			return err
		} else if handled {
			continue
		}
		v := a.patch[field]
		switch field {
		case "milestone":
			if us.MilestoneID, err = asID(field, v); err == nil {
				_, err = a.checkMilestone(ctx, us.MilestoneID)
			}
			a.set("milestone_id")
		case "backlog_order":
			us.BacklogOrder, err = asInt(field, v)
			a.set("backlog_order")
		case "points":
			if a.points, err = asPoints(field, v); err == nil {
				err = a.checkPoints(ctx, a.points)
			}
		default:
			err = unknownField(field)
		}
		if err != nil {
			return err
		}
	}
	if err := a.defaults(ctx, project_model.KindUserStory, us.Subject, &us.StatusID); err != nil {
		return err
	}

	statusChanged := a.creating || pre.StatusID != us.StatusID
	milestoneChanged := !a.creating && pre.MilestoneID != us.MilestoneID
	if statusChanged {
		closed, err := a.batch.StoryClosure(ctx, us)
		if err != nil {
			return err
		}
		if a.batch.SetStoryClosure(us, closed) {
			a.set("is_closed", "finish_date")
		}
		a.batch.MarkMilestone(us.MilestoneID)
	}
	if milestoneChanged {
		a.batch.MarkStoryMoved(us.ID)
		a.batch.MarkMilestone(pre.MilestoneID)
		a.batch.MarkMilestone(us.MilestoneID)
	}
	return nil
}

func (a *applier) applyTask(ctx context.Context, pre, t *agile_model.Task) error {
	for _, field := range a.fields() {
		handled, err := a.applyCommon(ctx, project_model.KindTask, field, &t.Subject, &t.Description, &t.StatusID, &t.AssignedToID, &t.Tags)
		if err != nil {
			return err
		} else if handled {
			continue
		}
		v := a.patch[field]
		switch field {
		case "user_story":
			t.UserStoryID, err = asID(field, v)
			a.set("user_story_id")
		case "milestone":
			if t.MilestoneID, err = asID(field, v); err == nil {
				_, err = a.checkMilestone(ctx, t.MilestoneID)
			}
			a.set("milestone_id")
		case "taskboard_order":
			t.TaskboardOrder, err = asInt(field, v)
			a.set("taskboard_order")
		case "is_iocaine":
			t.IsIocaine, err = asBool(field, v)
			a.set("is_iocaine")
		default:
			err = unknownField(field)
		}
		if err != nil {
			return err
		}
	}
	if err := a.defaults(ctx, project_model.KindTask, t.Subject, &t.StatusID); err != nil {
		return err
	}

	// a task of a user story follows the milestone of the story
	if t.UserStoryID > 0 && (a.creating || a.has("user_story") || a.has("milestone")) {
		us, err := a.checkUserStory(ctx, t.UserStoryID)
		if err != nil {
			return err
		}
		if a.has("milestone") && t.MilestoneID != us.MilestoneID {
			return agile_model.ErrPreconditionFailed{Reason: "the milestone of a task must be the milestone of its user story"}
		}
		if t.MilestoneID != us.MilestoneID {
			t.MilestoneID = us.MilestoneID
			a.set("milestone_id")
		}
	}

	statusChanged := a.creating || pre.StatusID != t.StatusID
	if statusChanged {
		closed, err := a.batch.IsStatusClosed(ctx, t.StatusID)
		if err != nil {
			return err
		}
		if a.batch.SetFinishedDate(&t.FinishedDate, closed) {
			a.set("finished_date")
		}
	}
	switch {
	case a.creating:
		a.batch.MarkStory(t.UserStoryID)
		a.batch.MarkMilestone(t.MilestoneID)
	default:
		if statusChanged || pre.UserStoryID != t.UserStoryID {
			a.batch.MarkStory(pre.UserStoryID)
			a.batch.MarkStory(t.UserStoryID)
		}
		if statusChanged || pre.MilestoneID != t.MilestoneID {
			a.batch.MarkMilestone(pre.MilestoneID)
			a.batch.MarkMilestone(t.MilestoneID)
		}
	}
	return nil
}

func (a *applier) applyIssue(ctx context.Context, pre, i *agile_model.Issue) error {
	for _, field := range a.fields() {
		handled, err := a.applyCommon(ctx, project_model.KindIssue, field, &i.Subject, &i.Description, &i.StatusID, &i.AssignedToID, &i.Tags)
		if err != nil {
			return err
		} else if handled {
			continue
		}
		v := a.patch[field]
		switch field {
		case "severity":
			if i.SeverityID, err = asID(field, v); err == nil {
				err = checkCatalog[project_model.Severity](ctx, a.project.ID, field, i.SeverityID)
			}
			a.set("severity_id")
		case "priority":
			if i.PriorityID, err = asID(field, v); err == nil {
				err = checkCatalog[project_model.Priority](ctx, a.project.ID, field, i.PriorityID)
			}
			a.set("priority_id")
		case "type":
			if i.TypeID, err = asID(field, v); err == nil {
				err = checkCatalog[project_model.IssueType](ctx, a.project.ID, field, i.TypeID)
			}
			a.set("type_id")
		case "milestone":
			if i.MilestoneID, err = asID(field, v); err == nil {
				_, err = a.checkMilestone(ctx, i.MilestoneID)
			}
			a.set("milestone_id")
		default:
			err = unknownField(field)
		}
		if err != nil {
			return err
		}
	}
	if err := a.defaults(ctx, project_model.KindIssue, i.Subject, &i.StatusID); err != nil {
		return err
	}
	if a.creating {
		if err := defaultCatalog[project_model.Severity](ctx, a.project.ID, &i.SeverityID, func(e *project_model.Severity) int64 { return e.ID }); err != nil {
			return err
		}
		if err := defaultCatalog[project_model.Priority](ctx, a.project.ID, &i.PriorityID, func(e *project_model.Priority) int64 { return e.ID }); err != nil {
			return err
		}
		if err := defaultCatalog[project_model.IssueType](ctx, a.project.ID, &i.TypeID, func(e *project_model.IssueType) int64 { return e.ID }); err != nil {
			return err
		}
	}

	if a.creating || pre.StatusID != i.StatusID {
		closed, err := a.batch.IsStatusClosed(ctx, i.StatusID)
		if err != nil {
			return err
		}
		if a.batch.SetFinishedDate(&i.FinishedDate, closed) {
			a.set("finished_date")
		}
	}
	return nil
}

func (a *applier) applyEpic(ctx context.Context, e *agile_model.Epic) error {
	for _, field := range a.fields() {
		handled, err := a.applyCommon(ctx, project_model.KindEpic, field, &e.Subject, &e.Description, &e.StatusID, &e.AssignedToID, &e.Tags)
		if err != nil {
			return err
		} else if handled {
			continue
		}
		v := a.patch[field]
		switch field {
		case "color":
			if e.Color, err = asString(field, v); err == nil && e.Color != "" && !colorPattern.MatchString(e.Color) {
				err = agile_model.NewErrValidation(field, "invalid color %q", e.Color)
			}
			a.set("color")
		case "epics_order":
			e.EpicsOrder, err = asInt(field, v)
			a.set("epics_order")
		default:
			err = unknownField(field)
		}
		if err != nil {
			return err
		}
	}
	if err := a.defaults(ctx, project_model.KindEpic, e.Subject, &e.StatusID); err != nil {
		return err
	}
	if a.creating && e.Color == "" {
		e.Color = project_model.TagColor(e.Subject)
	}
	return nil
}

func (a *applier) applyMilestone(ctx context.Context, m *agile_model.Milestone) error {
	for _, field := range a.fields() {
		v := a.patch[field]
		var err error
		switch field {
		case "name":
			if m.Name, err = asRequiredString(field, v); err == nil {
				err = agile_model.CheckMilestoneName(ctx, m)
			}
			a.set("name", "slug")
		case "estimated_start":
			m.EstimatedStart, err = asDate(field, v)
			a.set("estimated_start")
		case "estimated_finish":
			m.EstimatedFinish, err = asDate(field, v)
			a.set("estimated_finish")
		case "closed":
			if m.Closed, err = asBool(field, v); err == nil && !a.creating {
				err = checkEmptyMilestone(ctx, m.ID)
			}
			a.set("closed")
		case "disponibility":
			m.Disponibility, err = asFloat(field, v)
			a.set("disponibility")
		case "sort_order":
			m.SortOrder, err = asInt(field, v)
			a.set("sort_order")
		default:
			err = unknownField(field)
		}
		if err != nil {
			return err
		}
	}
	if a.creating && !a.has("name") {
		return agile_model.NewErrValidation("name", "this field is required")
	}
	if m.EstimatedStart != 0 && m.EstimatedFinish != 0 && m.EstimatedFinish < m.EstimatedStart {
		return agile_model.NewErrValidation("estimated_finish", "the milestone ends before it starts")
	}
	return nil
}

// checkEmptyMilestone allows an explicit closed bit only while nothing derives it
func checkEmptyMilestone(ctx context.Context, milestoneID int64) error {
	n, err := agile_model.CountMilestoneItems(ctx, milestoneID)
	if err != nil {
		return err
	}
	if n > 0 {
		return agile_model.ErrPreconditionFailed{Reason: "the closed state of a milestone with items is derived from them"}
	}
	return nil
}

func (a *applier) checkStatus(ctx context.Context, kind project_model.ItemKind, statusID int64) error {
	if statusID == 0 {
		return agile_model.NewErrValidation("status", "this field is required")
	}
	_, err := project_model.GetStatusByID(ctx, a.project.ID, kind, statusID)
	if project_model.IsErrCatalogEntryNotExist(err) {
		return agile_model.NewErrValidation("status", "unknown %s status %d", kind, statusID)
	}
	return err
}

func (a *applier) checkAssignee(ctx context.Context, userID int64) error {
	if userID == 0 {
		return nil
	}
	u, err := user_model.GetUserByID(ctx, userID)
	if user_model.IsErrUserNotExist(err) {
		return agile_model.NewErrValidation("assigned_to", "unknown user %d", userID)
	} else if err != nil {
		return err
	}
	member, err := project_model.IsMember(ctx, a.project, u.ID)
	if err != nil {
		return err
	}
	if !member {
		return agile_model.NewErrValidation("assigned_to", "user %s is not a member of the project", u.Name)
	}
	return nil
}

func (a *applier) checkMilestone(ctx context.Context, milestoneID int64) (*agile_model.Milestone, error) {
	if milestoneID == 0 {
		return nil, nil
	}
	m, err := agile_model.GetMilestoneByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.ProjectID != a.project.ID {
		return nil, agile_model.ErrPreconditionFailed{Reason: "the milestone belongs to another project"}
	}
	return m, nil
}

func (a *applier) checkUserStory(ctx context.Context, storyID int64) (*agile_model.UserStory, error) {
	us, err := agile_model.GetUserStoryByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if us.ProjectID != a.project.ID {
		return nil, agile_model.ErrPreconditionFailed{Reason: "the user story belongs to another project"}
	}
	return us, nil
}

func (a *applier) checkPoints(ctx context.Context, points map[int64]int64) error {
	for roleID, pointsID := range points {
		role, err := project_model.GetRoleByID(ctx, a.project.ID, roleID)
		if project_model.IsErrCatalogEntryNotExist(err) {
			return agile_model.NewErrValidation("points", "unknown role %d", roleID)
		} else if err != nil {
			return err
		}
		if !role.Computable {
			return agile_model.NewErrValidation("points", "role %s does not estimate", role.Name)
		}
		if err := checkCatalog[project_model.Points](ctx, a.project.ID, "points", pointsID); err != nil {
			return err
		}
	}
	return nil
}

func checkCatalog[T project_model.CatalogEntry](ctx context.Context, projectID int64, field string, id int64) error {
	if id == 0 {
		return agile_model.NewErrValidation(field, "this field is required")
	}
	_, err := project_model.GetCatalogEntry[T](ctx, projectID, id)
	if project_model.IsErrCatalogEntryNotExist(err) {
		return agile_model.NewErrValidation(field, "unknown %s %d", field, id)
	}
	return err
}

func defaultCatalog[T project_model.CatalogEntry](ctx context.Context, projectID int64, id *int64, idOf func(*T) int64) error {
	if *id > 0 {
		return nil
	}
	entry, err := project_model.GetDefaultCatalogEntry[T](ctx, projectID)
	if err != nil {
		return err
	}
	*id = idOf(entry)
	return nil
}
