// Copyright 2019 The Gitea Authors. All rights reserved.
// Copyright 2018 Jonas Franz. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	attachment_model "github.com/taigaio/taiga-back-sub001/models/attachment"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/metrics"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"
	"github.com/taigaio/taiga-back-sub001/services/cascade"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"
	"github.com/taigaio/taiga-back-sub001/services/mutation"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

var _ base.Uploader = &TaigaLocalUploader{}

// TaigaLocalUploader writes an imported project into the local database.
// Foreign ids are resolved through the maps filled by the earlier steps.
type TaigaLocalUploader struct {
	ctx     context.Context
	doer    *user_model.User
	opts    base.ImportOptions
	project *project_model.Project

	pointsRoleID int64
	memberRoleID int64

	userMap    map[string]int64  // external user id mapping to user id
	userNames  map[string]string // external user id mapping to display name
	statuses   map[string]int64  // kind/lower name mapping to status id
	milestones map[string]int64
	items      map[string]int64 // kind/external id mapping to item id
	// storyMilestone keeps the milestone of each imported user story, tasks follow it
	storyMilestone map[int64]int64

	refsUsed map[project_model.ItemKind]map[int64]bool
	maxRef   map[project_model.ItemKind]int64
	// firstEntry keeps the time of the earliest replayed entry of each item, by history key
	firstEntry map[string]timeutil.TimeStamp
}

// NewTaigaLocalUploader creates an uploader writing into the local database on behalf of doer
func NewTaigaLocalUploader(ctx context.Context, doer *user_model.User, opts base.ImportOptions) *TaigaLocalUploader {
	return &TaigaLocalUploader{
		ctx:            ctx,
		doer:           doer,
		opts:           opts,
		userMap:        make(map[string]int64),
		userNames:      make(map[string]string),
		statuses:       make(map[string]int64),
		milestones:     make(map[string]int64),
		items:          make(map[string]int64),
		storyMilestone: make(map[int64]int64),
		refsUsed:       make(map[project_model.ItemKind]map[int64]bool),
		maxRef:         make(map[project_model.ItemKind]int64),
		firstEntry:     make(map[string]timeutil.TimeStamp),
	}
}

// Project returns the created project, nil before CreateProject
func (g *TaigaLocalUploader) Project() *project_model.Project {
	return g.project
}

// MaxBatchInsertSize returns the table's max batch insert size
func (g *TaigaLocalUploader) MaxBatchInsertSize(tp string) int {
	switch tp {
	case "attachment":
		return max(setting.Importer.MaxAttachmentWorkers, 1) * 4
	case "milestone", "workitem", "history":
		return setting.Importer.BatchSize
	}
	return 10
}

func stamp(t time.Time) timeutil.TimeStamp {
	if t.IsZero() {
		return timeutil.TimeStampNow()
	}
	return timeutil.FromTime(t)
}

func itemKey(kind, externalID string) string {
	return kind + "/" + externalID
}

func (g *TaigaLocalUploader) failed(kind string, format string, args ...any) {
	metrics.ImportFailures.WithLabelValues(g.opts.Source, kind).Inc()
	log.Warn("Import of project %d: skipped %s: %s", g.project.ID, kind, fmt.Sprintf(format, args...))
}

func (g *TaigaLocalUploader) imported(kind string) {
	metrics.ImportedEntities.WithLabelValues(g.opts.Source, kind).Inc()
}

// CreateProject creates the local project with its default catalogs
func (g *TaigaLocalUploader) CreateProject(project *base.Project, opts base.ImportOptions) error {
	p := &project_model.Project{
		Name:         cmp.Or(opts.ProjectName, project.Name),
		Description:  project.Description,
		OwnerID:      opts.OwnerID,
		IsPrivate:    opts.IsPrivate || project.IsPrivate,
		ImportedFrom: opts.Source,
	}
	if !project.Created.IsZero() {
		p.CreatedUnix = timeutil.FromTime(project.Created)
		p.UpdatedUnix = p.CreatedUnix
	}
	if err := project_model.InitProject(g.ctx, p); err != nil {
		return err
	}
	g.project = p

	roles, err := project_model.GetRoles(g.ctx, p.ID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r.Computable && g.pointsRoleID == 0 {
			g.pointsRoleID = r.ID
		}
		if g.memberRoleID == 0 {
			g.memberRoleID = r.ID
		}
	}
	log.Info("Import %s: created project %d (%s) from %s", opts.Source, p.ID, p.Slug, project.OriginalURL)
	return nil
}

// Close closes this uploader
func (g *TaigaLocalUploader) Close() {}

// CreateUsers binds the foreign accounts, bound users become members of the project
func (g *TaigaLocalUploader) CreateUsers(users ...*base.User) error {
	for _, u := range users {
		g.userNames[u.ExternalID] = u.Name
		userID := g.opts.UserBindings[u.ExternalID]
		if userID <= 0 {
			continue
		}
		if err := g.bindUser(u.ExternalID, userID); err != nil {
			g.failed("user", "binding of %q to user %d: %v", u.ExternalID, userID, err)
		}
	}
	return nil
}

func (g *TaigaLocalUploader) bindUser(externalID string, userID int64) error {
	return db.WithTx(g.ctx, func(ctx context.Context) error {
		if _, err := user_model.GetUserByID(ctx, userID); err != nil {
			return err
		}
		g.userMap[externalID] = userID
		if userID == g.project.OwnerID || g.memberRoleID == 0 {
			return nil
		}
		if _, err := project_model.GetMembership(ctx, g.project.ID, userID); err == nil {
			return nil
		} else if !project_model.IsErrMembershipNotExist(err) {
			return err
		}
		if _, err := project_model.AddMember(ctx, g.project.ID, userID, g.memberRoleID, false); err != nil {
			return err
		}
		g.imported("user")
		return nil
	})
}

// remapUser returns the local id of a foreign account, 0 when it is not bound
func (g *TaigaLocalUploader) remapUser(externalID string) int64 {
	if externalID == "" {
		return 0
	}
	if id, ok := g.userMap[externalID]; ok {
		return id
	}
	if id := g.opts.UserBindings[externalID]; id > 0 {
		return id
	}
	return 0
}

// remapActor returns the author of a replayed entry, unbound authors are ghosts keeping their name
func (g *TaigaLocalUploader) remapActor(externalID, name string) history_service.Actor {
	if id := g.remapUser(externalID); id > 0 {
		return history_service.Actor{ID: id, Name: cmp.Or(g.userNames[externalID], name)}
	}
	return history_service.ActorOf(user_model.NewGhostUser(cmp.Or(name, g.userNames[externalID])))
}

// CreateStatuses adds the foreign statuses to the catalogs. A status whose closed bit the source
// does not know is open unless its name matches CLOSED_STATUS_GLOBS.
func (g *TaigaLocalUploader) CreateStatuses(statuses ...*base.Status) error {
	for _, s := range statuses {
		kind, ok := project_model.ParseItemKind(s.Kind)
		if !ok || !kind.HasStatus() || strings.TrimSpace(s.Name) == "" {
			g.failed("status", "invalid status %q of kind %q", s.Name, s.Kind)
			continue
		}
		isClosed := s.IsClosed
		if !s.Known {
			isClosed = setting.IsClosedStatusName(s.Name)
		}
		status, created, err := project_model.GetOrCreateStatusByName(g.ctx, g.project.ID, kind, s.Name, isClosed)
		if err != nil {
			g.failed("status", "%s status %q: %v", kind, s.Name, err)
			continue
		}
		if created {
			g.imported("status")
		}
		g.statuses[itemKey(string(kind), strings.ToLower(strings.TrimSpace(s.Name)))] = status.ID
	}
	return nil
}

// statusFor resolves the status of an item, an unknown name is appended to the catalog as open
func (g *TaigaLocalUploader) statusFor(ctx context.Context, kind project_model.ItemKind, name string) (int64, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s, err := project_model.GetDefaultStatus(ctx, g.project.ID, kind)
		if err != nil {
			return 0, false, err
		}
		return s.ID, s.IsClosed, nil
	}
	key := itemKey(string(kind), strings.ToLower(name))
	s, created, err := project_model.GetOrCreateStatusByName(ctx, g.project.ID, kind, name, false)
	if err != nil {
		return 0, false, err
	}
	if created {
		log.Debug("Import of project %d: added missing %s status %q", g.project.ID, kind, name)
	}
	g.statuses[key] = s.ID
	return s.ID, s.IsClosed, nil
}

// CreateMilestones creates the sprints, a clashing name gets the foreign id appended.
// Every milestone is written in its own transaction, a failed one is skipped.
func (g *TaigaLocalUploader) CreateMilestones(milestones ...*base.Milestone) error {
	for _, milestone := range milestones {
		if err := g.ctx.Err(); err != nil {
			return err
		}
		err := db.WithTx(g.ctx, func(ctx context.Context) error {
			m := &agile_model.Milestone{
				ProjectID:       g.project.ID,
				Name:            strings.TrimSpace(milestone.Name),
				OwnerID:         g.project.OwnerID,
				EstimatedStart:  timeutil.FromTimePtr(milestone.EstimatedStart),
				EstimatedFinish: timeutil.FromTimePtr(milestone.EstimatedFinish),
				Closed:          milestone.Closed,
				CreatedUnix:     stamp(milestone.Created),
			}
			m.UpdatedUnix = m.CreatedUnix
			if milestone.Updated != nil {
				m.UpdatedUnix = timeutil.FromTime(*milestone.Updated)
			}
			if m.Name == "" {
				return util.NewInvalidArgumentErrorf("milestone %q has no name", milestone.ExternalID)
			}
			if err := agile_model.CheckMilestoneName(ctx, m); agile_model.IsErrValidation(err) {
				m.Name = fmt.Sprintf("%s (%s)", m.Name, milestone.ExternalID)
				if err := agile_model.CheckMilestoneName(ctx, m); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			if err := agile_model.InsertItem(ctx, m, true); err != nil {
				return err
			}
			g.milestones[milestone.ExternalID] = m.ID
			return nil
		})
		if err != nil {
			g.failed("milestone", "%q: %v", milestone.ExternalID, err)
			continue
		}
		g.imported("milestone")
	}
	return nil
}

// allocateRef keeps the foreign ref when it is positive and free, otherwise hands out the next one
func (g *TaigaLocalUploader) allocateRef(ctx context.Context, kind project_model.ItemKind, ref int64) (int64, error) {
	used, ok := g.refsUsed[kind]
	if !ok {
		used = make(map[int64]bool)
		g.refsUsed[kind] = used
		maxRef, err := agile_model.GetMaxRef(ctx, g.project.ID, kind)
		if err != nil {
			return 0, err
		}
		g.maxRef[kind] = maxRef
	}
	if ref <= 0 || used[ref] {
		ref = g.maxRef[kind] + 1
	}
	if taken, err := agile_model.IsRefTaken(ctx, g.project.ID, kind, ref); err != nil {
		return 0, err
	} else if taken {
		ref = g.maxRef[kind] + 1
	}
	used[ref] = true
	g.maxRef[kind] = max(g.maxRef[kind], ref)
	return ref, nil
}

// CreateWorkItems creates the items, parents must be created first.
// Every item is written in its own transaction, a failed one is skipped.
func (g *TaigaLocalUploader) CreateWorkItems(items ...*base.WorkItem) error {
	for _, item := range items {
		if err := g.ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(item.Subject) == "" {
			g.failed(item.Kind, "item %q has no subject", item.ExternalID)
			continue
		}
		if _, ok := g.items[itemKey(item.Kind, item.ExternalID)]; ok {
			g.failed(item.Kind, "item %q is duplicated", item.ExternalID)
			continue
		}
		var created agile_model.Item
		if err := db.WithTx(g.ctx, func(ctx context.Context) (err error) {
			created, err = g.createWorkItem(ctx, item)
			return err
		}); err != nil {
			g.failed(item.Kind, "%q: %v", item.ExternalID, err)
			continue
		}
		if created == nil {
			continue
		}
		g.items[itemKey(item.Kind, item.ExternalID)] = created.GetID()
		g.imported(item.Kind)
	}
	return nil
}

func (g *TaigaLocalUploader) createWorkItem(ctx context.Context, item *base.WorkItem) (agile_model.Item, error) {
	kind, ok := project_model.ParseItemKind(item.Kind)
	if !ok || !kind.HasRef() {
		g.failed(item.Kind, "unknown kind of item %q", item.ExternalID)
		return nil, nil
	}
	ref, err := g.allocateRef(ctx, kind, item.Ref)
	if err != nil {
		return nil, err
	}
	statusID, closed, err := g.statusFor(ctx, kind, item.Status)
	if err != nil {
		return nil, err
	}
	ownerID := cmp.Or(g.remapUser(item.OwnerID), g.project.OwnerID)
	assigneeID := g.remapUser(item.AssigneeID)
	created := stamp(item.Created)
	updated := created
	if !item.Updated.IsZero() {
		updated = timeutil.FromTime(item.Updated)
	}
	finished := timeutil.TimeStamp(0)
	if closed {
		finished = updated
	}
	milestoneID := g.milestones[item.Milestone]
	if item.Milestone != "" && milestoneID == 0 {
		log.Debug("Import of project %d: %s %q refers to unknown milestone %q", g.project.ID, kind, item.ExternalID, item.Milestone)
	}

	switch kind {
	case project_model.KindEpic:
		epic := &agile_model.Epic{
			ProjectID: g.project.ID, Ref: ref, Subject: item.Subject, Description: item.Description,
			StatusID: statusID, AssignedToID: assigneeID, OwnerID: ownerID, Tags: item.Tags,
			Color:       cmp.Or(item.Color, project_model.TagColor(item.Subject)),
			CreatedUnix: created, UpdatedUnix: updated,
		}
		return epic, agile_model.InsertItem(ctx, epic, true)

	case project_model.KindUserStory:
		us := &agile_model.UserStory{
			ProjectID: g.project.ID, Ref: ref, Subject: item.Subject, Description: item.Description,
			StatusID: statusID, MilestoneID: milestoneID, AssignedToID: assigneeID, OwnerID: ownerID,
			Tags: item.Tags, CreatedUnix: created, UpdatedUnix: updated,
		}
		if err := agile_model.InsertItem(ctx, us, true); err != nil {
			return nil, err
		}
		g.storyMilestone[us.ID] = milestoneID
		if err := g.estimate(ctx, us, item.Points); err != nil {
			return nil, err
		}
		if item.Epic != "" {
			if err := g.relateToEpic(ctx, us, item.Epic); err != nil {
				return nil, err
			}
		}
		return us, nil

	case project_model.KindTask:
		task := &agile_model.Task{
			ProjectID: g.project.ID, Ref: ref, Subject: item.Subject, Description: item.Description,
			StatusID: statusID, MilestoneID: milestoneID, AssignedToID: assigneeID, OwnerID: ownerID,
			Tags: item.Tags, FinishedDate: finished, CreatedUnix: created, UpdatedUnix: updated,
		}
		if item.UserStory != "" {
			usID, ok := g.items[itemKey(base.KindUserStory, item.UserStory)]
			if ok {
				task.UserStoryID = usID
				task.MilestoneID = g.storyMilestone[usID]
			} else {
				log.Warn("Import of project %d: task %q refers to unknown user story %q", g.project.ID, item.ExternalID, item.UserStory)
			}
		}
		return task, agile_model.InsertItem(ctx, task, true)

	case project_model.KindIssue:
		issue := &agile_model.Issue{
			ProjectID: g.project.ID, Ref: ref, Subject: item.Subject, Description: item.Description,
			StatusID: statusID, MilestoneID: milestoneID, AssignedToID: assigneeID, OwnerID: ownerID,
			Tags: item.Tags, FinishedDate: finished, CreatedUnix: created, UpdatedUnix: updated,
		}
		if issue.PriorityID, err = catalogIDByName(ctx, g.project.ID, item.Priority, func(e *project_model.Priority) (int64, string) { return e.ID, e.Name }); err != nil {
			return nil, err
		}
		if issue.SeverityID, err = catalogIDByName(ctx, g.project.ID, item.Severity, func(e *project_model.Severity) (int64, string) { return e.ID, e.Name }); err != nil {
			return nil, err
		}
		if issue.TypeID, err = catalogIDByName(ctx, g.project.ID, item.Type, func(e *project_model.IssueType) (int64, string) { return e.ID, e.Name }); err != nil {
			return nil, err
		}
		return issue, agile_model.InsertItem(ctx, issue, true)
	}
	return nil, nil
}

// catalogIDByName returns the entry matching name, or the first entry of the catalog
func catalogIDByName[T project_model.CatalogEntry](ctx context.Context, projectID int64, name string, fields func(*T) (int64, string)) (int64, error) {
	entries, err := project_model.GetCatalog[T](ctx, projectID)
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	for _, e := range entries {
		if id, entryName := fields(e); strings.EqualFold(entryName, strings.TrimSpace(name)) {
			return id, nil
		}
	}
	id, _ := fields(entries[0])
	return id, nil
}

// estimate gives the user story the unknown points for every computable role, the foreign points land on the first one
func (g *TaigaLocalUploader) estimate(ctx context.Context, us *agile_model.UserStory, points *float64) error {
	if err := agile_model.SyncRolePoints(ctx, us); err != nil {
		return err
	}
	if points == nil || g.pointsRoleID == 0 {
		return nil
	}
	p, err := project_model.GetOrCreatePointsByValue(ctx, g.project.ID, *points)
	if err != nil {
		return err
	}
	return agile_model.SetRolePoints(ctx, us.ID, g.pointsRoleID, p.ID)
}

func (g *TaigaLocalUploader) relateToEpic(ctx context.Context, us *agile_model.UserStory, epicExternalID string) error {
	epicID, ok := g.items[itemKey(base.KindEpic, epicExternalID)]
	if !ok {
		log.Warn("Import of project %d: user story %d refers to unknown epic %q", g.project.ID, us.ID, epicExternalID)
		return nil
	}
	epic, err := agile_model.GetEpicByID(ctx, epicID)
	if err != nil {
		return err
	}
	_, err = agile_model.AddRelatedUserStory(ctx, epic, us)
	return err
}

// CreateHistory replays the comments and change logs, entries keep the source time and author.
// The source values are kept in ImportedDiff, the entries change no field of the local state.
func (g *TaigaLocalUploader) CreateHistory(entries ...*base.HistoryItem) error {
	for _, h := range entries {
		kind, _ := project_model.ParseItemKind(h.ItemKind)
		objectID, ok := g.items[itemKey(h.ItemKind, h.ItemExternalID)]
		if !ok {
			g.failed("history", "entry of unknown %s %q", h.ItemKind, h.ItemExternalID)
			continue
		}
		changes := make(history_model.Diff, len(h.Changes))
		for _, c := range h.Changes {
			if c.Field == "" || c.From == c.To {
				continue
			}
			changes[c.Field] = history_model.Change{c.From, c.To}
		}
		if len(changes) == 0 && strings.TrimSpace(h.Comment) == "" {
			continue
		}
		actor := g.remapActor(h.AuthorID, h.AuthorName)
		e := &history_model.Entry{
			Key:          history_model.Key(kind, objectID),
			ProjectID:    g.project.ID,
			Kind:         kind,
			ObjectID:     objectID,
			Type:         history_model.EntryTypeChange,
			UserID:       actor.ID,
			UserName:     actor.Name,
			Diff:         history_model.Diff{},
			ImportedDiff: changes,
			Comment:      h.Comment,
			CreatedUnix:  stamp(h.Created),
		}
		if change, ok := changes["description"]; ok && setting.History.DescriptionDiff {
			e.DescriptionDiff = history_service.DescriptionDiff(fmt.Sprint(change[0]), fmt.Sprint(change[1]))
		}
		if err := history_model.InsertEntry(g.ctx, e, true); err != nil {
			g.failed("history", "entry of %s %q: %v", h.ItemKind, h.ItemExternalID, err)
			continue
		}
		if first, ok := g.firstEntry[e.Key]; !ok || e.CreatedUnix < first {
			g.firstEntry[e.Key] = e.CreatedUnix
		}
		g.imported("history")
	}
	return nil
}

// CreateAttachments fetches and stores the files, at most MAX_ATTACHMENT_WORKERS at a time.
// A file that cannot be fetched or stored is skipped.
func (g *TaigaLocalUploader) CreateAttachments(attachments ...*base.Attachment) error {
	eg, ctx := errgroup.WithContext(g.ctx)
	eg.SetLimit(max(setting.Importer.MaxAttachmentWorkers, 1))

	var mu sync.Mutex
	for _, a := range attachments {
		kind, _ := project_model.ParseItemKind(a.ItemKind)
		objectID, ok := g.items[itemKey(a.ItemKind, a.ItemExternalID)]
		if !ok {
			g.failed("attachment", "file %q of unknown %s %q", a.Name, a.ItemKind, a.ItemExternalID)
			continue
		}
		eg.Go(func() error {
			rc, err := openAttachment(ctx, a)
			if err != nil {
				mu.Lock()
				g.failed("attachment", "fetch %q: %v", a.Name, err)
				mu.Unlock()
				return nil
			}
			defer rc.Close()

			size := int64(-1)
			if a.Size != nil {
				size = *a.Size
			}
			sourceURL := ""
			if a.DownloadURL != nil {
				sourceURL = *a.DownloadURL
			}
			stored, err := attachment_model.NewAttachment(ctx, &attachment_model.Attachment{
				ProjectID:   g.project.ID,
				Kind:        kind,
				ObjectID:    objectID,
				OwnerID:     g.remapUser(a.OwnerID),
				Name:        a.Name,
				ContentType: a.ContentType,
				Description: a.Description,
				SourceURL:   sourceURL,
				CreatedUnix: stamp(a.Created),
			}, rc, size)
			if err != nil {
				mu.Lock()
				g.failed("attachment", "store %q: %v", a.Name, err)
				mu.Unlock()
				return nil
			}
			log.Trace("Import of project %d: stored %s (%s)", g.project.ID, stored.Name, humanize.IBytes(uint64(max(stored.Size, 0))))
			mu.Lock()
			g.imported("attachment")
			mu.Unlock()
			return nil
		})
	}
	return eg.Wait()
}

func openAttachment(ctx context.Context, a *base.Attachment) (io.ReadCloser, error) {
	if a.DownloadFunc != nil {
		return a.DownloadFunc()
	}
	if a.DownloadURL == nil || *a.DownloadURL == "" {
		return nil, fmt.Errorf("attachment %q has no location", a.Name)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, *a.DownloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := retryablehttp.NewClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Finish reconciles the imported project: the closed state of user stories and milestones is derived
// again, ref counters move past the imported refs, tag colors are assigned and every item gets
// a creation snapshot.
func (g *TaigaLocalUploader) Finish() error {
	return db.WithTx(g.ctx, func(ctx context.Context) error {
		b := cascade.NewBatch(g.project.ID, nil)
		b.Importing = true

		stories, err := agile_model.GetProjectUserStories(ctx, g.project.ID)
		if err != nil {
			return err
		}
		for _, us := range stories {
			b.MarkStory(us.ID)
		}
		milestones, err := agile_model.GetProjectMilestones(ctx, g.project.ID)
		if err != nil {
			return err
		}
		for _, m := range milestones {
			b.MarkMilestone(m.ID)
		}
		if err := b.Run(ctx); err != nil {
			return err
		}
		log.Debug("Import of project %d: reconciliation wrote %d rows", g.project.ID, b.Writes())

		if err := agile_model.RebuildRefCounters(ctx, g.project.ID); err != nil {
			return err
		}
		tags, err := agile_model.GetProjectTags(ctx, g.project.ID)
		if err != nil {
			return err
		}
		if err := project_model.RecomputeTagColors(ctx, g.project, tags); err != nil {
			return err
		}
		return g.snapshotItems(ctx)
	})
}

// snapshotItems records the creation of every imported item in its final state, stamped
// before the first replayed entry of the item so that every entry follows a snapshot
func (g *TaigaLocalUploader) snapshotItems(ctx context.Context) error {
	var all []agile_model.Item
	epics, err := agile_model.GetProjectEpics(ctx, g.project.ID)
	if err != nil {
		return err
	}
	for _, it := range epics {
		all = append(all, it)
	}
	stories, err := agile_model.GetProjectUserStories(ctx, g.project.ID)
	if err != nil {
		return err
	}
	for _, it := range stories {
		all = append(all, it)
	}
	tasks, err := agile_model.GetProjectTasks(ctx, g.project.ID)
	if err != nil {
		return err
	}
	for _, it := range tasks {
		all = append(all, it)
	}
	issues, err := agile_model.GetProjectIssues(ctx, g.project.ID)
	if err != nil {
		return err
	}
	for _, it := range issues {
		all = append(all, it)
	}
	milestones, err := agile_model.GetProjectMilestones(ctx, g.project.ID)
	if err != nil {
		return err
	}
	for _, it := range milestones {
		all = append(all, it)
	}

	actor := history_service.ActorOf(g.doer)
	for _, it := range all {
		created := it.GetCreatedUnix()
		if first, ok := g.firstEntry[history_model.Key(it.ItemKind(), it.GetID())]; ok && first <= created {
			created = first - 1
		}
		if _, err := history_service.Record(ctx, nil, it, history_service.RecordOptions{
			Actor:   actor,
			Created: created,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Rollback deletes the partially imported project
func (g *TaigaLocalUploader) Rollback() error {
	if g.project == nil || g.project.ID == 0 {
		return nil
	}
	// a cancelled import still has to clean up
	ctx := context.WithoutCancel(g.ctx)
	if err := mutation.DeleteProject(ctx, g.project.ID, g.project.OwnerID); err != nil {
		return fmt.Errorf("rollback of project %d: %w", g.project.ID, err)
	}
	log.Info("Import of project %d rolled back", g.project.ID)
	return nil
}
