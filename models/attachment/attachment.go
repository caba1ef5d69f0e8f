// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package attachment

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/storage"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"github.com/google/uuid"
)

// Attachment is a file attached to an agile item, the owner item is the pair (Kind, ObjectID)
type Attachment struct {
	ID          int64                  `xorm:"pk autoincr"`
	UUID        string                 `xorm:"uuid UNIQUE"`
	ProjectID   int64                  `xorm:"INDEX NOT NULL"`
	Kind        project_model.ItemKind `xorm:"VARCHAR(16) INDEX(item) NOT NULL"`
	ObjectID    int64                  `xorm:"INDEX(item) NOT NULL"`
	OwnerID     int64                  `xorm:"INDEX DEFAULT 0"`
	Name        string
	ContentType string
	Description string `xorm:"TEXT"`
	Size        int64  `xorm:"DEFAULT 0"`
	// SourceURL is the location an imported file was fetched from
	SourceURL    string             `xorm:"TEXT"`
	IsDeprecated bool               `xorm:"NOT NULL DEFAULT false"`
	CreatedUnix  timeutil.TimeStamp `xorm:"created"`
}

func init() {
	db.RegisterModel(new(Attachment))
}

// AttachmentRelativePath returns the relative path of an attachment in the storage
func AttachmentRelativePath(uuid string) string {
	return path.Join(uuid[0:1], uuid[1:2], uuid)
}

// RelativePath returns the relative path of the attachment
func (a *Attachment) RelativePath() string {
	return AttachmentRelativePath(a.UUID)
}

// DownloadURL returns the path the file is served under
func (a *Attachment) DownloadURL() string {
	return fmt.Sprintf("/attachments/%s", a.UUID)
}

// NewAttachment stores the file and inserts the attachment row, size is -1 when unknown
func NewAttachment(ctx context.Context, attach *Attachment, file io.Reader, size int64) (*Attachment, error) {
	if attach.Kind == "" || attach.ObjectID == 0 {
		return nil, util.NewInvalidArgumentErrorf("attachment must belong to an item")
	}
	attach.UUID = uuid.New().String()
	written, err := storage.Attachments.Save(attach.RelativePath(), file, size)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	attach.Size = written

	if err := db.Insert(ctx, attach); err != nil {
		if rmErr := storage.Attachments.Delete(attach.RelativePath()); rmErr != nil {
			log.Error("Unable to remove stored attachment %s: %v", attach.UUID, rmErr)
		}
		return nil, err
	}
	return attach, nil
}

// GetAttachmentByUUID returns the attachment with the given uuid
func GetAttachmentByUUID(ctx context.Context, uuid string) (*Attachment, error) {
	attach := &Attachment{UUID: uuid}
	has, err := db.GetEngine(ctx).Get(attach)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, util.NewNotExistErrorf("attachment does not exist [uuid: %s]", uuid)
	}
	return attach, nil
}

// GetItemAttachments returns the attachments of an item in upload order
func GetItemAttachments(ctx context.Context, kind project_model.ItemKind, objectID int64) ([]*Attachment, error) {
	attachments := make([]*Attachment, 0, 5)
	return attachments, db.GetEngine(ctx).Where("kind=? AND object_id=?", string(kind), objectID).OrderBy("id").Find(&attachments)
}

// DeleteAttachments deletes the rows and then the stored files of the given attachments
func DeleteAttachments(ctx context.Context, attachments []*Attachment) (int, error) {
	if len(attachments) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(attachments))
	for _, a := range attachments {
		ids = append(ids, a.ID)
	}
	cnt, err := db.GetEngine(ctx).In("id", ids).NoAutoCondition().Delete(new(Attachment))
	if err != nil {
		return 0, err
	}
	for _, a := range attachments {
		if err := storage.Attachments.Delete(a.RelativePath()); err != nil {
			log.Error("delete attachment %s: %v", a.UUID, err)
		}
	}
	return int(cnt), nil
}

// DeleteItemAttachments deletes every attachment of an item
func DeleteItemAttachments(ctx context.Context, kind project_model.ItemKind, objectID int64) error {
	attachments, err := GetItemAttachments(ctx, kind, objectID)
	if err != nil {
		return err
	}
	_, err = DeleteAttachments(ctx, attachments)
	return err
}

// DeleteProjectAttachments deletes every attachment of the project
func DeleteProjectAttachments(ctx context.Context, projectID int64) error {
	attachments := make([]*Attachment, 0, 10)
	if err := db.GetEngine(ctx).Where("project_id=?", projectID).Find(&attachments); err != nil {
		return err
	}
	_, err := DeleteAttachments(ctx, attachments)
	return err
}
