// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package attachment_test

import (
	"io"
	"strings"
	"testing"

	"github.com/taigaio/taiga-back-sub001/models/attachment"
	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	"github.com/taigaio/taiga-back-sub001/modules/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func TestNewAttachment(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	a, err := attachment.NewAttachment(ctx, &attachment.Attachment{
		ProjectID: 1,
		Kind:      project_model.KindTask,
		ObjectID:  3,
		Name:      "notes.txt",
	}, strings.NewReader("hello"), -1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, a.Size)
	assert.Len(t, a.UUID, 36)

	f, err := storage.Attachments.Open(a.RelativePath())
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(content))

	got, err := attachment.GetAttachmentByUUID(ctx, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = attachment.NewAttachment(ctx, &attachment.Attachment{ProjectID: 1}, strings.NewReader("x"), 1)
	assert.Error(t, err)

	require.NoError(t, attachment.DeleteItemAttachments(ctx, project_model.KindTask, 3))
	list, err := attachment.GetItemAttachments(ctx, project_model.KindTask, 3)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = storage.Attachments.Stat(a.RelativePath())
	assert.Error(t, err)
}
