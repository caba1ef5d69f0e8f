// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/taigaio/taiga-back-sub001/modules/util"

	"github.com/stretchr/testify/assert"
)

type flakyDownloader struct {
	NullDownloader
	failures int
	calls    int
	err      error
}

func (f *flakyDownloader) GetProject(_ context.Context) (*Project, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &Project{Name: "imported"}, nil
}

func TestRetryDownloader(t *testing.T) {
	ctx := t.Context()

	flaky := &flakyDownloader{failures: 2, err: errors.New("connection reset")}
	p, err := NewRetryDownloader(flaky, 3, 0).GetProject(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "imported", p.Name)
	assert.Equal(t, 3, flaky.calls)

	flaky = &flakyDownloader{failures: 5, err: errors.New("connection reset")}
	_, err = NewRetryDownloader(flaky, 3, 0).GetProject(ctx)
	assert.Error(t, err)
	assert.Equal(t, 3, flaky.calls)

	flaky = &flakyDownloader{failures: 5, err: ErrSourceUnauthorized{Source: SourceJira}}
	_, err = NewRetryDownloader(flaky, 3, 0).GetProject(ctx)
	assert.True(t, IsErrSourceUnauthorized(err))
	assert.Equal(t, 1, flaky.calls)

	flaky = &flakyDownloader{failures: 5, err: util.NewInvalidArgumentErrorf("bad dump")}
	_, err = NewRetryDownloader(flaky, 3, 0).GetProject(ctx)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	assert.Equal(t, 1, flaky.calls)

	_, err = NewRetryDownloader(&NullDownloader{}, 3, 0).GetStatuses(ctx)
	assert.True(t, IsErrNotSupported(err))
}
