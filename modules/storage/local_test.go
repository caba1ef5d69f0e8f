// Copyright 2022 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(context.Background(), &setting.Storage{Type: setting.LocalStorageType, Path: dir})
	require.NoError(t, err)

	n, err := s.Save("../../p1/a.txt", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	// path escapes are clamped into the root
	info, err := s.Stat("p1/a.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size())

	f, err := s.Open("p1/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(data))

	_, err = s.Save("p1/b.txt", strings.NewReader("short"), 10)
	assert.Error(t, err)

	var seen []string
	require.NoError(t, s.IterateObjects("", func(path string, obj Object) error {
		seen = append(seen, path)
		return nil
	}))
	assert.Equal(t, []string{"p1/a.txt"}, seen)

	require.NoError(t, Clean(s))
	_, err = s.Stat("p1/a.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, s.Delete("p1/a.txt"))
}

func TestLocalStorageRelativePath(t *testing.T) {
	_, err := NewLocalStorage(context.Background(), &setting.Storage{Path: "relative"})
	assert.True(t, IsErrInvalidConfiguration(err))
}
