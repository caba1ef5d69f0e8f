// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package unittest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/storage"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"

	"github.com/stretchr/testify/require"
)

var testDataPath string

// MainTest a reusable TestMain(..) function for unit tests that need to use a
// test database. Creates the test database, and sets necessary settings.
func MainTest(m *testing.M) {
	if err := mainTest(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func mainTest(m *testing.M) error {
	log.Discard()
	setting.LoadForTest()

	var err error
	testDataPath, err = os.MkdirTemp("", "taiga-test-data")
	if err != nil {
		return fmt.Errorf("TempDir: %w", err)
	}
	setting.AppWorkPath = testDataPath
	setting.AppDataPath = testDataPath

	exitStatus := m.Run()

	if err := os.RemoveAll(testDataPath); err != nil {
		fmt.Fprintf(os.Stderr, "os.RemoveAll: %v\n", err)
	}
	os.Exit(exitStatus)
	return nil
}

// PrepareTestEnv prepares a fresh database and attachment storage for a test,
// both are dropped when the test ends.
func PrepareTestEnv(t testing.TB) {
	t.Helper()
	require.NoError(t, PrepareTestDatabase(t.TempDir()))
	t.Cleanup(func() {
		db.UnsetDefaultEngine()
		timeutil.MockUnset()
	})
}

// PrepareTestDatabase creates an empty SQLite database under dir with every registered table
func PrepareTestDatabase(dir string) error {
	setting.Database.Type = "sqlite3"
	setting.Database.Path = filepath.Join(dir, "taiga.db")
	setting.Database.SQLiteJournalMode = "WAL"
	// concurrent writers queue on the database lock instead of failing fast
	setting.Database.Timeout = 30000
	setting.Database.DBConnectRetries = 0
	setting.Database.LockTimeout = 30 * time.Second

	db.UnsetDefaultEngine()
	if err := db.InitEngine(context.Background()); err != nil {
		return err
	}
	if err := db.SyncAllTables(); err != nil {
		return err
	}

	setting.Attachments.Type = setting.LocalStorageType
	setting.Attachments.Path = filepath.Join(dir, "attachments")
	return storage.Init()
}
