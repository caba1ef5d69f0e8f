// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsFromBytes(t *testing.T) {
	require.NoError(t, LoadSettingsFromBytes([]byte(`
[database]
DB_TYPE = postgresql
HOST = db:5433
NAME = taiga
USER = taiga
PASSWD = secret
LOCK_TIMEOUT = 2s

[history]
SNAPSHOT_INTERVAL = 10

[importer]
BATCH_SIZE = 5000
CLOSED_STATUS_GLOBS = done, shipped*

[mailer]
ENABLED = true
FROM = Taiga <bot@example.com>
`)))

	assert.True(t, Database.Type.IsPostgreSQL())
	assert.Equal(t, 2*time.Second, Database.LockTimeout)
	connStr, err := DBConnStr()
	require.NoError(t, err)
	assert.Equal(t, "postgres://taiga:secret@db:5433/taiga?sslmode=disable", connStr)

	assert.Equal(t, 10, History.SnapshotInterval)
	assert.Equal(t, 1000, Importer.BatchSize)
	assert.True(t, IsClosedStatusName("Shipped to prod"))
	assert.True(t, IsClosedStatusName(" DONE "))
	assert.False(t, IsClosedStatusName("In progress"))

	require.NotNil(t, MailService)
	assert.Equal(t, "bot@example.com", MailService.FromEmail)
	assert.Equal(t, "Taiga", MailService.FromName)
}

func TestClosedStatusGlobsDefaultEmpty(t *testing.T) {
	require.NoError(t, LoadSettingsFromBytes([]byte("[importer]\nBATCH_SIZE = 10\n")))
	assert.Empty(t, Importer.ClosedStatusGlobs)
	assert.False(t, IsClosedStatusName("Done"))
	assert.False(t, IsClosedStatusName("Closed"))
}

func TestLoadSettingsUnsupportedDatabase(t *testing.T) {
	assert.Error(t, LoadSettingsFromBytes([]byte("[database]\nDB_TYPE = oracle\n")))
}

func TestParsePostgreSQLHostPort(t *testing.T) {
	host, port := parsePostgreSQLHostPort("[::1]:1234")
	assert.Equal(t, "::1", host)
	assert.Equal(t, "1234", port)

	host, port = parsePostgreSQLHostPort("")
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, "5432", port)
}
