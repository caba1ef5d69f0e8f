// Copyright 2022 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func runTestApp(t *testing.T, args string) (string, error) {
	app := NewMainApp(AppVersion{Version: "test"})
	out := new(strings.Builder)
	app.Writer = out
	app.ErrWriter = out
	err := app.RunContext(context.Background(), append([]string{"taiga"}, strings.Fields(args)...))
	return out.String(), err
}

func TestRunMainAppExitCode(t *testing.T) {
	app := NewMainApp(AppVersion{})
	out := new(strings.Builder)
	app.Writer, app.ErrWriter = out, out
	exitCode := -1
	defer test.MockVariableValue(&cli.OsExiter, func(code int) { exitCode = code })()

	require.Error(t, RunMainApp(app, "taiga", "doctor", "check", "--run", "nope"))
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, out.String(), "Command error")
}

func TestAdminUserCreate(t *testing.T) {
	unittest.PrepareTestEnv(t)

	out, err := runTestApp(t, "admin user create --username alice --email alice@example.com --notify-level only_assigned")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	u, err := user_model.GetUserByName(db.DefaultContext, "alice")
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.Equal(t, user_model.NotifyOnlyAssigned, u.NotifyLevel)

	_, err = runTestApp(t, "admin user create --username alice --email other@example.com")
	assert.True(t, user_model.IsErrUserAlreadyExist(err))

	_, err = runTestApp(t, "admin user create --username bob")
	assert.ErrorContains(t, err, "email is not set")

	_, err = runTestApp(t, "admin user create --username bob --email bob@example.com --notify-level loud")
	assert.Error(t, err)
}

func TestDoctorList(t *testing.T) {
	out, err := runTestApp(t, "doctor check --list")
	require.NoError(t, err)
	for _, name := range []string{"ref-counters", "task-milestones", "closed-flags"} {
		assert.Contains(t, out, name)
	}

	_, err = runTestApp(t, "doctor check --run nope")
	assert.ErrorContains(t, err, "nope")
}

func TestDoctorCheck(t *testing.T) {
	unittest.PrepareTestEnv(t)
	out, err := runTestApp(t, "doctor check --all")
	require.NoError(t, err)
	assert.Contains(t, out, "closed flags")
}

const testDump = `
project:
  name: Legacy
users:
  - external_id: u1
    name: Alice
work_items:
  - kind: userstory
    external_id: us1
    ref: 4
    subject: Docs
    status: New
    owner_id: u1
`

func TestImportFile(t *testing.T) {
	unittest.PrepareTestEnv(t)
	for _, name := range []string{"owner", "alice"} {
		require.NoError(t, user_model.CreateUser(db.DefaultContext, &user_model.User{Name: name, Email: name + "@example.com", IsActive: true}))
	}
	path := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDump), 0o644))

	_, err := runTestApp(t, "import --source file --owner owner")
	assert.ErrorContains(t, err, "file is not set")
	_, err = runTestApp(t, "import --source jira --owner owner --file "+path)
	assert.ErrorContains(t, err, "project-key is not set")
	_, err = runTestApp(t, "import --source file --owner owner --file "+path+" --bind u1")
	assert.ErrorContains(t, err, "invalid binding")

	out, err := runTestApp(t, "import --source file --owner owner --file "+path+" --bind u1=alice")
	require.NoError(t, err, out)
	assert.Contains(t, out, "progress: 100%")
	assert.Contains(t, out, `imported project "Legacy"`)

	p, err := project_model.GetProjectBySlug(db.DefaultContext, "legacy")
	require.NoError(t, err)
	alice, err := user_model.GetUserByName(db.DefaultContext, "alice")
	require.NoError(t, err)
	isMember, err := project_model.IsMember(db.DefaultContext, p, alice.ID)
	require.NoError(t, err)
	assert.True(t, isMember)
}
