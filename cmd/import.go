// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"

	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/storage"
	"github.com/taigaio/taiga-back-sub001/services/migrations"

	"github.com/urfave/cli/v2"
)

// CmdImport imports a project synchronously
var CmdImport = &cli.Command{
	Name:  "import",
	Usage: "Import a project from JIRA, Pivotal Tracker or a dump file",
	Description: `Runs an import in the foreground and prints its progress.
Foreign users are bound to local ones with --bind foreign-id=username, unbound authors are kept as ghosts.`,
	Action: runImport,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "Import source: jira, pivotal or file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Dump file read by the file source",
		},
		&cli.StringFlag{
			Name:  "project-key",
			Usage: "JIRA project key or Pivotal project id",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Base URL of the remote tracker",
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API token of the remote tracker",
			EnvVars: []string{"TAIGA_IMPORT_TOKEN"},
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "User name for basic authentication",
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Password for basic authentication",
			EnvVars: []string{"TAIGA_IMPORT_PASSWORD"},
		},
		&cli.StringFlag{
			Name:     "owner",
			Usage:    "Name of the local user owning the imported project",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Name of the imported project, defaults to the remote name",
		},
		&cli.BoolFlag{
			Name:  "private",
			Usage: "Make the imported project private",
		},
		&cli.BoolFlag{
			Name:  "history",
			Usage: "Import the change history of the items",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "attachments",
			Usage: "Import the attachments of the items",
		},
		&cli.StringSliceFlag{
			Name:  "bind",
			Usage: "Bind a foreign user to a local one, as foreign-id=username",
		},
	},
}

func parseBindings(c *cli.Context) (map[string]int64, error) {
	bindings := map[string]int64{}
	for _, b := range c.StringSlice("bind") {
		foreign, local, ok := strings.Cut(b, "=")
		if !ok || foreign == "" || local == "" {
			return nil, fmt.Errorf("invalid binding %q, expected foreign-id=username", b)
		}
		u, err := user_model.GetUserByName(c.Context, local)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b, err)
		}
		bindings[foreign] = u.ID
	}
	return bindings, nil
}

func runImport(c *cli.Context) error {
	ctx := c.Context
	opts := base.ImportOptions{
		Source:       strings.ToLower(c.String("source")),
		ProjectKey:   c.String("project-key"),
		BaseURL:      c.String("base-url"),
		AuthToken:    c.String("token"),
		AuthUsername: c.String("username"),
		AuthPassword: c.String("password"),
		FilePath:     c.String("file"),
		ProjectName:  c.String("name"),
		IsPrivate:    c.Bool("private"),
		History:      c.Bool("history"),
		Attachments:  c.Bool("attachments"),
	}
	switch opts.Source {
	case base.SourceFile:
		if err := argsSet(c, "file"); err != nil {
			return err
		}
	case base.SourceJira, base.SourcePivotal:
		if err := argsSet(c, "project-key"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown source %q", opts.Source)
	}

	if err := initDB(ctx); err != nil {
		return err
	}
	if opts.Attachments && !setting.IsInTesting {
		if err := storage.Init(); err != nil {
			return err
		}
	}

	owner, err := user_model.GetUserByName(ctx, c.String("owner"))
	if err != nil {
		return err
	}
	opts.OwnerID = owner.ID
	if opts.UserBindings, err = parseBindings(c); err != nil {
		return err
	}

	last := -1
	project, err := migrations.ImportProject(ctx, owner, opts, func(pct int) {
		if pct != last {
			last = pct
			_, _ = fmt.Fprintf(c.App.Writer, "progress: %d%%\n", pct)
		}
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	_, _ = fmt.Fprintf(c.App.Writer, "imported project %q as %s (id %d)\n", project.Name, project.Slug, project.ID)
	return nil
}
