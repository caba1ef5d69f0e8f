// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	user_model "github.com/taigaio/taiga-back-sub001/models/user"

	"github.com/urfave/cli/v2"
)

// CmdAdmin represents the available admin sub-command.
var CmdAdmin = &cli.Command{
	Name:  "admin",
	Usage: "Command line interface to perform common administrative operations",
	Subcommands: []*cli.Command{
		{
			Name:  "user",
			Usage: "Modify users",
			Subcommands: []*cli.Command{
				microcmdUserCreate,
			},
		},
	},
}

var microcmdUserCreate = &cli.Command{
	Name:   "create",
	Usage:  "Create a new user in database",
	Action: runCreateUser,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "username",
			Usage: "Username, the name sent by the authenticating proxy",
		},
		&cli.StringFlag{
			Name:  "email",
			Usage: "User email address",
		},
		&cli.StringFlag{
			Name:  "full-name",
			Usage: "Display name",
		},
		&cli.StringFlag{
			Name:  "notify-level",
			Usage: "all_owned_projects, only_watching, only_assigned, only_owner or no_events",
			Value: user_model.NotifyAllOwnedProjects.String(),
		},
		&cli.BoolFlag{
			Name:  "notify-own-changes",
			Usage: "Also mail the changes made by the user",
		},
		&cli.BoolFlag{
			Name:  "inactive",
			Usage: "Create the account disabled",
		},
	},
}

func runCreateUser(c *cli.Context) error {
	if err := argsSet(c, "username", "email"); err != nil {
		return err
	}
	level, err := user_model.ParseNotifyLevel(c.String("notify-level"))
	if err != nil {
		return err
	}

	ctx := c.Context
	if err := initDB(ctx); err != nil {
		return err
	}

	u := &user_model.User{
		Name:              c.String("username"),
		Email:             c.String("email"),
		FullName:          c.String("full-name"),
		IsActive:          !c.Bool("inactive"),
		NotifyLevel:       level,
		NotifyChangesByMe: c.Bool("notify-own-changes"),
	}
	if err := user_model.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("CreateUser: %w", err)
	}
	_, _ = fmt.Fprintf(c.App.Writer, "New user '%s' has been successfully created!\n", u.Name)
	return nil
}
