// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/services/doctor"

	"github.com/urfave/cli/v2"
)

var cmdDoctorCheck = &cli.Command{
	Name:        "check",
	Usage:       "Diagnose and optionally fix problems",
	Description: "Compares the stored ref counters and derived flags with what the items imply, --fix repairs them.",
	Action:      runDoctorCheck,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "list",
			Usage: "List the available checks",
		},
		&cli.BoolFlag{
			Name:  "default",
			Usage: "Run the default checks (if neither --run or --all is set, this is the default behaviour)",
		},
		&cli.StringSliceFlag{
			Name:  "run",
			Usage: "Run the provided checks - (if --default is set, the default checks will also run)",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Run all the available checks",
		},
		&cli.BoolFlag{
			Name:  "fix",
			Usage: "Automatically fix what we can",
		},
		&cli.BoolFlag{
			Name:    "color",
			Aliases: []string{"H"},
			Usage:   "Use color for outputted information",
		},
	},
}

// CmdDoctor represents the available doctor sub-command.
var CmdDoctor = &cli.Command{
	Name:        "doctor",
	Usage:       "Diagnose and optionally fix problems",
	Description: "Checks the stored data for drift from the rules the engine maintains.",
	Subcommands: []*cli.Command{
		cmdDoctorCheck,
	},
}

func selectChecks(c *cli.Context) ([]*doctor.Check, error) {
	if c.Bool("all") {
		return doctor.Checks(), nil
	}
	if !c.IsSet("run") {
		return doctor.DefaultChecks(), nil
	}
	names := c.StringSlice("run")
	for i, name := range names {
		names[i] = strings.ToLower(strings.TrimSpace(name))
	}
	selected, err := doctor.GetChecks(names)
	if err != nil {
		return nil, err
	}
	if !c.Bool("default") {
		return selected, nil
	}
	for _, check := range doctor.DefaultChecks() {
		found := false
		for _, s := range selected {
			if s.Name == check.Name {
				found = true
				break
			}
		}
		if !found {
			selected = append(selected, check)
		}
	}
	return selected, nil
}

func runDoctorCheck(c *cli.Context) error {
	if c.Bool("list") {
		w := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, '\t', 0)
		_, _ = fmt.Fprintln(w, "Default\tName\tTitle")
		for _, check := range doctor.Checks() {
			def := ""
			if check.IsDefault {
				def = "*"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", def, check.Name, check.Title)
		}
		return w.Flush()
	}

	checks, err := selectChecks(c)
	if err != nil {
		return err
	}
	if err := initDB(c.Context); err != nil {
		return err
	}
	logger := log.NewLogger("doctor", c.App.Writer, log.WriterMode{Level: log.INFO, Console: true, Colorize: c.Bool("color")})
	return doctor.RunChecks(c.Context, logger, c.Bool("fix"), checks)
}
