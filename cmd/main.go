// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/routers"

	"github.com/urfave/cli/v2"
)

// AppVersion is the version reported by --version
type AppVersion struct {
	Version string
	Extra   string
}

func appGlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "custom/conf/app.ini",
			Usage:   "Custom configuration file path",
			EnvVars: []string{"TAIGA_CONFIG"},
		},
	}
}

// NewMainApp returns the command line application, "web" runs when no command is given
func NewMainApp(appVer AppVersion) *cli.App {
	app := cli.NewApp()
	app.Name = "taiga"
	app.Usage = "Consistency engine for agile work items"
	app.Description = `The "web" command serves the HTTP API, the other commands import projects and repair stored data.`
	app.Version = appVer.Version + appVer.Extra
	app.EnableBashCompletion = true
	app.Flags = appGlobalFlags()
	app.Before = loadSettings
	app.Commands = []*cli.Command{
		CmdWeb,
		CmdImport,
		CmdDoctor,
		CmdAdmin,
	}
	app.DefaultCommand = CmdWeb.Name
	return app
}

// RunMainApp runs the application until it ends or a termination signal arrives
func RunMainApp(app *cli.App, args ...string) error {
	ctx, cancel := installSignals()
	defer cancel()
	err := app.RunContext(ctx, args)
	if err == nil {
		return nil
	}
	if strings.HasPrefix(err.Error(), "flag provided but not defined:") {
		cli.OsExiter(1)
		return err
	}
	_, _ = fmt.Fprintf(app.ErrWriter, "Command error: %v\n", err)
	cli.OsExiter(1)
	return err
}

func installSignals() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadSettings reads the configuration file and sets up the loggers, the test harness has loaded its own already
func loadSettings(c *cli.Context) error {
	if setting.IsInTesting {
		return nil
	}
	if err := setting.LoadSettings(c.String("config")); err != nil {
		return err
	}
	setting.InitLogger()
	return nil
}

// initDB connects to the database outside of the web server
func initDB(ctx context.Context) error {
	if setting.IsInTesting {
		return nil
	}
	if err := routers.InitDBEngine(ctx); err != nil {
		log.Error("database initialization failed: %v", err)
		return fmt.Errorf("check that --config points to the right file: %w", err)
	}
	return nil
}

func argsSet(c *cli.Context, args ...string) error {
	for _, a := range args {
		if !c.IsSet(a) {
			return fmt.Errorf("%s is not set", a)
		}
	}
	return nil
}
