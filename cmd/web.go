// Copyright 2014 The Gogs Authors. All rights reserved.
// Copyright 2016 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/routers"

	"github.com/urfave/cli/v2"
)

// CmdWeb represents the available web sub-command.
var CmdWeb = &cli.Command{
	Name:        "web",
	Usage:       "Start the HTTP API server",
	Description: "Serves the HTTP API, runs the import queue and the periodic tasks.",
	Action:      runWeb,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Usage:   "Address to listen on, overrides HTTP_ADDR of [server]",
		},
	},
}

func runWeb(c *cli.Context) error {
	ctx := c.Context
	if c.IsSet("listen") {
		setting.Server.HTTPAddr = c.String("listen")
	}

	routers.InitWebInstalled(ctx)
	defer routers.ShutdownWebInstalled()

	srv := &http.Server{
		Addr:         setting.Server.HTTPAddr,
		Handler:      routers.NormalRoutes(),
		ReadTimeout:  setting.Server.ReadTimeout,
		WriteTimeout: setting.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listen: http://%s", setting.Server.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Critical("Failed to start server: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down the HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), setting.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown: %v", err)
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}
