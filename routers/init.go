// Copyright 2016 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package routers

import (
	"context"
	"net/http"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/cache"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/storage"
	apiv1 "github.com/taigaio/taiga-back-sub001/routers/api/v1"
	"github.com/taigaio/taiga-back-sub001/routers/common"
	"github.com/taigaio/taiga-back-sub001/services/cron"
	"github.com/taigaio/taiga-back-sub001/services/mailer"
	"github.com/taigaio/taiga-back-sub001/services/task"

	"github.com/go-chi/chi/v5"
)

func mustInit(name string, fn func() error) {
	if err := fn(); err != nil {
		log.Fatal("%s failed: %v", name, err)
	}
}

func mustInitCtx(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Fatal("%s failed: %v", name, err)
	}
}

// InitDBEngine connects to the database and syncs the tables
func InitDBEngine(ctx context.Context) error {
	log.Info("Beginning ORM engine initialization.")
	if err := db.InitEngine(ctx); err != nil {
		return err
	}
	if err := db.SyncAllTables(); err != nil {
		return err
	}
	log.Info("ORM engine initialization successful!")
	return nil
}

// InitWebInstalled starts the database, the blob store, the queues and the periodic tasks
func InitWebInstalled(ctx context.Context) {
	log.Info("Run Mode: %s", setting.Server.RunMode)
	log.Info("Custom config: %s", setting.CustomConf)

	mustInitCtx(ctx, "InitDBEngine", InitDBEngine)
	mustInit("storage.Init", storage.Init)
	mustInit("cache.Init", cache.Init)
	mustInitCtx(ctx, "mailer.NewContext", mailer.NewContext)
	mustInitCtx(ctx, "task.Init", task.Init)
	cron.NewContext(ctx)
}

// ShutdownWebInstalled stops what InitWebInstalled started, the queues drain first
func ShutdownWebInstalled() {
	cron.Shutdown()
	task.Shutdown(setting.Server.ShutdownTimeout)
	mailer.Shutdown(setting.Server.ShutdownTimeout)
}

// NormalRoutes represents non install routes
func NormalRoutes() *chi.Mux {
	r := chi.NewRouter()
	for _, middle := range common.Middlewares() {
		r.Use(middle)
	}

	r.Get("/api/healthz", func(resp http.ResponseWriter, req *http.Request) {
		if err := db.Ping(req.Context()); err != nil {
			log.Error("healthz: %v", err)
			http.Error(resp, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		resp.WriteHeader(http.StatusOK)
	})
	if setting.Metrics.Enabled {
		r.Get("/metrics", common.Metrics)
	}
	r.Mount("/api/v1", apiv1.Routes())
	return r
}
