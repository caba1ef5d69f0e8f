// Copyright 2015 The Gogs Authors. All rights reserved.
// Copyright 2016 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package v1 is the HTTP API of the engine.
//
// Every route needs a user signed by the authenticating reverse proxy.
// Errors are answered with an APIError body whose kind names the failure:
// VALIDATION_ERROR and READONLY_FIELD are 400, STALE_OBJECT_ERROR is 409,
// PRECONDITION_FAILED is 412, NOT_FOUND is 404, PERMISSION_DENIED is 403,
// TRANSIENT_CONFLICT is 503 with a Retry-After header and INTERNAL_ERROR is 500.
package v1

import (
	"net/http"

	"github.com/taigaio/taiga-back-sub001/routers/common"

	"github.com/go-chi/chi/v5"
)

// Routes returns the API routes mounted under /api/v1
func Routes() http.Handler {
	m := chi.NewRouter()
	m.Use(common.ReverseProxyAuth)
	m.Use(reqSignIn)

	m.Post("/projects", handler(CreateProject))
	m.Route("/projects/{project}", func(m chi.Router) {
		m.Get("/", handler(GetProject))
		m.Delete("/", handler(DeleteProject))

		m.Get("/roles", handler(ListRoles))
		m.Post("/roles", handler(AddRole))
		m.Delete("/roles/{role}", handler(DeleteRole))

		m.Post("/refs/{kind}", handler(AllocateRef))

		m.Route("/{kind}", func(m chi.Router) {
			m.Post("/", handler(CreateItem))
			m.Route("/{id}", func(m chi.Router) {
				m.Get("/", handler(GetItem))
				m.Patch("/", handler(EditItem))
				m.Delete("/", handler(DeleteItem))
				m.Get("/history", handler(GetItemHistory))
				m.Get("/watch", handler(GetWatching))
				m.Put("/watch", handler(Watch))
				m.Delete("/watch", handler(Unwatch))
			})
		})
	})

	m.Post("/imports", handler(ImportProject))
	m.Get("/imports/{uuid}", handler(GetImportJob))
	return m
}
