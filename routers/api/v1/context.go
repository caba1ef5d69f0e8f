// Copyright 2016 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package v1

import (
	"errors"
	"maps"
	"net/http"
	"slices"
	"strconv"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"
	"github.com/taigaio/taiga-back-sub001/routers/common"
	"github.com/taigaio/taiga-back-sub001/services/mutation"

	"github.com/go-chi/chi/v5"
)

// APIContext is the context of an API request
type APIContext struct {
	Resp http.ResponseWriter
	Req  *http.Request
	Doer *user_model.User
}

// handler adapts an API handler to net/http
func handler(fn func(ctx *APIContext)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(&APIContext{Resp: w, Req: r, Doer: common.GetDoer(r.Context())})
	}
}

// JSON writes v with the given status
func (ctx *APIContext) JSON(status int, v any) {
	ctx.Resp.Header().Set("Content-Type", "application/json;charset=utf-8")
	ctx.Resp.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(ctx.Resp).Encode(v); err != nil {
		log.Error("Render JSON failed: %v", err)
	}
}

// Status writes an empty response
func (ctx *APIContext) Status(status int) {
	ctx.Resp.WriteHeader(status)
}

// statusOf maps an error kind to its HTTP status
func statusOf(kind mutation.ErrorKind) int {
	switch kind {
	case mutation.KindValidation, mutation.KindReadonlyField:
		return http.StatusBadRequest
	case mutation.KindStaleObject:
		return http.StatusConflict
	case mutation.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case mutation.KindNotFound:
		return http.StatusNotFound
	case mutation.KindPermissionDenied:
		return http.StatusForbidden
	case mutation.KindTransientConflict:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Error responds with the kind of err, internal errors are logged and their message is hidden
func (ctx *APIContext) Error(err error) {
	kind := mutation.KindOf(err)
	body := api.APIError{Kind: string(kind), Message: err.Error()}

	var stale agile_model.ErrStaleObject
	var invalid agile_model.ErrValidation
	var readonly agile_model.ErrReadonlyField
	switch {
	case errors.As(err, &stale):
		body.Fields = stale.Fields
	case errors.As(err, &readonly):
		body.Fields = []string{readonly.Field}
	case errors.As(err, &invalid):
		body.Fields = slices.Sorted(maps.Keys(invalid.Fields))
	}

	status := statusOf(kind)
	if status == http.StatusInternalServerError {
		log.Error("%s %s: %v", ctx.Req.Method, ctx.Req.URL.Path, err)
		body.Message = http.StatusText(status)
	}
	if kind.Retryable() {
		ctx.Resp.Header().Set("Retry-After", "1")
	}
	ctx.JSON(status, body)
}

// BadRequest responds with a validation error about the request itself
func (ctx *APIContext) BadRequest(field, format string, args ...any) {
	ctx.Error(agile_model.NewErrValidation(field, format, args...))
}

// DecodeJSON reads the request body into v
func (ctx *APIContext) DecodeJSON(v any) bool {
	if err := json.NewDecoder(ctx.Req.Body).Decode(v); err != nil {
		ctx.BadRequest("body", "invalid JSON: %v", err)
		return false
	}
	return true
}

// ParamsInt64 returns the named URL parameter as an int64, 0 when it is not a number
func (ctx *APIContext) ParamsInt64(name string) int64 {
	v, _ := strconv.ParseInt(chi.URLParam(ctx.Req, name), 10, 64)
	return v
}

// Params returns the named URL parameter
func (ctx *APIContext) Params(name string) string {
	return chi.URLParam(ctx.Req, name)
}

// reqSignIn requires a signed user
func reqSignIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if common.GetDoer(r.Context()) == nil {
			ctx := &APIContext{Resp: w, Req: r}
			ctx.JSON(http.StatusUnauthorized, api.APIError{Kind: "UNAUTHORIZED", Message: "sign in required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
