// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package common

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"github.com/go-chi/chi/v5/middleware"
)

// Middlewares returns common middlewares
func Middlewares() []func(http.Handler) http.Handler {
	handlers := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.StripSlashes,
		loggerHandler,
	}
	if setting.Server.RequestTimeout > 0 {
		handlers = append(handlers, middleware.Timeout(setting.Server.RequestTimeout))
	}

	handlers = append(handlers, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					combinedErr := fmt.Sprintf("PANIC: %v\n%s", err, debug.Stack())
					log.Error("%v", combinedErr)
					if setting.IsProd() {
						http.Error(resp, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					} else {
						http.Error(resp, combinedErr, http.StatusInternalServerError)
					}
				}
			}()
			next.ServeHTTP(resp, req)
		})
	})
	return handlers
}

func loggerHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(resp, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if status >= http.StatusInternalServerError {
			log.Warn("router: completed %s %s %d in %v [%s]", req.Method, req.RequestURI, status, elapsed, middleware.GetReqID(req.Context()))
			return
		}
		log.Debug("router: completed %s %s %d in %v", req.Method, req.RequestURI, status, elapsed)
	})
}
