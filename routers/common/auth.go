// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package common

import (
	"context"
	"net/http"
	"strings"

	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"

	gouuid "github.com/google/uuid"
)

type doerContextKey struct{}

// WithDoer returns a context carrying the signed user
func WithDoer(ctx context.Context, doer *user_model.User) context.Context {
	return context.WithValue(ctx, doerContextKey{}, doer)
}

// GetDoer returns the signed user of the request, nil for anonymous requests
func GetDoer(ctx context.Context) *user_model.User {
	doer, _ := ctx.Value(doerContextKey{}).(*user_model.User)
	return doer
}

// ReverseProxyAuth relies on a reverse proxy for the authentication of users.
// On successful authentication the proxy is expected to populate the user name in the
// setting.Server.ReverseProxyAuthUser header, the header data is not verified again.
func ReverseProxyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		username := strings.TrimSpace(req.Header.Get(setting.Server.ReverseProxyAuthUser))
		if username == "" {
			next.ServeHTTP(resp, req)
			return
		}
		log.Trace("ReverseProxy Authorization: Found username: %s", username)

		ctx := req.Context()
		user, err := user_model.GetUserByName(ctx, username)
		if user_model.IsErrUserNotExist(err) && setting.Server.EnableReverseProxyAutoRegister {
			user, err = newReverseProxyUser(req, username)
		}
		if err != nil {
			if !user_model.IsErrUserNotExist(err) {
				log.Error("ReverseProxy Authorization for %s: %v", username, err)
			}
			next.ServeHTTP(resp, req)
			return
		}
		if !user.IsActive {
			next.ServeHTTP(resp, req)
			return
		}
		next.ServeHTTP(resp, req.WithContext(WithDoer(ctx, user)))
	})
}

// newReverseProxyUser registers the user named by the proxy, with the email it forwards if any
func newReverseProxyUser(req *http.Request, username string) (*user_model.User, error) {
	email := req.Header.Get(setting.Server.ReverseProxyAuthEmail)
	if email == "" {
		email = gouuid.New().String() + "@localhost"
	}
	user := &user_model.User{
		Name:     username,
		Email:    email,
		IsActive: true,
	}
	if err := user_model.CreateUser(req.Context(), user); err != nil {
		return nil, err
	}
	log.Info("ReverseProxy Authorization: registered user %s", username)
	return user, nil
}
