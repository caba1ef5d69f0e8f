// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package sender

import (
	"errors"
	"fmt"

	"github.com/wneessen/go-mail/smtp"
)

// loginAuth answers the username and password prompts of AUTH LOGIN
type loginAuth struct {
	host               string
	username, password string
}

// LoginAuth returns the AUTH LOGIN handler for host. Credentials are only sent over TLS
// or to a local server.
func LoginAuth(host, username, password string) smtp.Auth {
	return &loginAuth{host: host, username: username, password: password}
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}

// Start checks the connection before the credentials are sent
func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("refusing to send mail credentials over an unencrypted connection")
	}
	if server.Name != a.host {
		return "", nil, fmt.Errorf("wrong SMTP host name %q, expected %q", server.Name, a.host)
	}
	return "LOGIN", nil, nil
}

// Next answers one prompt of the server
func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch string(fromServer) {
	case "Username:":
		return []byte(a.username), nil
	case "Password:":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected SMTP AUTH LOGIN prompt %q", fromServer)
}
