// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"strings"
	"time"

	ini "gopkg.in/ini.v1"
)

// RunMode values
const (
	RunModeDev  = "dev"
	RunModeProd = "prod"
)

// Server settings
var Server = struct {
	HTTPAddr        string        `ini:"HTTP_ADDR"`
	Domain          string        `ini:"DOMAIN"`
	AppURL          string        `ini:"ROOT_URL"`
	RunMode         string        `ini:"RUN_MODE"`
	ReadTimeout     time.Duration `ini:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `ini:"WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `ini:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `ini:"SHUTDOWN_TIMEOUT"`
	// ReverseProxyAuthUser is the header the authenticating proxy puts the user name in
	ReverseProxyAuthUser string `ini:"REVERSE_PROXY_AUTHENTICATION_USER"`
	// ReverseProxyAuthEmail is read when a user is registered on first sight
	ReverseProxyAuthEmail          string `ini:"REVERSE_PROXY_AUTHENTICATION_EMAIL"`
	EnableReverseProxyAutoRegister bool   `ini:"ENABLE_REVERSE_PROXY_AUTO_REGISTRATION"`
}{
	HTTPAddr:        ":8000",
	Domain:          "localhost",
	AppURL:          "http://localhost:8000/",
	RunMode:         RunModeProd,
	ReadTimeout:     30 * time.Second,
	WriteTimeout:    30 * time.Second,
	RequestTimeout:  60 * time.Second,
	ShutdownTimeout: 10 * time.Second,

	ReverseProxyAuthUser:  "X-WEBAUTH-USER",
	ReverseProxyAuthEmail: "X-WEBAUTH-EMAIL",
}

// IsProd returns true when the server runs in production mode
func IsProd() bool {
	return Server.RunMode == RunModeProd
}

func loadServerFrom(cfg *ini.File) {
	mustMapSetting(cfg, "server", &Server)
	if Server.RunMode != RunModeDev {
		Server.RunMode = RunModeProd
	}
	if !strings.HasSuffix(Server.AppURL, "/") {
		Server.AppURL += "/"
	}
}
