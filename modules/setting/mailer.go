// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"net/mail"

	"github.com/taigaio/taiga-back-sub001/modules/log"

	ini "gopkg.in/ini.v1"
)

// Mailer represents mail service.
type Mailer struct {
	Enabled       bool   `ini:"ENABLED"`
	From          string `ini:"FROM"`
	FromName      string `ini:"-"`
	FromEmail     string `ini:"-"`
	SubjectPrefix string `ini:"SUBJECT_PREFIX"`

	// SMTP sender
	Protocol             string `ini:"PROTOCOL"`
	SMTPAddr             string `ini:"SMTP_ADDR"`
	SMTPPort             int    `ini:"SMTP_PORT"`
	User                 string `ini:"USER"`
	Passwd               string `ini:"PASSWD"`
	ForceTrustServerCert bool   `ini:"FORCE_TRUST_SERVER_CERT"`
}

// MailService the global mailer, nil when mail is disabled
var MailService *Mailer

func loadMailerFrom(cfg *ini.File) {
	m := &Mailer{
		Protocol: "dummy",
		SMTPPort: 587,
		From:     "no-reply@localhost",
	}
	mustMapSetting(cfg, "mailer", m)
	if !m.Enabled {
		MailService = nil
		return
	}
	switch m.Protocol {
	case "smtp", "smtps", "dummy":
	default:
		log.Error("unknown mailer protocol %q, falling back to dummy", m.Protocol)
		m.Protocol = "dummy"
	}
	parsed, err := mail.ParseAddress(m.From)
	if err != nil {
		log.Error("Invalid mailer.FROM (%s): %v", m.From, err)
		parsed = &mail.Address{Address: "no-reply@localhost"}
	}
	m.FromName = parsed.Name
	m.FromEmail = parsed.Address
	MailService = m
}
