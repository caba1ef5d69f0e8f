// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package sender

import (
	"fmt"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// Message mail body and log info
type Message struct {
	Info            string // Message information for log purpose.
	FromAddress     string
	FromDisplayName string
	To              string // Use only one recipient to prevent leaking of addresses
	ReplyTo         string
	Subject         string
	Date            time.Time
	Body            string
	Headers         map[string][]string
}

// ToMessage converts a Message to gomail.Message
func (m *Message) ToMessage() *mail.Msg {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.FromDisplayName, m.FromAddress); err != nil {
		log.Error("Invalid mail from %q: %v", m.FromAddress, err)
	}
	if err := msg.To(m.To); err != nil {
		log.Error("Invalid mail recipient %q: %v", m.To, err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			log.Error("Invalid mail reply-to %q: %v", m.ReplyTo, err)
		}
	}
	for header := range m.Headers {
		msg.SetGenHeader(mail.Header(header), m.Headers[header]...)
	}

	if setting.MailService != nil && len(setting.MailService.SubjectPrefix) > 0 {
		msg.Subject(setting.MailService.SubjectPrefix + ": " + m.Subject)
	} else {
		msg.Subject(m.Subject)
	}
	msg.SetDateWithValue(m.Date)
	msg.SetGenHeader("X-Auto-Response-Suppress", "All")
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	if len(msg.GetGenHeader(mail.HeaderMessageID)) == 0 {
		msg.SetGenHeader(mail.HeaderMessageID, fmt.Sprintf("<%s@%s>", uuid.NewString(), setting.Server.Domain))
	}
	return msg
}

// NewMessageFrom creates new mail message object with custom From header.
func NewMessageFrom(to, fromDisplayName, fromAddress, subject, body string) *Message {
	log.Trace("NewMessageFrom (body):\n%s", body)

	return &Message{
		FromAddress:     fromAddress,
		FromDisplayName: fromDisplayName,
		To:              to,
		Subject:         subject,
		Date:            time.Now(),
		Body:            body,
		Headers:         map[string][]string{},
	}
}

// NewMessage creates new mail message object with default From header.
func NewMessage(to, subject, body string) *Message {
	return NewMessageFrom(to, setting.MailService.FromName, setting.MailService.FromEmail, subject, body)
}
