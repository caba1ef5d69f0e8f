// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package sender

import (
	"errors"
	"io"

	"github.com/taigaio/taiga-back-sub001/modules/log"
)

// Sender delivers a rendered mail
type Sender interface {
	Send(from string, to []string, msg io.WriterTo) error
}

// Send delivers one message through sender, it is a variable so that tests can capture mails
var Send = send

func send(sender Sender, msg *Message) error {
	if msg.FromAddress == "" {
		return errors.New("mailer FROM is not configured")
	}
	m := msg.ToMessage()
	to, err := m.GetRecipients()
	if err != nil {
		return err
	}
	if len(to) == 0 {
		return errors.New("mail has no recipient")
	}
	log.Trace("Sending %q to %v", msg.Subject, to)
	return sender.Send(msg.FromAddress, to, m)
}
