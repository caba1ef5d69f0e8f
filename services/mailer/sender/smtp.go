// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package sender

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"github.com/wneessen/go-mail/smtp"
)

// SMTPSender Sender SMTP mail sender
type SMTPSender struct{}

var _ Sender = &SMTPSender{}

// Send send email
func (s *SMTPSender) Send(from string, to []string, msg io.WriterTo) error {
	opts := setting.MailService
	addr := net.JoinHostPort(opts.SMTPAddr, strconv.Itoa(opts.SMTPPort))
	tlsConfig := &tls.Config{
		InsecureSkipVerify: opts.ForceTrustServerCert, //nolint:gosec
		ServerName:         opts.SMTPAddr,
	}

	var (
		conn net.Conn
		err  error
	)
	if opts.Protocol == "smtps" {
		conn, err = tls.Dial("tcp", addr, tlsConfig)
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to establish network connection to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, opts.SMTPAddr)
	if err != nil {
		return fmt.Errorf("could not initiate SMTP session: %w", err)
	}
	if err = client.Hello(setting.Server.Domain); err != nil {
		return fmt.Errorf("failed to issue HELO command: %w", err)
	}

	if opts.Protocol == "smtp" {
		if hasStartTLS, _ := client.Extension("STARTTLS"); hasStartTLS {
			if err = client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to start TLS connection: %w", err)
			}
		}
	}

	if len(opts.User) > 0 {
		if ok, _ := client.Extension("AUTH"); ok {
			if err = client.Auth(LoginAuth(opts.SMTPAddr, opts.User, opts.Passwd)); err != nil {
				return fmt.Errorf("failed to authenticate SMTP: %w", err)
			}
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to issue MAIL command: %w", err)
	}
	for _, rec := range to {
		if err = client.Rcpt(rec); err != nil {
			return fmt.Errorf("failed to issue RCPT command: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to issue DATA command: %w", err)
	} else if _, err = msg.WriteTo(w); err != nil {
		return fmt.Errorf("SMTP write failed: %w", err)
	} else if err = w.Close(); err != nil {
		return fmt.Errorf("SMTP close failed: %w", err)
	}

	return client.Quit()
}

// DummySender Sender sending email without anything
type DummySender struct{}

var _ Sender = &DummySender{}

// Send send email
func (s *DummySender) Send(from string, to []string, msg io.WriterTo) error {
	return nil
}
