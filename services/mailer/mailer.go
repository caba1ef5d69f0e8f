// Copyright 2014 The Gogs Authors. All rights reserved.
// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mailer

import (
	"context"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/metrics"
	"github.com/taigaio/taiga-back-sub001/modules/queue"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	sender_service "github.com/taigaio/taiga-back-sub001/services/mailer/sender"
)

var mailQueue *queue.WorkerPoolQueue[*sender_service.Message]

// sender sender for sending mail synchronously
var sender sender_service.Sender

// NewContext start mail queue service
func NewContext(ctx context.Context) error {
	if setting.MailService == nil || mailQueue != nil {
		return nil
	}

	switch setting.MailService.Protocol {
	case "dummy":
		sender = &sender_service.DummySender{}
	default:
		sender = &sender_service.SMTPSender{}
	}

	var err error
	mailQueue, err = queue.NewWorkerPoolQueueWithContext(ctx, "mail", setting.GetQueueSettings("mail"), func(items ...*sender_service.Message) []*sender_service.Message {
		for _, msg := range items {
			gomailMsg := msg.ToMessage()
			log.Trace("New e-mail sending request %s: %s", gomailMsg.GetGenHeader("To"), msg.Info)
			if err := sender_service.Send(sender, msg); err != nil {
				log.Error("Failed to send emails %s: %s - %v", gomailMsg.GetGenHeader("To"), msg.Info, err)
			} else {
				log.Trace("E-mails sent %s: %s", gomailMsg.GetGenHeader("To"), msg.Info)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	go mailQueue.Run()
	return nil
}

// Shutdown drains the mail queue
func Shutdown(timeout time.Duration) {
	if mailQueue != nil {
		mailQueue.ShutdownWait(timeout)
		mailQueue = nil
	}
}

// SendAsync send emails asynchronously (make it mockable)
var SendAsync = sendAsync

func sendAsync(msgs ...*sender_service.Message) {
	if setting.MailService == nil || mailQueue == nil {
		log.Trace("Mailer: mail service is disabled, %d messages dropped", len(msgs))
		return
	}

	for _, msg := range msgs {
		if err := mailQueue.Push(msg); err != nil {
			log.Error("Mailer: unable to queue %s: %v", msg.Info, err)
			continue
		}
		metrics.MailsQueued.Inc()
	}
}
