// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"path/filepath"

	ini "gopkg.in/ini.v1"
)

// QueueSettings represent the settings for a queue from the ini
type QueueSettings struct {
	Name        string
	Type        string // channel or redis
	DataDir     string
	ConnStr     string
	Length      int
	BatchLength int
	MaxWorkers  int
}

// Queue is the default queue configuration, named queues override it in [queue.<name>]
var Queue = QueueSettings{
	Type:        "channel",
	Length:      100,
	BatchLength: 20,
	MaxWorkers:  4,
}

func loadQueueFrom(cfg *ini.File) {
	sec := cfg.Section("queue")
	Queue.Type = sec.Key("TYPE").In("channel", []string{"channel", "redis"})
	Queue.ConnStr = sec.Key("CONN_STR").MustString("redis://127.0.0.1:6379/0")
	Queue.Length = sec.Key("LENGTH").MustInt(100)
	Queue.BatchLength = sec.Key("BATCH_LENGTH").MustInt(20)
	Queue.MaxWorkers = sec.Key("MAX_WORKERS").MustInt(4)
	Queue.DataDir = filepath.Join(AppDataPath, "queues")
}

// GetQueueSettings returns the queue settings for the appropriately named queue
func GetQueueSettings(name string) QueueSettings {
	q := Queue
	q.Name = name
	if Cfg == nil {
		return q
	}
	sec := Cfg.Section("queue." + name)
	q.Type = sec.Key("TYPE").MustString(q.Type)
	q.ConnStr = sec.Key("CONN_STR").MustString(q.ConnStr)
	q.Length = sec.Key("LENGTH").MustInt(q.Length)
	q.BatchLength = sec.Key("BATCH_LENGTH").MustInt(q.BatchLength)
	q.MaxWorkers = sec.Key("MAX_WORKERS").MustInt(q.MaxWorkers)
	return q
}
