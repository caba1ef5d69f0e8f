// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package queue

import (
	"github.com/taigaio/taiga-back-sub001/modules/setting"
)

type BaseConfig struct {
	ManagedName string

	ConnStr string
	Length  int

	QueueFullName string
}

func toBaseConfig(managedName string, queueSetting setting.QueueSettings) *BaseConfig {
	return &BaseConfig{
		ManagedName:   managedName,
		ConnStr:       queueSetting.ConnStr,
		Length:        queueSetting.Length,
		QueueFullName: "taiga_queue_" + managedName,
	}
}
