// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"path/filepath"

	ini "gopkg.in/ini.v1"
)

// StorageType is a type of Storage
type StorageType string

const (
	// LocalStorageType is the type descriptor for local storage
	LocalStorageType StorageType = "local"
	// MinioStorageType is the type descriptor for minio storage
	MinioStorageType StorageType = "minio"
)

// MinioStorageConfig represents the configuration for a minio storage
type MinioStorageConfig struct {
	Endpoint        string `ini:"MINIO_ENDPOINT"`
	AccessKeyID     string `ini:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `ini:"MINIO_SECRET_ACCESS_KEY"`
	Bucket          string `ini:"MINIO_BUCKET"`
	Location        string `ini:"MINIO_LOCATION"`
	BasePath        string `ini:"MINIO_BASE_PATH"`
	UseSSL          bool   `ini:"MINIO_USE_SSL"`
}

// Storage represents configuration of storages
type Storage struct {
	Type          StorageType
	Path          string
	MinioConfig   MinioStorageConfig
	MaxUploadSize int64
}

// Attachments is the blob store used for work-item attachments
var Attachments = &Storage{Type: LocalStorageType}

func loadStorageFrom(cfg *ini.File) {
	sec := cfg.Section("storage")
	Attachments = &Storage{
		Type:          StorageType(sec.Key("STORAGE_TYPE").In(string(LocalStorageType), []string{string(LocalStorageType), string(MinioStorageType)})),
		MaxUploadSize: sec.Key("MAX_UPLOAD_SIZE").MustInt64(100 << 20),
		MinioConfig: MinioStorageConfig{
			Endpoint: "localhost:9000",
			Bucket:   "taiga",
			Location: "us-east-1",
			BasePath: "attachments/",
		},
	}
	Attachments.Path = sec.Key("PATH").MustString(filepath.Join(AppDataPath, "attachments"))
	if !filepath.IsAbs(Attachments.Path) {
		Attachments.Path = filepath.Join(AppWorkPath, Attachments.Path)
	}
	mustMapSetting(cfg, "storage", &Attachments.MinioConfig)
}
