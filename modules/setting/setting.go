// Copyright 2014 The Gogs Authors. All rights reserved.
// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/taigaio/taiga-back-sub001/modules/log"

	ini "gopkg.in/ini.v1"
)

// settings
var (
	// AppName is the name used in mail subjects and logs
	AppName = "Taiga"
	// AppWorkPath is the base of relative paths of data directories
	AppWorkPath = "."
	// AppDataPath is the default root of local blob storage and queue data
	AppDataPath = "data"
	// CustomConf is the path of the loaded configuration file
	CustomConf string

	// Cfg holds the loaded configuration
	Cfg *ini.File

	// IsInTesting is true when the settings were prepared by the unit test harness
	IsInTesting = false
)

// LoadSettings loads the configuration from the given ini file, a missing file is not an error
func LoadSettings(path string) error {
	CustomConf = path
	cfg := ini.Empty()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.Append(path); err != nil {
				return fmt.Errorf("failed to load custom conf '%s': %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("unable to check if %s is a file: %w", path, err)
		} else {
			log.Warn("Custom config '%s' not found, using defaults", path)
		}
	}
	return loadFromConf(cfg)
}

// LoadSettingsFromBytes loads the configuration from an in-memory ini document
func LoadSettingsFromBytes(data []byte) error {
	cfg, err := ini.Load(data)
	if err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}
	return loadFromConf(cfg)
}

// LoadForTest loads the defaults with an optional ini snippet
func LoadForTest(extraConfigs ...string) {
	IsInTesting = true
	cfg := ini.Empty()
	for _, extra := range extraConfigs {
		if err := cfg.Append([]byte(extra)); err != nil {
			log.Fatal("Unable to load test config: %v", err)
		}
	}
	if err := loadFromConf(cfg); err != nil {
		log.Fatal("Unable to load test settings: %v", err)
	}
}

func loadFromConf(cfg *ini.File) error {
	Cfg = cfg
	sec := cfg.Section("")
	AppName = sec.Key("APP_NAME").MustString(AppName)
	AppWorkPath = sec.Key("WORK_PATH").MustString(AppWorkPath)
	AppDataPath = sec.Key("APP_DATA_PATH").MustString(filepath.Join(AppWorkPath, "data"))
	if !filepath.IsAbs(AppDataPath) {
		AppDataPath = filepath.Join(AppWorkPath, AppDataPath)
	}

	loadLogFrom(cfg)
	loadServerFrom(cfg)
	if err := loadDatabaseFrom(cfg); err != nil {
		return err
	}
	loadStorageFrom(cfg)
	loadQueueFrom(cfg)
	loadMailerFrom(cfg)
	loadHistoryFrom(cfg)
	if err := loadImporterFrom(cfg); err != nil {
		return err
	}
	loadCronFrom(cfg)
	loadMetricsFrom(cfg)
	loadCacheFrom(cfg)
	return nil
}

// mustMapSetting maps a section onto a struct, keys that fail to parse keep their defaults
func mustMapSetting(cfg *ini.File, sectionName string, setting any) {
	if err := cfg.Section(sectionName).MapTo(setting); err != nil {
		log.Fatal("Unable to map [%s] section: %v", sectionName, err)
	}
}
