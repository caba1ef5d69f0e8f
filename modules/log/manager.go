// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// DEFAULT is the name of the default logger
const DEFAULT = "default"

type loggerManager struct {
	mu      sync.Mutex
	out     io.Writer
	mode    WriterMode
	loggers map[string]*LoggerImpl
}

var manager = &loggerManager{
	out:     os.Stderr,
	mode:    WriterMode{Level: INFO, Console: true},
	loggers: map[string]*LoggerImpl{},
}

// GetLogger returns a logger with the given name, it is created on first use
func GetLogger(name string) Logger {
	return manager.get(name)
}

func (m *loggerManager) get(name string) *LoggerImpl {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.loggers[name]; ok {
		return l
	}
	l := NewLogger(name, m.out, m.mode)
	m.loggers[name] = l
	return l
}

// SetupDefault replaces the backend of every logger, existing named loggers are rebuilt with the new writer
func SetupDefault(out io.Writer, mode WriterMode) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.out = out
	manager.mode = mode
	for name := range manager.loggers {
		manager.loggers[name] = NewLogger(name, out, mode)
	}
}

// SetLoggerLevel changes the level of a named logger
func SetLoggerLevel(name string, level Level) {
	manager.get(name).SetLevel(level)
}

// Discard silences every logger, mostly used by tests
func Discard() {
	SetupDefault(io.Discard, WriterMode{Level: NONE})
}

// Trace records trace log
func Trace(format string, v ...any) {
	manager.get(DEFAULT).Log(1, TRACE, format, v...)
}

// Debug records debug log
func Debug(format string, v ...any) {
	manager.get(DEFAULT).Log(1, DEBUG, format, v...)
}

// Info records info log
func Info(format string, v ...any) {
	manager.get(DEFAULT).Log(1, INFO, format, v...)
}

// Warn records warning log
func Warn(format string, v ...any) {
	manager.get(DEFAULT).Log(1, WARN, format, v...)
}

// Error records error log
func Error(format string, v ...any) {
	manager.get(DEFAULT).Log(1, ERROR, format, v...)
}

// Critical records critical log
func Critical(format string, v ...any) {
	manager.get(DEFAULT).Log(1, CRITICAL, format, v...)
}

// Fatal records fatal log and exit process
func Fatal(format string, v ...any) {
	manager.get(DEFAULT).Log(1, FATAL, format, v...)
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}

// IsTrace returns true if the default logger emits trace messages
func IsTrace() bool {
	return manager.get(DEFAULT).LevelEnabled(TRACE)
}

// IsDebug returns true if the default logger emits debug messages
func IsDebug() bool {
	return manager.get(DEFAULT).LevelEnabled(DEBUG)
}
