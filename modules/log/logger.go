// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package log provides leveled logging for the engine.
// Concepts:
//
// * Logger: a Logger provides printf-style logging functions at a level
//
// * LoggerImpl: the only Logger implementation, it renders events with zerolog
//   - every named logger shares the writer of the default logger unless it is
//     configured separately, the name is attached as the "logger" field
//
// Call graph:
// -> log.Info()
// -> LoggerImpl.Log()
// -> zerolog.Event.Msg()
package log

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// BaseLogger provides the basic logging functions
type BaseLogger interface {
	Log(skip int, level Level, format string, v ...any)
	GetLevel() Level
}

// LevelLogger provides level-related logging functions
type LevelLogger interface {
	LevelEnabled(level Level) bool

	Trace(format string, v ...any)
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Critical(format string, v ...any)
}

type Logger interface {
	BaseLogger
	LevelLogger
}

// WriterMode holds the options used to build a logger backend
type WriterMode struct {
	Level    Level
	Console  bool // human readable output instead of JSON lines
	Colorize bool
	Caller   bool
}

// LoggerImpl renders log events through zerolog
type LoggerImpl struct {
	name   string
	level  atomic.Int32
	caller bool
	zl     zerolog.Logger
}

var _ Logger = (*LoggerImpl)(nil)

// NewLogger creates a named logger writing to out
func NewLogger(name string, out io.Writer, mode WriterMode) *LoggerImpl {
	if mode.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !mode.Colorize}
	}
	ctx := zerolog.New(out).With().Timestamp()
	if name != "" && name != DEFAULT {
		ctx = ctx.Str("logger", name)
	}
	l := &LoggerImpl{name: name, caller: mode.Caller, zl: ctx.Logger().Level(zerolog.TraceLevel)}
	l.SetLevel(mode.Level)
	return l
}

// Name returns the logger name
func (l *LoggerImpl) Name() string {
	return l.name
}

// SetLevel changes the minimum level emitted by the logger
func (l *LoggerImpl) SetLevel(level Level) {
	if level == UNDEFINED {
		level = INFO
	}
	l.level.Store(int32(level))
}

// GetLevel returns the minimum level emitted by the logger
func (l *LoggerImpl) GetLevel() Level {
	return Level(l.level.Load())
}

// LevelEnabled checks if the level is enabled
func (l *LoggerImpl) LevelEnabled(level Level) bool {
	current := l.GetLevel()
	return current != NONE && level >= current
}

// Log prepares the log event, if the level matches, the event will be rendered by the backend
func (l *LoggerImpl) Log(skip int, level Level, format string, v ...any) {
	if !l.LevelEnabled(level) {
		return
	}
	ev := l.zl.WithLevel(level.zerologLevel())
	if l.caller {
		if _, file, line, ok := runtime.Caller(skip + 1); ok {
			ev = ev.Str("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}
	if len(v) == 0 {
		ev.Msg(format)
		return
	}
	ev.Msgf(format, v...)
}

// Trace logs a message with trace level
func (l *LoggerImpl) Trace(format string, v ...any) {
	l.Log(1, TRACE, format, v...)
}

// Debug logs a message with debug level
func (l *LoggerImpl) Debug(format string, v ...any) {
	l.Log(1, DEBUG, format, v...)
}

// Info logs a message with info level
func (l *LoggerImpl) Info(format string, v ...any) {
	l.Log(1, INFO, format, v...)
}

// Warn logs a message with warning level
func (l *LoggerImpl) Warn(format string, v ...any) {
	l.Log(1, WARN, format, v...)
}

// Error logs a message with error level
func (l *LoggerImpl) Error(format string, v ...any) {
	l.Log(1, ERROR, format, v...)
}

// Critical logs a message with critical level
func (l *LoggerImpl) Critical(format string, v ...any) {
	l.Log(1, CRITICAL, format, v...)
}
