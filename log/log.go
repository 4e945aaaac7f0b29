// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log provides the small structured-logging abstraction used by
// the rest of armunwind. It mirrors the Logger/Helper split the pipeline
// stages were written against: a Logger does the actual emission, a Helper
// adds the Infof/Warnf/Errorf convenience layer pipeline code calls, and a
// Filter wraps a Logger to drop anything below a configured Level.
package log

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Level is a log severity.
type Level int

// Severity levels, lowest first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger emits a single log record made of alternating key/value pairs,
// the way kv-style structured loggers expect to be called.
type Logger interface {
	Log(level Level, kv ...interface{}) error
}

// stdLogger backs Logger with a logrus.Logger, so field-rich records survive
// as logrus.Fields instead of being flattened into a format string.
type stdLogger struct {
	entry *logrus.Logger
}

// NewStdLogger returns a Logger that writes structured records to w via
// logrus, one line per Log call.
func NewStdLogger(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &stdLogger{entry: l}
}

func (l *stdLogger) Log(level Level, kv ...interface{}) error {
	fields := logrus.Fields{}
	var msg string
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if key == "msg" {
			msg, _ = kv[i+1].(string)
			continue
		}
		fields[key] = kv[i+1]
	}

	entry := l.entry.WithFields(fields)
	switch level {
	case LevelDebug:
		entry.Debug(msg)
	case LevelInfo:
		entry.Info(msg)
	case LevelWarn:
		entry.Warn(msg)
	case LevelError:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}

// FilterOption configures a filtering Logger built by NewFilter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level that passes through the filter.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) {
		f.level = level
	}
}

type filter struct {
	logger Logger
	level  Level
}

// NewFilter wraps logger so that records below the configured level
// (LevelInfo by default) are dropped before reaching it.
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filter{logger: logger, level: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, kv ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, kv...)
}

// Helper adds leveled, printf-style convenience methods on top of a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps logger in the Infof/Warnf/Errorf convenience layer.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	h.logger.Log(level, "msg", msg)
}

// Debugf logs at LevelDebug.
func (h *Helper) Debugf(format string, args ...interface{}) {
	h.log(LevelDebug, format, args...)
}

// Infof logs at LevelInfo.
func (h *Helper) Infof(format string, args ...interface{}) {
	h.log(LevelInfo, format, args...)
}

// Warnf logs at LevelWarn.
func (h *Helper) Warnf(format string, args ...interface{}) {
	h.log(LevelWarn, format, args...)
}

// Errorf logs at LevelError.
func (h *Helper) Errorf(format string, args ...interface{}) {
	h.log(LevelError, format, args...)
}
