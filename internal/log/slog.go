// Copyright 2024 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config describes how the process logger is constructed.
type Config struct {
	Level        string            `yaml:"level"`
	Format       string            `yaml:"format"`
	StaticFields map[string]string `yaml:"static_fields"`
}

// NewConfig returns a Config with default values.
func NewConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		StaticFields: map[string]string{
			"@service": "slack-flow-bridge",
		},
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug", "trace", "all":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "fatal":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log level not recognised: %v", s)
}

// New creates a Modular logger writing to w according to conf.
func New(w io.Writer, conf Config) (Modular, error) {
	level, err := parseLevel(conf.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(conf.Format) {
	case "", "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "logfmt":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("log format not recognised: %v", conf.Format)
	}

	var l Modular = NewSlogAdapter(slog.New(h))
	if len(conf.StaticFields) > 0 {
		l = l.WithFields(conf.StaticFields)
	}
	return l, nil
}

// Noop returns a logger that discards everything.
func Noop() Modular {
	return NewSlogAdapter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type logHandler struct {
	slog *slog.Logger
}

// NewSlogAdapter wraps a *slog.Logger with the Modular interface.
func NewSlogAdapter(l *slog.Logger) Modular {
	return &logHandler{slog: l}
}

func (l *logHandler) WithFields(fields map[string]string) Modular {
	tmp := l.slog
	for k, v := range fields {
		tmp = tmp.With(slog.String(k, v))
	}
	return &logHandler{slog: tmp}
}

func (l *logHandler) With(keyValues ...any) Modular {
	return &logHandler{slog: l.slog.With(keyValues...)}
}

func (l *logHandler) Errorf(format string, v ...any) {
	l.slog.Error(fmt.Sprintf(format, v...))
}

func (l *logHandler) Warnf(format string, v ...any) {
	l.slog.Warn(fmt.Sprintf(format, v...))
}

func (l *logHandler) Infof(format string, v ...any) {
	l.slog.Info(fmt.Sprintf(format, v...))
}

func (l *logHandler) Debugf(format string, v ...any) {
	l.slog.Debug(fmt.Sprintf(format, v...))
}

func (l *logHandler) Errorln(message string) {
	l.slog.Error(message)
}

func (l *logHandler) Warnln(message string) {
	l.slog.Warn(message)
}

func (l *logHandler) Infoln(message string) {
	l.slog.Info(message)
}

func (l *logHandler) Debugln(message string) {
	l.slog.Debug(message)
}
