/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// Config is the logging section of a TOML configuration file.
type Config struct {
	Output   string `toml:"output"`
	Severity string `toml:"severity"`
}

type contextKey struct{}

// Entry is the logger type carried in contexts.
type Entry = log.FieldLogger

// Fields is a set of log fields.
type Fields = log.Fields

// Init sets up the standard logger before the configuration is parsed.
func Init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
}

// Setup applies the output and severity settings to the standard logger.
func Setup(conf Config) error {
	var output io.Writer
	switch conf.Output {
	case "stderr", "error", "2", "":
		output = os.Stderr
	case "stdout", "out", "1":
		output = os.Stdout
	default:
		file, err := os.OpenFile(conf.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err != nil {
			return trace.Wrap(err, "failed to open log file %q", conf.Output)
		}
		output = file
	}
	log.SetOutput(output)

	switch strings.ToLower(conf.Severity) {
	case "info", "":
		log.SetLevel(log.InfoLevel)
	case "err", "error":
		log.SetLevel(log.ErrorLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "trace":
		log.SetLevel(log.TraceLevel)
	default:
		return trace.BadParameter("unsupported logger severity: %q", conf.Severity)
	}

	return nil
}

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, logger Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithField attaches a field to the context logger.
func WithField(ctx context.Context, key string, value interface{}) (context.Context, Entry) {
	logger := Get(ctx).WithField(key, value)
	return WithLogger(ctx, logger), logger
}

// WithFields attaches several fields to the context logger.
func WithFields(ctx context.Context, fields Fields) (context.Context, Entry) {
	logger := Get(ctx).WithFields(fields)
	return WithLogger(ctx, logger), logger
}

// SetField is WithField without the logger in the result.
func SetField(ctx context.Context, key string, value interface{}) context.Context {
	ctx, _ = WithField(ctx, key, value)
	return ctx
}

// Get returns the context logger, falling back to the standard one.
func Get(ctx context.Context) Entry {
	if logger, ok := ctx.Value(contextKey{}).(Entry); ok && logger != nil {
		return logger
	}
	return Standard()
}

// Standard returns the package-level logrus logger.
func Standard() Entry {
	return log.StandardLogger()
}
