/*-------------------------------------------------------------------------
 *
 * logger.go
 *    Structured logging for NeuronApprovals
 *
 * Wraps zerolog behind the level/fields API used across the service so
 * handlers, the approval manager and notification workers log the same way.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/logging/logger.go
 *
 *-------------------------------------------------------------------------
 */

package logging

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

/* Logger provides structured logging */
type Logger struct {
	zl      zerolog.Logger
	enabled bool
}

/* Options configures a logger */
type Options struct {
	Enabled bool
	Level   string
	Format  string
	Output  string
}

/* NewLogger creates a new logger writing to stdout, stderr or a file path */
func NewLogger(level, format, output string) *Logger {
	return New(Options{Enabled: true, Level: level, Format: format, Output: output})
}

/* New creates a logger from options; a disabled logger discards everything */
func New(opts Options) *Logger {
	if !opts.Enabled {
		return &Logger{zl: zerolog.Nop()}
	}
	return newWithWriter(openOutput(opts.Output), opts.Level, opts.Format)
}

/* NewWithWriter creates a logger writing JSON or text lines to w */
func NewWithWriter(w io.Writer, level, format string) *Logger {
	return newWithWriter(w, level, format)
}

/* Nop returns a logger that discards all output */
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newWithWriter(w io.Writer, level, format string) *Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	zl := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	return &Logger{zl: zl, enabled: true}
}

func openOutput(output string) io.Writer {
	switch output {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Failed to open log file %s: %v, using stdout", output, err)
		return os.Stdout
	}
	return file
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

/* Enabled reports whether the logger writes anything */
func (l *Logger) Enabled() bool {
	return l.enabled
}

/* With returns a child logger carrying the given fields on every entry */
func (l *Logger) With(fields map[string]interface{}) *Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{zl: l.zl.With().Fields(fields).Logger(), enabled: l.enabled}
}

/* WithContext returns a child logger carrying the request id found in ctx */
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return l.With(map[string]interface{}{"request_id": id})
	}
	return l
}

/* Debug logs a debug message */
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(message)
}

/* Info logs an info message */
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(message)
}

/* Warn logs a warning message */
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(message)
}

/* Error logs an error message */
func (l *Logger) Error(message string, err error, fields map[string]interface{}) {
	l.zl.Error().Err(err).Fields(fields).Msg(message)
}
