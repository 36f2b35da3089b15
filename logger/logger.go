// Package logger provides the zerolog-backed implementation of the
// auth.Logger contract shared by both services.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls destination and verbosity.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// File enables rotated file output when set.
	File string
	// MaxSizeMB caps a log file before rotation. Defaults to 100.
	MaxSizeMB int
	// Console pretty-prints to stderr instead of JSON.
	Console bool
}

// Logger writes structured logs. Variadic args are alternating key/value
// pairs, matching how the auth package calls its Logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger from the config. An unknown level falls back to
// info rather than failing, logging is never a startup blocker.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Console || cfg.File == "" {
		var w io.Writer = os.Stderr
		if cfg.Console {
			w = zerolog.ConsoleWriter{Out: os.Stderr}
		}
		writers = append(writers, w)
	}
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: 3,
			Compress:   true,
		})
	}

	zl := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}
}

// With returns a child logger with a bound field, typically the
// component name.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(l.zl.Debug(), msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(l.zl.Info(), msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(l.zl.Warn(), msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(l.zl.Error(), msg, args) }

func (l *Logger) emit(event *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		event = event.Interface(key, args[i+1])
	}
	if len(args)%2 != 0 {
		event = event.Interface("extra", args[len(args)-1])
	}
	event.Msg(msg)
}
