// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// HandlerType selects the output format of a [Logger].
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level represents log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var bgCtx = context.Background()

// redactedKeys are replaced by a placeholder in every record. Route tables
// loaded from Consul may carry tokens in their metadata.
var redactedKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"secret":        {},
	"api_key":       {},
	"authorization": {},
	"consul_token":  {},
}

// Logger wraps a [slog.Logger] configured through functional options.
//
// All methods are safe for concurrent use. The slog.Logger is swapped
// atomically when the level changes, so readers never take the mutex.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       Level

	serviceName    string
	serviceVersion string
	environment    string

	addSource   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	customLogger *slog.Logger
	useCustom    bool

	registerGlobal bool

	slogger  atomic.Pointer[slog.Logger]
	mu       sync.Mutex
	shutdown atomic.Bool
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

func defaultLogger() *Logger {
	return &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
		level:       LevelInfo,
	}
}

// New creates a new Logger with the given options.
//
// New does not replace the global slog default unless [WithGlobalLogger]
// is passed.
func New(opts ...Option) (*Logger, error) {
	l := defaultLogger()
	for _, opt := range opts {
		opt(l)
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initializeHandler(); err != nil {
		return nil, err
	}

	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}

	return l
}

// Validate checks if the configuration is valid.
func (l *Logger) Validate() error {
	if l.output == nil {
		return errors.New("output writer cannot be nil")
	}
	if l.useCustom && l.customLogger == nil {
		return ErrNilLogger
	}
	switch l.handlerType {
	case JSONHandler, TextHandler, ConsoleHandler:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHandler, l.handlerType)
	}

	return nil
}

// initializeHandler builds and stores the slog.Logger. Callers hold mu.
func (l *Logger) initializeHandler() error {
	if l.useCustom {
		l.slogger.Store(l.customLogger)
		if l.registerGlobal {
			slog.SetDefault(l.customLogger)
		}
		return nil
	}

	opts := &slog.HandlerOptions{
		Level:       l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.buildReplaceAttr(),
	}

	var handler slog.Handler
	switch l.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(l.output, opts)
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}

	logger := slog.New(handler)

	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	l.slogger.Store(logger)
	if l.registerGlobal {
		slog.SetDefault(logger)
	}

	return nil
}

func (l *Logger) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if _, ok := redactedKeys[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, "***REDACTED***")
		}
		if l.replaceAttr != nil {
			return l.replaceAttr(groups, a)
		}
		return a
	}
}

// Logger returns the underlying [slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	return l.slogger.Load()
}

// With returns a [slog.Logger] with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l.shutdown.Load() {
		return
	}
	logger := l.Logger()
	if !logger.Enabled(bgCtx, level) {
		return
	}
	logger.Log(bgCtx, level, msg, args...)
}

// Debug logs a debug message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs an informational message with structured attributes.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs a warning message with structured attributes.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs an error message with structured attributes.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// Shutdown stops the logger. Later calls to Debug/Info/Warn/Error are dropped.
// Records written directly to [Logger.Logger] are not affected.
func (l *Logger) Shutdown(_ context.Context) error {
	l.shutdown.Store(true)
	if logger := l.Logger(); logger != nil {
		if flusher, ok := logger.Handler().(interface{ Flush() error }); ok {
			return flusher.Flush()
		}
	}

	return nil
}

// SetLevel changes the minimum log level at runtime. A route table reload
// uses it to apply the logging section of the new table.
//
// Returns [ErrCannotChangeLevel] for loggers built with [WithCustomLogger].
func (l *Logger) SetLevel(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.useCustom {
		return ErrCannotChangeLevel
	}

	old := l.level
	l.level = level
	if err := l.initializeHandler(); err != nil {
		l.level = old
		return err
	}

	return nil
}

// Level returns the current minimum log level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.level
}

// ServiceName returns the service name.
func (l *Logger) ServiceName() string { return l.serviceName }

// ParseLevel maps "debug", "info", "warn" and "error" to a [Level].
// The empty string is LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}

	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// ParseHandlerType maps a format name to a [HandlerType]. The empty string
// is JSONHandler.
func ParseHandlerType(s string) (HandlerType, error) {
	switch t := HandlerType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return JSONHandler, nil
	case JSONHandler, TextHandler, ConsoleHandler:
		return t, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidHandler, s)
}
