// Package log wraps logrus with the formatter and file rotation used across peacecam.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers don't need to import logrus.
type Fields = logrus.Fields

// Config controls level and output of the process logger.
type Config struct {
	Level string
	// File enables a rotated log file in addition to stderr.
	File string
}

var (
	mu     sync.RWMutex
	logger = newLogger(Config{Level: "info"})
)

// New builds a logger from cfg and installs it as the package default.
func New(cfg Config) *logrus.Logger {
	l := newLogger(cfg)

	mu.Lock()
	logger = l
	mu.Unlock()

	return l
}

// Logger returns the package default logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func newLogger(cfg Config) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&formatter.Formatter{
		NoColors:        false,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		FieldsOrder:     []string{"caller"},
	})

	writers := []io.Writer{os.Stderr}
	if cfg.File != "" && os.Getenv("APP_ENV") != "test" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	l.SetOutput(io.MultiWriter(writers...))

	return l
}

// helperDepth is the number of frames from caller() up to the code that
// called one of the helpers below: caller, entry, helper.
const helperDepth = 3

// logrus' own caller reporting would stop at this file, so the call site is
// resolved here and attached as a field.
func caller(skip int) string {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	name := "?"
	if fn := runtime.FuncForPC(pc); fn != nil {
		parts := strings.Split(fn.Name(), ".")
		name = parts[len(parts)-1]
	}
	return fmt.Sprintf("%s:%d %s()", path.Base(file), line, name)
}

func entry(fields Fields) *logrus.Entry {
	f := make(Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	if c := caller(helperDepth); c != "" {
		f["caller"] = c
	}
	return Logger().WithFields(f)
}

func Debug(fields Fields, msg string) { entry(fields).Debug(msg) }

func Info(fields Fields, msg string) { entry(fields).Info(msg) }

func Warn(fields Fields, msg string) { entry(fields).Warn(msg) }

func Error(fields Fields, msg string) { entry(fields).Error(msg) }

func Fatal(fields Fields, msg string) { entry(fields).Fatal(msg) }
