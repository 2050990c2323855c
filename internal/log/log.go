// Package log wraps logrus with the defaults used across worldmap.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the package logger
type Options struct {
	Level      string
	JSON       bool
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Fields is an alias so callers don't import logrus directly
type Fields = logrus.Fields

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Init applies opts to the package logger. When a file is configured, entries
// go to both stderr and a size-rotated log file.
func Init(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = l
	}
	std.SetLevel(level)

	if opts.JSON {
		std.SetFormatter(&logrus.JSONFormatter{})
	} else {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}
	std.SetOutput(out)
	return nil
}

// SetOutput redirects the package logger, mostly for tests
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Logger returns the underlying logrus logger
func Logger() *logrus.Logger {
	return std
}

func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return std.WithField(key, value)
}

func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}
