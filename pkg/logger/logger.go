// Package logger provides the process-wide structured logger used by every
// cortexd component. It wraps logrus with file rotation via lumberjack so a
// long-running indexer doesn't grow an unbounded log file.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the shared instance. Components should prefer WithField/WithFields
	// over writing through it directly so log lines carry a component tag.
	Logger *logrus.Logger
	mu     sync.Mutex
)

// Config controls level, format and file rotation.
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // optional; console-only if empty
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Init configures the global logger. Safe to call more than once (e.g. after
// config reload); the previous instance is discarded.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	l.SetFormatter(formatter)

	writers := []io.Writer{os.Stdout}
	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	out := io.MultiWriter(writers...)
	l.SetOutput(out)

	// Mirror onto the package-level logrus instance so WithField() calls made
	// via bare logrus elsewhere in the tree (e.g. adapted teacher packages)
	// still land in the same sink.
	logrus.SetOutput(out)
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)

	Logger = l
	return nil
}

// InitDefault wires a console-only info logger, used by tests and any entry
// point that hasn't loaded config yet.
func InitDefault() {
	_ = Init(Config{Level: "info"})
}

func instance() *logrus.Logger {
	if Logger == nil {
		InitDefault()
	}
	return Logger
}

func WithField(key string, value interface{}) *logrus.Entry {
	return instance().WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return instance().WithFields(fields)
}

func Debugf(format string, args ...interface{}) { instance().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { instance().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { instance().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { instance().Errorf(format, args...) }
