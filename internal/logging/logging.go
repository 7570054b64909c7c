// Package logging configures logrus for the planesync commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// The JSON log file is rotated once it reaches maxLogMegabytes, keeping maxLogBackups old files
const (
	maxLogMegabytes = 10
	maxLogBackups   = 5
)

// Setup configures the standard logrus logger: human-readable text on stderr
// and, when logFile is set, one JSON object per entry appended to that file.
// The file is rotated by size. The returned function closes the log file.
func Setup(level, logFile string) (func() error, error) {
	return setup(logrus.StandardLogger(), os.Stderr, level, logFile)
}

func setup(logger *logrus.Logger, console io.Writer, level, logFile string) (func() error, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger.SetLevel(lvl)
	logger.SetOutput(console)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	logger.ReplaceHooks(make(logrus.LevelHooks))

	if logFile == "" {
		return func() error { return nil }, nil
	}

	if dir := filepath.Dir(logFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	// lumberjack opens the file lazily, check it is writable now
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	_ = f.Close()

	rotated := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    maxLogMegabytes,
		MaxBackups: maxLogBackups,
	}
	logger.AddHook(&fileHook{
		writer:    rotated,
		formatter: &logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"},
	})
	logger.WithField("level", lvl.String()).Debug("Logging configured")

	return rotated.Close, nil
}

// fileHook writes every entry to a writer using its own formatter
type fileHook struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}
