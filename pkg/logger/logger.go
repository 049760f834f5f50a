// Package logger builds the program logger: human readable text on the
// terminal and JSON lines in a rotating file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level string
	// File is the rotating JSON log, empty to log to the terminal only
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Logger is a logrus logger whose terminal output can be redirected while
// progress bars are drawn
type Logger struct {
	*logrus.Logger

	mu       sync.Mutex
	terminal io.Writer
	file     *lumberjack.Logger
}

// New creates a logger writing text to terminal
func New(config Config, terminal io.Writer) (*Logger, error) {
	level := logrus.InfoLevel
	if config.Level != "" {
		parsed, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(terminal)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logger := &Logger{Logger: l, terminal: terminal}
	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		logger.file = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    orDefault(config.MaxSize, 50),
			MaxBackups: config.MaxBackups,
			MaxAge:     orDefault(config.MaxAge, 10),
			Compress:   config.Compress,
		}
		l.AddHook(&fileHook{writer: logger.file, formatter: &logrus.JSONFormatter{}})
	}
	return logger, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Redirect sends terminal output to w, typically a progress display that
// prints lines above its bars. The log file keeps receiving entries.
func (l *Logger) Redirect(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SetOutput(w)
}

// Resume restores terminal output
func (l *Logger) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SetOutput(l.terminal)
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// fileHook writes every entry to the rotating file in its own format
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
