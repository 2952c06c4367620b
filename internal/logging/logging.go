package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu        sync.RWMutex
	level     = logrus.InfoLevel
	formatter logrus.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	output io.Writer = os.Stderr
)

// Configure sets the level and format used by every logger created afterwards and by
// the logrus standard logger.
func Configure(levelName, format string) error {
	lvl, err := logrus.ParseLevel(levelName)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	level = lvl
	if format == "json" {
		formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"}
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	return nil
}

// SetOutput redirects loggers created afterwards; tests use io.Discard.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	logrus.SetOutput(w)
}

// New returns a component logger with the process-wide settings.
func New() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logger.SetOutput(output)
	return logger
}
