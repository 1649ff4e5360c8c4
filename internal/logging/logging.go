// Package logging builds the logrus logger shared by the client and stores.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"todoctl/internal/config"
)

// Formatter renders one entry per line:
//
//	2026-01-02 15:04:05 INFO  message key=value ...
type Formatter struct{}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "%s %-5s %s", entry.Time.Format("2006-01-02 15:04:05"), levelName(entry.Level), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "WARN"
	}
	s, _ := l.MarshalText()
	return string(bytes.ToUpper(s))
}

// New returns a logger configured from cfg.
// With --debug everything at debug level goes to stderr; otherwise entries at
// the configured level go to a rotating log file in the config directory.
func New(cfg *config.Config, stderr io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&Formatter{})

	if cfg.Debug {
		logger.SetOutput(stderr)
		logger.SetLevel(logrus.DebugLevel)
		return logger, nil
	}

	level, err := logrus.ParseLevel(cfg.Settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Settings.LogLevel, err)
	}
	logger.SetLevel(level)

	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	logger.SetOutput(&lumberjack.Logger{
		Filename:   cfg.Settings.LogFile,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	})
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
