package logger

import (
	"fmt"
	"io"
	"os"

	"steam-market-harvester/internal/config"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. When cfg.File is set the log is appended
// to that file instead of stderr; the returned closer releases it.
func New(cfg config.LogConfig) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		closer = f
	}
	return log, closer, nil
}

// Component returns an entry tagged with the component name.
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	return log.WithField("component", name)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
