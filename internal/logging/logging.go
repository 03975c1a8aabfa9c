// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at level in format ("text" or "json").
func New(level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}

// Component returns an entry tagged with the component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
