// Package logging builds the process-wide logrus logger from configuration.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a configured logger. Production environments log JSON for log
// shippers; development keeps the human-readable text format.
func New(level, environment string) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(ParseLevel(level))
	if environment == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// ParseLevel maps a config level string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
