// Package logging holds the shared application logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Unit tests hit the logger before main runs.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	if os.Getenv("APP_ENV") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	Log = logger.WithFields(logrus.Fields{
		"service": "instrevi",
	})
}
