package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the application logger.  Outside dev the output is JSON
// so it can be shipped as is; an unknown level falls back to info.
func NewLogger(env, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if env == "dev" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
