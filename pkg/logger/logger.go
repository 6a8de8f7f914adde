package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log = logrus.StandardLogger()

// InitLogger configures the shared logger. Repositories that log through
// logrus directly go through the same standard logger.
func InitLogger(level string) {
	Log = logrus.StandardLogger()

	// Output to stdout instead of the default stderr
	Log.SetOutput(os.Stdout)

	// Set JSON formatter for structured logging
	Log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
