// Package logging configures the structured JSON logger shared by all
// binaries.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logger at level with the environment field bound to
// every entry. Unknown levels fall back to info.
func New(level, env string) *logrus.Entry {
	return NewWithWriter(os.Stdout, level, env)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, level, env string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "event",
		},
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log.WithField("environment", env)
}
