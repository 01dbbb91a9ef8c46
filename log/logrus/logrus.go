// Package logrus adapts a logrus entry to syncache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/syncache"
)

var _ syncache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every record with component=syncache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "syncache")}
}

func (l Logger) Debug(msg string, f syncache.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f syncache.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f syncache.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f syncache.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
