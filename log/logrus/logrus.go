package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/oakmed/carecache"
)

// Logger adapts a *logrus.Entry to the carecache.Logger interface.
type Logger struct{ E *logrus.Entry }

var _ carecache.Logger = Logger{}

func (l Logger) Debug(msg string, f carecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l Logger) Info(msg string, f carecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}
func (l Logger) Warn(msg string, f carecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}
func (l Logger) Error(msg string, f carecache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
