package zap

import (
	"go.uber.org/zap"

	"github.com/oakmed/carecache"
)

// Logger adapts a *zap.Logger to the carecache.Logger interface.
type Logger struct{ L *zap.Logger }

var _ carecache.Logger = Logger{}

func (z Logger) Debug(msg string, f carecache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f carecache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f carecache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f carecache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f carecache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
