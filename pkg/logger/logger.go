package logger

import (
	"log"
	"log/slog"
)

// New returns a printf-style logger for libraries that want a *log.Logger.
// Lines are forwarded to base at info level, tagged with component.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelInfo)
}
