package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLoggerAdapter adapts slog.Logger to the cron.Logger interface.
type cronLoggerAdapter struct {
	logger *slog.Logger
}

var _ cron.Logger = cronLoggerAdapter{}

// Info is downgraded to debug; cron reports every wake-up at info.
func (a cronLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a cronLoggerAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, append(keysAndValues, "err", err)...)
}
