package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Log writes operator notifications to the process log. It stands in for
// Telegram when no bot token is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log { return &Log{log: log.Named("notify")} }

func (l *Log) Notify(_ context.Context, format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}
