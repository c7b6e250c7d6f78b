package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotify(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLog(zap.New(core))

	n.Notify(context.Background(), "trade %s: %+.2f", "won", 8.5)

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "trade won: +8.50" || entries[0].LoggerName != "notify" {
		t.Fatalf("unexpected log entries %+v", entries)
	}
}
