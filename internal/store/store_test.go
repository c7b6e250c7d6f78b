package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"binary_bot/internal/models"
)

type failingBackend struct{ *Memory }

func (failingBackend) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func TestSaveLoadTrades(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()

	win := models.ResultWin
	profit := 8.5
	opened := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	in := []models.Trade{{
		ID: "1", Instrument: "R_50", Direction: models.DirectionUp, Stake: 10,
		OpenedAt: opened, ExpiresAt: opened.Add(5 * time.Minute), EntryPrice: 100,
		Confidence: 0.75, PayoutRate: 0.85, Result: &win, Profit: &profit,
	}}
	if err := s.Save(ctx, KeyTrades, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out []models.Trade
	if err := s.Load(ctx, KeyTrades, &out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || !out[0].Won() || *out[0].Profit != 8.5 || !out[0].ExpiresAt.Equal(in[0].ExpiresAt) {
		t.Fatalf("unexpected trades %+v", out)
	}
}

func TestLoadMissingKey(t *testing.T) {
	var v models.Settings
	err := New(NewMemory()).Load(context.Background(), KeySettings, &v)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveWrapsBackendError(t *testing.T) {
	s := New(failingBackend{Memory: NewMemory()})
	err := s.Save(context.Background(), KeyStats, models.AccountState{})
	if err == nil || err.Error() != "store.Save stats: disk full" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	buf := []byte(`{"a":1}`)
	_ = m.Put(context.Background(), "k", buf)
	buf[0] = 'x'
	got, ok, _ := m.Get(context.Background(), "k")
	if !ok || string(got) != `{"a":1}` {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}
}
