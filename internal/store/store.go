package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Logical keys of the persisted state.
const (
	KeyTrades     = "trades"
	KeyOpenTrades = "open_trades"
	KeySettings   = "settings"
	KeyStats      = "stats"
	KeySessions   = "sessions"
)

var ErrNotFound = errors.New("store: key not found")

// Backend keeps raw blobs by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store is a key-value store of JSON blobs on top of a Backend.
type Store struct {
	backend Backend
}

func New(b Backend) *Store {
	return &Store{backend: b}
}

// Load decodes the blob under key into v. ErrNotFound when the key was never saved.
func (s *Store) Load(ctx context.Context, key string, v any) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("store.Load %s: %w", key, err)
		}
	}()

	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return sonic.Unmarshal(data, v)
}

func (s *Store) Save(ctx context.Context, key string, v any) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("store.Save %s: %w", key, err)
		}
	}()

	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, key, data)
}

func (s *Store) Close() error {
	return s.backend.Close()
}
