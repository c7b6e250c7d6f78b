package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"binary_bot/pkg/db"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS bot_state (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	upsertState = `INSERT INTO bot_state (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	selectState = `SELECT value FROM bot_state WHERE key = $1`
)

// Postgres keeps blobs in the bot_state table.
type Postgres struct {
	db *db.PgTxManager
}

func NewPostgres(m *db.PgTxManager) *Postgres {
	return &Postgres{db: m}
}

// Migrate creates the state table when missing.
func (p *Postgres) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Migrate: %w", err)
		}
	}()
	_, err = p.db.Conn().Exec(ctx, createTable)
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Get: %w", err)
		}
	}()

	err = p.db.Conn().QueryRow(ctx, selectState, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Put: %w", err)
		}
	}()

	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, upsertState, key, string(value))
		return err
	})
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
