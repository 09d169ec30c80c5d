// Package database implements kvstore.Store on PostgreSQL.
package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/kvstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS cog_values (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
);
`

type Config struct {
	Log     *zap.Logger
	ConnStr string
}

// PsqlStore keeps every value as one row of cog_values.
type PsqlStore struct {
	pool *sqlx.DB
	log  *zap.Logger
}

var _ kvstore.Store = (*PsqlStore)(nil)

func Open(c *Config) (*PsqlStore, error) {
	pool, err := sqlx.Connect("postgres", c.ConnStr)
	if err != nil {
		c.Log.Error("unable to connect to db", zap.Error(err))
		return nil, err
	}
	if _, err := pool.Exec(schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PsqlStore{pool: pool, log: c.Log}, nil
}

func (p *PsqlStore) GetConn() *sqlx.DB {
	return p.pool
}

func (p *PsqlStore) Close() error {
	return p.pool.Close()
}

func (p *PsqlStore) Get(key string) ([]byte, error) {
	var value []byte
	err := p.pool.Get(&value, "SELECT value FROM cog_values WHERE key=$1;", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		p.log.Error("failed to read value", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

// Update serialises writers of the same key with a transaction scoped
// advisory lock, which also covers keys that do not exist yet.
func (p *PsqlStore) Update(key string, fn func(old []byte) ([]byte, error)) (err error) {
	tx, err := p.pool.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec("SELECT pg_advisory_xact_lock(hashtext($1));", key); err != nil {
		return err
	}

	var old []byte
	err = tx.Get(&old, "SELECT value FROM cog_values WHERE key=$1;", key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	value, err := fn(old)
	if err != nil {
		return err
	}

	switch {
	case value == nil:
		_, err = tx.Exec("DELETE FROM cog_values WHERE key=$1;", key)
	default:
		_, err = tx.Exec(`INSERT INTO cog_values (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;`, key, value)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}
