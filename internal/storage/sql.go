package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQL stores keys in the kv_store table created by db.Migrate. The queries
// run unchanged on SQLite and Postgres.
type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail("get", key, unavailable(err))
	}
	return v, true, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, value)
	if err != nil {
		return fail("set", key, unavailable(err))
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fail("remove", key, unavailable(err))
	}
	return nil
}

func (s *SQL) Keys(ctx context.Context, prefixes ...string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_store`)
	if err != nil {
		return nil, fail("keys", "", unavailable(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fail("keys", "", unavailable(err))
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fail("keys", "", unavailable(err))
	}
	return filterKeys(keys, prefixes), nil
}

func (s *SQL) Close() error { return s.db.Close() }
