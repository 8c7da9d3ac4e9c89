package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Postgres adapts a database/sql handle (pgx stdlib driver) to the Store
// port. This is the backup store in production wiring: it lives in a
// different failure domain than Redis, so an attribution record survives a
// cache flush.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS backup_kv (
//	    key        TEXT PRIMARY KEY,
//	    value      TEXT NOT NULL,
//	    expires_at TIMESTAMPTZ
//	);
//
// Expiry is lazy: expired rows read as absent and are overwritten in place
// on the next Set. A periodic DELETE of expired rows is an ops concern, not
// a correctness one.

type Postgres struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, clock: time.Now}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM backup_kv WHERE key = $1`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expiresAt.Valid && !p.clock().Before(expiresAt.Time) {
		return "", false, nil
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = p.clock().UTC().Add(ttl)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO backup_kv (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt,
	)
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM backup_kv WHERE key = $1`, key)
	return err
}
