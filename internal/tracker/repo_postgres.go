package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mehtameet005/utm-tracker/internal/attribution"
	"github.com/mehtameet005/utm-tracker/pkg/utils"
)

// PostgresRepo persists the event log in Postgres.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS tracking_events (
//	    seq         BIGSERIAL PRIMARY KEY,
//	    id          TEXT NOT NULL,
//	    type        TEXT NOT NULL,
//	    identity    TEXT NOT NULL,
//	    attribution JSONB,
//	    page_url    TEXT NOT NULL DEFAULT '',
//	    details     JSONB,
//	    recorded_at TIMESTAMPTZ NOT NULL
//	);
//
// seq preserves append order even when two events share a timestamp, which
// the aggregator's tie-break relies on. INSERT-only; no update or delete
// statements exist in this repo.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	var attrJSON interface{}
	if e.Attribution != nil {
		b, err := json.Marshal(e.Attribution)
		if err != nil {
			return err
		}
		attrJSON = string(b)
	}
	var detailsJSON interface{}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		detailsJSON = string(b)
	}

	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tracking_events (id, type, identity, attribution, page_url, details, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, string(e.Type), e.Identity, attrJSON, e.PageURL, detailsJSON, e.Timestamp.UTC(),
		)
		return err
	})
}

func (r *PostgresRepo) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, identity, attribution, page_url, details, recorded_at
		 FROM tracking_events ORDER BY seq`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var typ string
		var attrRaw, detailsRaw sql.NullString
		var recordedAt time.Time
		if err := rows.Scan(&e.ID, &typ, &e.Identity, &attrRaw, &e.PageURL, &detailsRaw, &recordedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		e.Timestamp = recordedAt.UTC()
		if attrRaw.Valid {
			// Corrupt snapshots degrade to unattributed, same as reads
			// from the KV stores.
			if rec, ok := attribution.Decode(attrRaw.String); ok {
				e.Attribution = &rec
			}
		}
		if detailsRaw.Valid {
			var d map[string]string
			if err := json.Unmarshal([]byte(detailsRaw.String), &d); err == nil {
				e.Details = d
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
