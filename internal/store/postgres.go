package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore persists idempotency keys and the log of built request bodies.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping")
	}

	return &PostgresStore{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// NewStore wraps an existing handle.
func NewStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schemaSQL)
	return errors.Wrap(err, "apply schema")
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	_ = p.db.Close()
	if p.pool != nil {
		p.pool.Close()
	}
}

// ReserveEventID binds candidate to (tenantID, key) unless the key is already
// bound, and returns the bound event id. Retries carrying the same key
// therefore share one event id.
func (p *PostgresStore) ReserveEventID(ctx context.Context, tenantID, key, candidate string) (string, error) {
	if tenantID == "" || key == "" || candidate == "" {
		return "", errors.New("tenantID/key/candidate required")
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys(tenant_id, idempotency_key, event_id)
		VALUES ($1,$2,$3)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
	`, tenantID, key, candidate)
	if err != nil {
		return "", errors.Wrap(err, "reserve event id")
	}

	var eventID string
	err = p.db.QueryRowContext(ctx, `
		SELECT event_id FROM idempotency_keys
		WHERE tenant_id=$1 AND idempotency_key=$2
	`, tenantID, key).Scan(&eventID)
	if err != nil {
		return "", errors.Wrap(err, "load event id")
	}

	return eventID, nil
}

// RecordBuild logs a built request body and returns inserted=false when the
// (tenantID, eventID) pair was already recorded.
func (p *PostgresStore) RecordBuild(
	ctx context.Context,
	tenantID string,
	eventID string,
	eventName string,
	eventTime time.Time,
	properties map[string]any,
) (bool, error) {

	if tenantID == "" || eventID == "" || eventName == "" {
		return false, errors.New("tenantID/eventID/eventName required")
	}

	if properties == nil {
		properties = map[string]any{}
	}

	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return false, errors.Wrap(err, "encode properties")
	}

	// RETURNING 1 only when inserted; duplicates return no rows.
	var one int
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO builds(tenant_id, event_id, event_name, event_time, properties)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (tenant_id, event_id) DO NOTHING
		RETURNING 1
	`, tenantID, eventID, eventName, eventTime, propsJSON).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, errors.Wrap(err, "record build")
}

// CountBuilds returns the number of builds for (tenantID, eventName) with an
// event time in [from,to).
func (p *PostgresStore) CountBuilds(
	ctx context.Context,
	tenantID string,
	eventName string,
	from time.Time,
	to time.Time,
) (int64, error) {

	var count int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM builds
		WHERE tenant_id=$1
		  AND event_name=$2
		  AND event_time >= $3
		  AND event_time <  $4
	`, tenantID, eventName, from, to).Scan(&count)

	return count, errors.Wrap(err, "count builds")
}

// CountBuildsByName returns per event name counts of builds with an event
// time in [from,to).
func (p *PostgresStore) CountBuildsByName(
	ctx context.Context,
	tenantID string,
	from time.Time,
	to time.Time,
) (map[string]int64, error) {

	rows, err := p.db.QueryContext(ctx, `
		SELECT event_name, COUNT(*)
		FROM builds
		WHERE tenant_id=$1
		  AND event_time >= $2
		  AND event_time <  $3
		GROUP BY event_name
	`, tenantID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "count builds by name")
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, errors.Wrap(err, "scan build count")
		}
		counts[name] = count
	}
	return counts, errors.Wrap(rows.Err(), "count builds by name")
}
