// Package postgis persists canonical disaster events in a PostGIS table
// keyed by source id, one row per upstream event.
package postgis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/couchcryptid/disaster-alert-sync/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb/geojson"
)

// Config carries the connection settings for the spatial store.
type Config struct {
	DatabaseURL string
	Table       string
	MaxConns    int
}

// Store is the PostGIS-backed sync target.
type Store struct {
	pool    *pgxpool.Pool
	table   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New opens a connection pool. It does not touch the schema or the network;
// call Ping and InitSchema before the first cycle.
func New(ctx context.Context, cfg Config, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return &Store{
		pool:    pool,
		table:   cfg.Table,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &domain.StorageError{Op: "ping", Err: err}
	}
	return nil
}

// InitSchema creates the events table and its indexes when absent. The
// PostGIS extension must be installable in the target database.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			source_id      TEXT PRIMARY KEY,
			event_type     TEXT NOT NULL,
			severity       TEXT NOT NULL DEFAULT '',
			geometry       geometry(Geometry, 4326) NOT NULL,
			occurred_at    TIMESTAMPTZ,
			raw_attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
			fingerprint    TEXT NOT NULL,
			fetched_at     TIMESTAMPTZ NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_geometry_idx ON %s USING GIST (geometry)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_event_type_idx ON %s (event_type)`, s.table, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &domain.StorageError{Op: "init schema", Err: err}
		}
	}
	s.logger.Info("schema ready", "table", s.table)
	return nil
}

// LoadFingerprints reads the full source id to fingerprint index. It runs at
// the start of every cycle and is never cached, so rows written by other
// processes are observed.
func (s *Store) LoadFingerprints(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT source_id, fingerprint FROM %s`, s.table))
	if err != nil {
		return nil, &domain.StorageError{Op: "load fingerprints", Err: err}
	}
	defer rows.Close()

	index := make(map[string]string)
	for rows.Next() {
		var id, fp string
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, &domain.StorageError{Op: "scan fingerprint", Err: err}
		}
		index[id] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "load fingerprints", Err: err}
	}
	return index, nil
}

// Apply upserts the diffed events in one transaction. Geometry validation
// and encoding run before the transaction, so a single bad record lands in
// SyncResult.Failed while the rest still commits. Any exec or commit error
// rolls the whole batch back and fails the cycle with zero persisted
// changes. Cancellation is honored only before the transaction begins; once
// writes start they run detached from the caller's context, so shutdown
// never severs a mid-flight commit.
func (s *Store) Apply(ctx context.Context, toInsert, toUpdate []domain.DisasterEvent) (domain.SyncResult, error) {
	var result domain.SyncResult

	prep := func(events []domain.DisasterEvent) []upsertRow {
		rows := make([]upsertRow, 0, len(events))
		for _, e := range events {
			row, err := encodeRow(e)
			if err != nil {
				verr := &domain.ValidationError{SourceID: e.SourceID, Reason: err.Error()}
				s.logger.Warn("event excluded from write", "source_id", e.SourceID, "reason", verr.Reason)
				s.metrics.RecordsFailed.Inc()
				result.Failed = append(result.Failed, domain.FailedRecord{SourceID: e.SourceID, Reason: verr.Reason})
				continue
			}
			rows = append(rows, row)
		}
		return rows
	}

	insertRows := prep(toInsert)
	updateRows := prep(toUpdate)

	if len(insertRows)+len(updateRows) == 0 {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return domain.SyncResult{}, &domain.StorageError{Op: "begin", Err: err}
	}
	txCtx := context.WithoutCancel(ctx)

	start := time.Now()
	tx, err := s.pool.Begin(txCtx)
	if err != nil {
		return domain.SyncResult{}, &domain.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	batch := &pgx.Batch{}
	for _, r := range append(insertRows, updateRows...) {
		batch.Queue(s.upsertSQL(),
			r.event.SourceID,
			r.event.EventType,
			r.event.Severity,
			string(r.geomJSON),
			nullableTime(r.event.OccurredAt),
			r.attrJSON,
			r.event.Fingerprint(),
			r.event.FetchedAt,
		)
	}

	br := tx.SendBatch(txCtx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return domain.SyncResult{}, &domain.StorageError{Op: "upsert", Err: err}
		}
	}
	if err := br.Close(); err != nil {
		return domain.SyncResult{}, &domain.StorageError{Op: "close batch", Err: err}
	}
	if err := tx.Commit(txCtx); err != nil {
		return domain.SyncResult{}, &domain.StorageError{Op: "commit", Err: err}
	}

	result.Inserted = len(insertRows)
	result.Updated = len(updateRows)
	s.metrics.WriteDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("sync batch committed",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed", len(result.Failed),
		"duration", time.Since(start),
	)
	return result, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s
		(source_id, event_type, severity, geometry, occurred_at, raw_attributes, fingerprint, fetched_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), $5, $6, $7, $8)
		ON CONFLICT (source_id) DO UPDATE SET
			event_type     = EXCLUDED.event_type,
			severity       = EXCLUDED.severity,
			geometry       = EXCLUDED.geometry,
			occurred_at    = EXCLUDED.occurred_at,
			raw_attributes = EXCLUDED.raw_attributes,
			fingerprint    = EXCLUDED.fingerprint,
			fetched_at     = EXCLUDED.fetched_at`, s.table)
}

type upsertRow struct {
	event    domain.DisasterEvent
	geomJSON []byte
	attrJSON []byte
}

// encodeRow validates the geometry and pre-encodes the JSON columns outside
// the transaction.
func encodeRow(e domain.DisasterEvent) (upsertRow, error) {
	if err := domain.ValidateGeometry(e.Geometry); err != nil {
		return upsertRow{}, err
	}
	geomJSON, err := json.Marshal(geojson.NewGeometry(e.Geometry))
	if err != nil {
		return upsertRow{}, fmt.Errorf("encode geometry: %w", err)
	}
	attrs := e.RawAttributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrJSON, err := json.Marshal(attrs)
	if err != nil {
		return upsertRow{}, fmt.Errorf("encode attributes: %w", err)
	}
	return upsertRow{event: e, geomJSON: geomJSON, attrJSON: attrJSON}, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
