package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
)

const createSearchLog = `
	CREATE TABLE IF NOT EXISTS search_log (
		id           BIGSERIAL PRIMARY KEY,
		mode         TEXT        NOT NULL,
		parameter    TEXT        NOT NULL DEFAULT '',
		query_limit  INTEGER     NOT NULL,
		query_offset INTEGER     NOT NULL,
		result_count INTEGER     NOT NULL,
		error        TEXT        NOT NULL DEFAULT '',
		duration_ms  BIGINT      NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore keeps a log of every query sent to Weaviate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing database url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}
	if _, err := pool.Exec(ctx, createSearchLog); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "creating search_log table")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Record inserts one entry and returns its id.
func (s *PostgresStore) Record(ctx context.Context, e models.SearchLogEntry) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO search_log (mode, parameter, query_limit, query_offset, result_count, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, string(e.Mode), e.Parameter, e.Limit, e.Offset, e.ResultCount, e.Error, e.DurationMs).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "inserting search log entry")
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.SearchLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, mode, parameter, query_limit, query_offset, result_count, error, duration_ms, created_at
		FROM search_log
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying search log")
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SearchLogEntry, error) {
		var e models.SearchLogEntry
		var mode string
		err := row.Scan(&e.ID, &mode, &e.Parameter, &e.Limit, &e.Offset, &e.ResultCount, &e.Error, &e.DurationMs, &e.CreatedAt)
		e.Mode = models.Mode(mode)
		return e, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning search log")
	}
	return entries, nil
}

// SearchRecorder persists gateway activity.
type SearchRecorder interface {
	Record(ctx context.Context, e models.SearchLogEntry) (int64, error)
}

// loggedGateway records every fetch passed through it. Recording failures are
// logged and never reach the caller.
type loggedGateway struct {
	next     Gateway
	recorder SearchRecorder
	log      logrus.FieldLogger
}

// WithSearchLog wraps next so each fetch is written to recorder.
func WithSearchLog(next Gateway, recorder SearchRecorder, log logrus.FieldLogger) Gateway {
	return &loggedGateway{next: next, recorder: recorder, log: log}
}

func (g *loggedGateway) Fetch(ctx context.Context, q models.Query, limit, offset int) ([]models.Record, error) {
	start := time.Now()
	records, err := g.next.Fetch(ctx, q, limit, offset)
	if q == nil {
		return records, err
	}

	entry := models.SearchLogEntry{
		Mode:        q.Mode(),
		Parameter:   parameterDigest(q),
		Limit:       limit,
		Offset:      offset,
		ResultCount: len(records),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// The request may already be cancelled; the log write should still land.
	if _, rerr := g.recorder.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		g.log.WithError(rerr).Warn("failed to record search")
	}
	return records, err
}

// parameterDigest keeps text and ids readable and reduces images to a hash.
func parameterDigest(q models.Query) string {
	switch q := q.(type) {
	case models.TextQuery:
		return q.Text
	case models.SimilarQuery:
		return q.ID
	case models.ImageQuery:
		sum := sha256.Sum256([]byte(q.Image))
		return "sha256:" + hex.EncodeToString(sum[:])
	}
	return ""
}
