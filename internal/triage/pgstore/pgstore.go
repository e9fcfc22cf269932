// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/blackbox/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/blackbox/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists analysis reports in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store. The
// caller owns the pool's lifecycle.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const analysisColumns = `id, fingerprint, flight, status, category, confidence,
	category_scores, evidence_tags, specialist_findings, anomalies, level_detail,
	error, created_at, completed_at, duration_s, oracle_calls`

// Get retrieves an analysis report by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Report, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`
	r, err := scanReport(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetByFingerprint retrieves the most recent report for an input fingerprint.
func (s *Store) GetByFingerprint(ctx context.Context, fingerprint string) (*triage.Report, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetByFingerprint", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`
	r, err := scanReport(s.pool.QueryRow(ctx, query, fingerprint))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates an analysis report (upsert on id).
func (s *Store) Put(ctx context.Context, r *triage.Report) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	scoresJSON, err := json.Marshal(r.CategoryScores)
	if err != nil {
		return fmt.Errorf("marshal category_scores: %w", err)
	}
	tagsJSON, err := json.Marshal(r.EvidenceTags)
	if err != nil {
		return fmt.Errorf("marshal evidence_tags: %w", err)
	}
	findingsJSON, err := json.Marshal(r.SpecialistFindings)
	if err != nil {
		return fmt.Errorf("marshal specialist_findings: %w", err)
	}
	anomaliesJSON, err := json.Marshal(r.Anomalies)
	if err != nil {
		return fmt.Errorf("marshal anomalies: %w", err)
	}
	detailJSON, err := json.Marshal(r.LevelDetail)
	if err != nil {
		return fmt.Errorf("marshal level_detail: %w", err)
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO analyses (
		id, fingerprint, flight, status, category, confidence,
		category_scores, evidence_tags, specialist_findings, anomalies, level_detail,
		error, created_at, completed_at, duration_s, oracle_calls
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (id) DO UPDATE SET
		fingerprint         = EXCLUDED.fingerprint,
		flight              = EXCLUDED.flight,
		status              = EXCLUDED.status,
		category            = EXCLUDED.category,
		confidence          = EXCLUDED.confidence,
		category_scores     = EXCLUDED.category_scores,
		evidence_tags       = EXCLUDED.evidence_tags,
		specialist_findings = EXCLUDED.specialist_findings,
		anomalies           = EXCLUDED.anomalies,
		level_detail        = EXCLUDED.level_detail,
		error               = EXCLUDED.error,
		completed_at        = EXCLUDED.completed_at,
		duration_s          = EXCLUDED.duration_s,
		oracle_calls        = EXCLUDED.oracle_calls`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Fingerprint, r.Flight, string(r.Status), r.Category, r.Confidence,
		scoresJSON, tagsJSON, findingsJSON, anomaliesJSON, detailJSON,
		r.Error, r.CreatedAt, completedAt, r.Duration, r.OracleCalls,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// scanReport scans a single row into a triage.Report. Returns (nil, nil)
// when no row is found.
func scanReport(row pgx.Row) (*triage.Report, error) {
	var (
		r             triage.Report
		status        string
		scoresJSON    []byte
		tagsJSON      []byte
		findingsJSON  []byte
		anomaliesJSON []byte
		detailJSON    []byte
		completedAt   *time.Time
	)

	err := row.Scan(
		&r.ID, &r.Fingerprint, &r.Flight, &status, &r.Category, &r.Confidence,
		&scoresJSON, &tagsJSON, &findingsJSON, &anomaliesJSON, &detailJSON,
		&r.Error, &r.CreatedAt, &completedAt, &r.Duration, &r.OracleCalls,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = triage.Status(status)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	for _, col := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"category_scores", scoresJSON, &r.CategoryScores},
		{"evidence_tags", tagsJSON, &r.EvidenceTags},
		{"specialist_findings", findingsJSON, &r.SpecialistFindings},
		{"anomalies", anomaliesJSON, &r.Anomalies},
		{"level_detail", detailJSON, &r.LevelDetail},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", col.name, err)
		}
	}

	return &r, nil
}
