package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalsfoundry/ntn-pool-analyzer/model"
)

// ErrRunNotFound is returned when a run ID has no archived row.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the listing row for one archived run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	PoolSize     int       `json:"pool_size"`
	CoverageRate float64   `json:"coverage_rate"`
	Shortfall    bool      `json:"shortfall"`
}

// Repository archives run results and serves them back to the report API.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertRun archives a finished run with its report, resolution log, and
// events in one transaction.
func (r *Repository) InsertRun(ctx context.Context, result *model.RunResult) error {
	report, err := json.Marshal(result.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	resolutions, err := json.Marshal(result.Resolutions)
	if err != nil {
		return fmt.Errorf("marshal resolutions: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	poolSize := 0
	coverageRate := 0.0
	shortfall := false
	if result.Plan != nil {
		poolSize = len(result.Plan.SelectedIDs)
		shortfall = result.Plan.TargetShortfall
	}
	if result.Report != nil {
		coverageRate = result.Report.CoverageRate
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO analysis_runs
            (run_id, started_at, pool_size, coverage_rate, shortfall, report, resolutions, warnings)
        VALUES
            ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb)
        ON CONFLICT (run_id) DO NOTHING
    `, result.RunID, result.StartedAt, poolSize, coverageRate, shortfall,
		string(report), string(resolutions), string(warnings))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ev := range result.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		_, err = tx.Exec(ctx, `
            INSERT INTO analysis_events
                (run_id, kind, serving_id, neighbor_id, event_ts, trigger_margin, payload)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7::jsonb)
        `, result.RunID, string(ev.Kind), ev.ServingID, ev.NeighborID,
			ev.Timestamp, ev.TriggerMargin, string(payload))
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
        SELECT run_id, started_at, pool_size, coverage_rate, shortfall
        FROM analysis_runs
        ORDER BY started_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.StartedAt, &s.PoolSize, &s.CoverageRate, &s.Shortfall); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetReport returns the archived coverage report for one run.
func (r *Repository) GetReport(ctx context.Context, runID string) (*model.CoverageReport, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
        SELECT report FROM analysis_runs WHERE run_id = $1
    `, runID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	var report model.CoverageReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// ListEvents returns the archived event log for one run in time order,
// optionally filtered by kind.
func (r *Repository) ListEvents(ctx context.Context, runID, kind string, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx, `
        SELECT payload
        FROM analysis_events
        WHERE run_id = $1
          AND ($2 = '' OR kind = $2)
        ORDER BY event_ts ASC
        LIMIT $3
    `, runID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev model.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
