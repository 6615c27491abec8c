package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// SQLiteStore persists experiments in a single sqlite table. Variants and
// metrics are JSON columns; the row is written whole on every Put.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    confidence_level INTEGER NOT NULL,
    minimum_detectable_effect REAL NOT NULL DEFAULT 0,
    auto_stop INTEGER NOT NULL DEFAULT 0,
    start_date INTEGER,
    end_date INTEGER,
    variants TEXT NOT NULL,
    metrics TEXT,
    winner_variant_id TEXT,
    statistical_significance INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);
CREATE INDEX IF NOT EXISTS idx_experiments_created ON experiments(created_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, exp *experiment.Experiment) error {
	status, err := encodeStatus(exp.Status)
	if err != nil {
		return err
	}

	variantsJSON, err := json.Marshal(toVariantRecords(exp.Variants))
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}

	var metricsJSON []byte
	if len(exp.Metrics) > 0 {
		metricsJSON, err = json.Marshal(toMetricRecords(exp.Metrics))
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (id, name, description, type, status, confidence_level,
		    minimum_detectable_effect, auto_stop, start_date, end_date, variants, metrics,
		    winner_variant_id, statistical_significance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    name = excluded.name,
		    description = excluded.description,
		    type = excluded.type,
		    status = excluded.status,
		    confidence_level = excluded.confidence_level,
		    minimum_detectable_effect = excluded.minimum_detectable_effect,
		    auto_stop = excluded.auto_stop,
		    start_date = excluded.start_date,
		    end_date = excluded.end_date,
		    variants = excluded.variants,
		    metrics = excluded.metrics,
		    winner_variant_id = excluded.winner_variant_id,
		    statistical_significance = excluded.statistical_significance,
		    updated_at = excluded.updated_at`,
		exp.ID, exp.Name, exp.Description, string(exp.Type), status, exp.ConfidenceLevel,
		exp.MinimumDetectableEffect, exp.AutoStop, nullableTime(exp.StartDate), nullableTime(exp.EndDate),
		string(variantsJSON), nullableString(metricsJSON),
		exp.WinnerVariantID, exp.StatisticalSignificance, exp.CreatedAt.Unix(), exp.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert experiment: %w", err)
	}

	return nil
}

const selectColumns = `id, name, description, type, status, confidence_level,
    minimum_detectable_effect, auto_stop, start_date, end_date, variants, metrics,
    winner_variant_id, statistical_significance, created_at, updated_at`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*experiment.Experiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM experiments WHERE id = ?`, id)

	exp, err := scanExperiment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("experiment %q: %w", id, experiment.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	return exp, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*experiment.Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM experiments ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var exps []*experiment.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		exps = append(exps, exp)
	}

	return exps, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("experiment %q: %w", id, experiment.ErrNotFound)
	}

	return nil
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row scanner) (*experiment.Experiment, error) {
	var (
		exp          experiment.Experiment
		expType      string
		status       string
		variantsJSON string
		metricsJSON  sql.NullString
		startDate    sql.NullInt64
		endDate      sql.NullInt64
		winner       sql.NullString
		description  sql.NullString
		createdAt    int64
		updatedAt    int64
	)

	err := row.Scan(&exp.ID, &exp.Name, &description, &expType, &status, &exp.ConfidenceLevel,
		&exp.MinimumDetectableEffect, &exp.AutoStop, &startDate, &endDate, &variantsJSON, &metricsJSON,
		&winner, &exp.StatisticalSignificance, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	exp.Description = description.String
	exp.Type = experiment.Type(expType)
	exp.Status, err = decodeStatus(status)
	if err != nil {
		return nil, err
	}

	var variantRecs []variantRecord
	if err := json.Unmarshal([]byte(variantsJSON), &variantRecs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}
	exp.Variants = fromVariantRecords(variantRecs)

	if metricsJSON.Valid && metricsJSON.String != "" {
		var metricRecs []metricRecord
		if err := json.Unmarshal([]byte(metricsJSON.String), &metricRecs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
		exp.Metrics = fromMetricRecords(metricRecs)
	}

	if startDate.Valid {
		t := time.Unix(startDate.Int64, 0)
		exp.StartDate = &t
	}
	if endDate.Valid {
		t := time.Unix(endDate.Int64, 0)
		exp.EndDate = &t
	}
	exp.WinnerVariantID = winner.String
	exp.CreatedAt = time.Unix(createdAt, 0)
	exp.UpdatedAt = time.Unix(updatedAt, 0)

	return &exp, nil
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
