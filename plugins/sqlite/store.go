// Package sqlite persists run checkpoints in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"draftloop/runtime"
)

// Config holds the checkpoint store configuration.
type Config struct {
	// Path to the database file. ":memory:" keeps everything in-process.
	Path string `yaml:"path" default:"draftloop.db" validate:"required"`
}

const schema = `
CREATE TABLE IF NOT EXISTS workflow_runs (
	workflow_id   TEXT PRIMARY KEY,
	definition_id TEXT NOT NULL,
	state         TEXT NOT NULL,
	input         TEXT,
	outputs       TEXT,
	error         TEXT,
	started_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS step_executions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow_id  TEXT NOT NULL,
	step_id      TEXT NOT NULL,
	iteration    INTEGER NOT NULL,
	attempts     INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	output       TEXT,
	error        TEXT,
	feedback     TEXT,
	started_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_step_executions_workflow
	ON step_executions (workflow_id, step_id, iteration);
`

// Store implements runtime.CheckpointStore on SQLite. One row per run,
// one row per step execution (revision iterations included).
type Store struct {
	db *sql.DB
}

func NewStore(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// The driver serializes access; a single connection avoids table locks
	// from concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

var _ runtime.CheckpointStore = (*Store)(nil)

func (s *Store) Save(ctx context.Context, snap runtime.Snapshot) error {
	input, err := json.Marshal(snap.Input)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal input: %w", err)
	}
	outputs, err := json.Marshal(snap.Outputs)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (workflow_id, definition_id, state, input, outputs, error, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (workflow_id) DO UPDATE SET
			state = excluded.state,
			outputs = excluded.outputs,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		string(snap.WorkflowID), snap.DefinitionID, string(snap.State),
		string(input), string(outputs), snap.Error,
		snap.StartedAt.UTC(), snap.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("sqlite: failed to save snapshot: %w", err)
	}
	return nil
}

func (s *Store) SaveStep(ctx context.Context, id runtime.WorkflowID, rec runtime.StepRecord) error {
	output, err := json.Marshal(rec.Output)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal step output: %w", err)
	}

	var completedAt any
	if !rec.CompletedAt.IsZero() {
		completedAt = rec.CompletedAt.UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO step_executions (workflow_id, step_id, iteration, attempts, success, output, error, feedback, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(id), string(rec.StepID), rec.Iteration, rec.Attempts, rec.Success,
		string(output), rec.Error, rec.Feedback, rec.StartedAt.UTC(), completedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save step record: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id runtime.WorkflowID) (runtime.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workflow_id, definition_id, state, input, outputs, error, started_at, updated_at
		FROM workflow_runs WHERE workflow_id = ?`, string(id))

	var (
		snap            runtime.Snapshot
		workflowID      string
		state           string
		input, outputs  string
		started, update time.Time
	)
	err := row.Scan(&workflowID, &snap.DefinitionID, &state, &input, &outputs, &snap.Error, &started, &update)
	if err == sql.ErrNoRows {
		return runtime.Snapshot{}, runtime.ErrSnapshotNotFound
	}
	if err != nil {
		return runtime.Snapshot{}, fmt.Errorf("sqlite: failed to load snapshot: %w", err)
	}

	snap.WorkflowID = runtime.WorkflowID(workflowID)
	snap.State = runtime.WorkflowState(state)
	snap.StartedAt = started
	snap.UpdatedAt = update

	if input != "" {
		if err := json.Unmarshal([]byte(input), &snap.Input); err != nil {
			return runtime.Snapshot{}, fmt.Errorf("sqlite: failed to unmarshal input: %w", err)
		}
	}
	if outputs != "" {
		if err := json.Unmarshal([]byte(outputs), &snap.Outputs); err != nil {
			return runtime.Snapshot{}, fmt.Errorf("sqlite: failed to unmarshal outputs: %w", err)
		}
	}

	return snap, nil
}

// StepRecords returns the persisted step executions for a run, ordered by
// insertion. Used by diagnostics and tests.
func (s *Store) StepRecords(ctx context.Context, id runtime.WorkflowID) ([]runtime.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, iteration, attempts, success, output, error, feedback, started_at, completed_at
		FROM step_executions WHERE workflow_id = ? ORDER BY id`, string(id))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query step records: %w", err)
	}
	defer rows.Close()

	var records []runtime.StepRecord
	for rows.Next() {
		var (
			rec         runtime.StepRecord
			stepID      string
			output      string
			completedAt sql.NullTime
		)
		if err := rows.Scan(&stepID, &rec.Iteration, &rec.Attempts, &rec.Success, &output, &rec.Error, &rec.Feedback, &rec.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan step record: %w", err)
		}
		rec.StepID = runtime.StepID(stepID)
		if completedAt.Valid {
			rec.CompletedAt = completedAt.Time
		}
		if output != "" {
			if err := json.Unmarshal([]byte(output), &rec.Output); err != nil {
				return nil, fmt.Errorf("sqlite: failed to unmarshal step output: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
