package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_ts TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE TABLE IF NOT EXISTS mission_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			mission_id INTEGER NOT NULL,
			start_ts TEXT NOT NULL,
			end_ts TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Backfill databases created before mission_runs.capability existed.
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE mission_runs ADD COLUMN capability TEXT NOT NULL DEFAULT ''`); err != nil {
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "duplicate column name") {
			return fmt.Errorf("ensure schema alter mission_runs.capability: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("put: empty key")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store(key, value, updated_ts) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts
	`, key, string(value), time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, strings.TrimSpace(key))
	return err
}

func (s *SQLiteStore) StartMissionRun(ctx context.Context, run MissionRun) (int64, error) {
	start := run.StartTS
	if start.IsZero() {
		start = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mission_runs(session_id, run_id, mission_id, capability, start_ts) VALUES(?,?,?,?,?)`,
		run.SessionID,
		run.RunID,
		run.MissionID,
		strings.TrimSpace(run.Capability),
		start.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishMissionRun closes an open run. Runs that already have an outcome are
// left untouched.
func (s *SQLiteStore) FinishMissionRun(ctx context.Context, runID int64, outcome RunOutcome, score int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mission_runs SET outcome = ?, score = ?, end_ts = ?
		WHERE id = ? AND outcome = ''
	`, string(outcome), max(0, score), time.Now().UTC().Format(timeLayout), runID)
	return err
}

func (s *SQLiteStore) ClearMissionRuns(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mission_runs`)
	return err
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as mission_runs,
			COALESCE(SUM(CASE WHEN outcome = 'completed' THEN 1 ELSE 0 END),0) as completions,
			COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END),0) as failures,
			COALESCE(SUM(CASE WHEN outcome = 'abandoned' THEN 1 ELSE 0 END),0) as abandons,
			COALESCE(MAX(score),0) as best_score
		FROM mission_runs
	`)
	if err := row.Scan(&out.MissionRuns, &out.Completions, &out.Failures, &out.Abandons, &out.BestScore); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) GetLastRun(ctx context.Context) (*LastRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT mission_id, capability, outcome, score, start_ts, end_ts
		FROM mission_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	var (
		out        LastRun
		outcome    string
		startTSRaw string
		endTSRaw   string
	)
	if err := row.Scan(&out.MissionID, &out.Capability, &outcome, &out.Score, &startTSRaw, &endTSRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	out.Outcome = RunOutcome(outcome)
	if t, err := time.Parse(timeLayout, startTSRaw); err == nil {
		out.StartTS = t
	}
	if t, err := time.Parse(timeLayout, endTSRaw); err == nil {
		out.EndTS = t
	}
	return &out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

var _ Store = (*SQLiteStore)(nil)
