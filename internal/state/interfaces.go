package state

import (
	"context"
	"time"
)

// KV is the minimal key-value surface the progress document lives in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Store interface {
	KV
	EnsureSchema(ctx context.Context) error
	StartMissionRun(ctx context.Context, run MissionRun) (int64, error)
	FinishMissionRun(ctx context.Context, runID int64, outcome RunOutcome, score int) error
	ClearMissionRuns(ctx context.Context) error
	GetSummary(ctx context.Context) (Summary, error)
	GetLastRun(ctx context.Context) (*LastRun, error)
	Close() error
}

type RunOutcome string

const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomeFailed    RunOutcome = "failed"
	OutcomeAbandoned RunOutcome = "abandoned"
)

type MissionRun struct {
	SessionID  string
	RunID      string
	MissionID  int
	Capability string
	StartTS    time.Time
}

type Summary struct {
	MissionRuns int
	Completions int
	Failures    int
	Abandons    int
	BestScore   int
}

type LastRun struct {
	MissionID  int
	Capability string
	Outcome    RunOutcome
	Score      int
	StartTS    time.Time
	EndTS      time.Time
}
