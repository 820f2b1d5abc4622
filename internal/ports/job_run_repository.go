package ports

import (
	"context"
	"errors"
	"time"
)

var ErrJobRunNotFound = errors.New("job run not found")

// Job run statuses. Finish accepts free text but the engines only emit
// these.
const (
	JobRunRunning  = "RUNNING"
	JobRunFinished = "FINISHED"
	JobRunFail     = "FAIL"
)

// JobRun is bookkeeping for one execution of a named unit of work.
type JobRun struct {
	ID         uint64
	JobName    string
	Step       string
	InputHash  string
	Info       map[string]any
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

type JobRunStart struct {
	JobName   string
	Step      string
	InputHash string
	Info      map[string]any
}

type JobRunRepository interface {
	Start(ctx context.Context, input JobRunStart) (JobRun, error)
	// Finish sets the terminal status and finished_at exactly once,
	// merging infoUpdate into the stored info blob.
	Finish(ctx context.Context, id uint64, status string, infoUpdate map[string]any) (JobRun, error)
}
