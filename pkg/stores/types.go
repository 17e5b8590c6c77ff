package stores

import (
	"context"
	"time"
)

// RunStatus represents the outcome of an engine run
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// PipelineStatus represents the outcome of a single pipeline
type PipelineStatus string

const (
	PipelineStatusSucceeded PipelineStatus = "succeeded"
	PipelineStatusFailed    PipelineStatus = "failed"
)

// Run is the recorded summary of one Execute call
type Run struct {
	ID            string        `json:"id"`
	RootFolder    string        `json:"root_folder"`
	Script        string        `json:"script,omitempty"`
	Status        RunStatus     `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Duration      time.Duration `json:"duration"`
	PipelineCount int           `json:"pipeline_count"`
	DocumentCount int           `json:"document_count"`
	ErrorClass    string        `json:"error_class,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// PipelineRun is the recorded outcome of one pipeline within a run
type PipelineRun struct {
	RunID         string         `json:"run_id"`
	Ordinal       int            `json:"ordinal"`
	Name          string         `json:"name"`
	ModuleCount   int            `json:"module_count"`
	DocumentCount int            `json:"document_count"`
	Duration      time.Duration  `json:"duration"`
	Status        PipelineStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
}

// Store defines the interface for run history persistence
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	SaveRun(ctx context.Context, run *Run, pipelines []PipelineRun) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error
	ListPipelineRuns(ctx context.Context, runID string) ([]*PipelineRun, error)

	// Health check
	HealthCheck(ctx context.Context) error
}
