package stores

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openfroyo/press/pkg/engine"
)

// Recorder collects pipeline outcomes during Execute and saves one Run per
// call. It implements engine.Observer.
type Recorder struct {
	store      Store
	logger     zerolog.Logger
	rootFolder string
	script     string

	mu        sync.Mutex
	nextID    string
	pipelines []PipelineRun
	last      *Run
	err       error
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder saving to store. rootFolder and script are
// copied onto every recorded run.
func NewRecorder(store Store, logger zerolog.Logger, rootFolder, script string) *Recorder {
	return &Recorder{
		store:      store,
		logger:     logger.With().Str("component", "run-recorder").Logger(),
		rootFolder: rootFolder,
		script:     script,
	}
}

// SetRunID fixes the ID of the next recorded run. Without it a random UUID is
// used.
func (r *Recorder) SetRunID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = id
}

// PipelineStarted implements engine.Observer.
func (r *Recorder) PipelineStarted(ctx context.Context, _ int, _ *engine.Pipeline) context.Context {
	return ctx
}

// PipelineFinished implements engine.Observer.
func (r *Recorder) PipelineFinished(_ context.Context, ordinal int, p *engine.Pipeline, documents int, duration time.Duration, err error) {
	pr := PipelineRun{
		Ordinal:       ordinal,
		Name:          p.Name(),
		ModuleCount:   p.Count(),
		DocumentCount: documents,
		Duration:      duration,
		Status:        PipelineStatusSucceeded,
	}
	if err != nil {
		pr.Status = PipelineStatusFailed
		pr.Error = err.Error()
	}

	r.mu.Lock()
	r.pipelines = append(r.pipelines, pr)
	r.mu.Unlock()
}

// RunFinished implements engine.Observer. The run is saved synchronously;
// a failed save is logged and reported by Err.
func (r *Recorder) RunFinished(ctx context.Context, pipelines, documents int, duration time.Duration, err error) {
	r.mu.Lock()
	id := r.nextID
	if id == "" {
		id = uuid.NewString()
	}
	r.nextID = ""
	rows := r.pipelines
	r.pipelines = nil
	r.mu.Unlock()

	finished := time.Now()
	run := &Run{
		ID:            id,
		RootFolder:    r.rootFolder,
		Script:        r.script,
		Status:        RunStatusSucceeded,
		StartedAt:     finished.Add(-duration),
		FinishedAt:    finished,
		Duration:      duration,
		PipelineCount: pipelines,
		DocumentCount: documents,
	}
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
		var engErr *engine.EngineError
		if errors.As(err, &engErr) {
			run.ErrorClass = string(engErr.Class)
			if engine.IsCancelled(err) {
				run.Status = RunStatusCancelled
			}
		}
	}
	for i := range rows {
		rows[i].RunID = id
	}

	// A cancelled run still gets recorded.
	saveErr := r.store.SaveRun(context.WithoutCancel(ctx), run, rows)
	if saveErr != nil {
		r.logger.Error().Err(saveErr).Str("run_id", id).Msg("Failed to record run")
	} else {
		r.logger.Debug().
			Str("run_id", id).
			Str("status", string(run.Status)).
			Int("documents", documents).
			Msg("Run recorded")
	}

	r.mu.Lock()
	r.last = run
	r.err = saveErr
	r.mu.Unlock()
}

// LastRun returns the most recently recorded run, or nil.
func (r *Recorder) LastRun() *Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Err returns the error of the most recent save.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
