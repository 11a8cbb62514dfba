package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// Runner resolves jobs to stage instances and executes them. A panic inside a
// stage is confined to the job that caused it and surfaces as a job failure
// instead of tearing down the worker.
type Runner struct {
	registry *stage.Registry
	logger   *slog.Logger
}

// NewRunner creates a runner backed by the given stage registry.
func NewRunner(registry *stage.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, logger: logger}
}

// Execute runs one job to completion.
func (r *Runner) Execute(ctx context.Context, job Job) (table *series.FeatureTable, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("stage panicked",
				"job_id", job.ID,
				"stage", job.Stage,
				"panic", rec)
			table = nil
			err = errors.WrapInvalid(
				fmt.Errorf("%w: stage %q panicked: %v", errors.ErrJobFailure, job.Stage, rec),
				"Runner", "Execute", "stage execution")
		}
	}()

	st, err := r.registry.New(job.Stage)
	if err != nil {
		return nil, err
	}

	table, err = st.Run(ctx, job.Inputs, job.Settings)
	if err != nil {
		return nil, errors.Wrap(err, "Runner", "Execute", "stage "+job.Stage)
	}
	return table, nil
}
