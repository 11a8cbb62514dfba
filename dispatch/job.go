package dispatch

import (
	"github.com/google/uuid"

	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// Job describes one stage execution. It holds only serializable values, so a
// job can cross a process boundary unchanged: the executing side resolves the
// stage by name from its own registry.
type Job struct {
	ID       string                 `json:"id"`
	Stage    string                 `json:"stage"`
	Settings series.Settings        `json:"settings"`
	Inputs   []*series.FeatureTable `json:"inputs"`
}

// NewJob creates a job with a fresh identity.
func NewJob(stageName string, settings series.Settings, inputs ...*series.FeatureTable) Job {
	return Job{
		ID:       uuid.NewString(),
		Stage:    stageName,
		Settings: settings,
		Inputs:   inputs,
	}
}

// Result is the outcome of one job. Exactly one of Table and Err is set.
type Result struct {
	JobID string
	Table *series.FeatureTable
	Err   error
}
