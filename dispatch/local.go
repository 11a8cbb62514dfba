package dispatch

import (
	"context"

	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// Transport executes a single job somewhere: in-process or on a remote
// worker. The controller does not care which.
type Transport interface {
	Do(ctx context.Context, job Job) (*series.FeatureTable, error)
	Close() error
}

// LocalTransport executes jobs in-process through a Runner.
type LocalTransport struct {
	runner *Runner
}

// NewLocalTransport creates an in-process transport.
func NewLocalTransport(runner *Runner) *LocalTransport {
	return &LocalTransport{runner: runner}
}

// Do executes the job on the calling goroutine.
func (t *LocalTransport) Do(ctx context.Context, job Job) (*series.FeatureTable, error) {
	return t.runner.Execute(ctx, job)
}

// Close is a no-op for the in-process transport.
func (t *LocalTransport) Close() error { return nil }
