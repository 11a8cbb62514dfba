package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/metric"
)

// DefaultQueueSize bounds how many jobs can wait for a worker before
// submissions are rejected with ErrControllerExhausted.
const DefaultQueueSize = 1024

// Budget returns the effective worker count for a requested value. The count
// can only be tuned downward from the machine's logical CPU count; zero or an
// over-ask falls back to the CPU count.
func Budget(requested int) int {
	limit := runtime.NumCPU()
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// Controller is the process-wide bounded executor for analysis jobs. All
// containers share one controller, so total concurrency stays within a single
// worker budget no matter how many pieces or collections are in flight.
type Controller struct {
	workers   int
	queueSize int
	transport Transport

	workChan chan *task
	wg       *sync.WaitGroup

	// outstanding tracks unfinished submissions for Drain.
	outstanding sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	live int32
	peak int32

	registry *metric.MetricsRegistry
}

// task binds a job to its slot in a submission's result slice.
type task struct {
	job Job
	sub *Submission
	idx int
}

// Submission is a batch of jobs accepted together. Results come back in the
// order the jobs were submitted, regardless of completion order.
type Submission struct {
	ID string

	results []Result
	pending int32
	done    chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetricsRegistry wires the controller's counters into the shared
// metrics registry.
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(c *Controller) { c.registry = registry }
}

// WithQueueSize overrides the default pending-job queue capacity.
func WithQueueSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// NewController creates a controller with the given worker budget. The
// transport decides where jobs actually run.
func NewController(workers int, transport Transport, opts ...Option) *Controller {
	c := &Controller{
		workers:   Budget(workers),
		queueSize: DefaultQueueSize,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.workChan = make(chan *task, c.queueSize)
	return c
}

// Start launches the worker pool. A startup failure is fatal: the controller
// is the process's only executor and there is nothing to degrade to.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.started {
		return errors.WrapFatal(
			fmt.Errorf("%w: already started", errors.ErrPoolStartup),
			"Controller", "Start", "lifecycle check")
	}
	if c.transport == nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: no transport configured", errors.ErrPoolStartup),
			"Controller", "Start", "transport check")
	}

	c.wg = &sync.WaitGroup{}
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}

	c.started = true
	return nil
}

// Submit accepts a batch of jobs for execution. Jobs are dispatched in the
// order given. When the queue cannot hold the whole batch the submission is
// rejected with ErrControllerExhausted and no job is enqueued.
func (c *Controller) Submit(jobs ...Job) (*Submission, error) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.started {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: submit before start", errors.ErrPoolStartup),
			"Controller", "Submit", "lifecycle check")
	}
	if c.stopped {
		return nil, errors.WrapInvalid(errors.ErrControllerStopped,
			"Controller", "Submit", "lifecycle check")
	}
	if len(jobs) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: submission has no jobs", errors.ErrEmptyInput),
			"Controller", "Submit", "batch validation")
	}
	if len(c.workChan)+len(jobs) > c.queueSize {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %d queued, %d requested, capacity %d",
				errors.ErrControllerExhausted, len(c.workChan), len(jobs), c.queueSize),
			"Controller", "Submit", "queue capacity check")
	}

	sub := &Submission{
		ID:      uuid.NewString(),
		results: make([]Result, len(jobs)),
		pending: int32(len(jobs)),
		done:    make(chan struct{}),
	}
	c.outstanding.Add(1)

	for i, job := range jobs {
		if c.registry != nil {
			c.registry.Metrics.RecordJobSubmitted(job.Stage)
		}
		c.workChan <- &task{job: job, sub: sub, idx: i}
	}
	return sub, nil
}

// Collect blocks until every job in the submission has finished and returns
// the results in submission order. Per-job failures come back as Result.Err;
// Collect itself fails only when the context ends first.
func (s *Submission) Collect(ctx context.Context) ([]Result, error) {
	select {
	case <-s.done:
		return s.results, nil
	case <-ctx.Done():
		return nil, errors.WrapTransient(ctx.Err(), "Submission", "Collect", "wait for results")
	}
}

// Drain abandons the submission. Its jobs still run to completion so sibling
// submissions are unaffected, but the results are discarded.
func (s *Submission) Drain() {
	go func() {
		<-s.done
		for i := range s.results {
			s.results[i] = Result{}
		}
	}()
}

// Drain blocks until all outstanding submissions have completed.
func (c *Controller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.outstanding.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Controller", "Drain", "wait for submissions")
	}
}

// Stop drains the queue and stops all workers. New submissions are rejected
// once Stop has begun.
func (c *Controller) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	if !c.started || c.stopped {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.workChan)
	c.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return c.transport.Close()
	case <-timer.C:
		return errors.WrapTransient(
			fmt.Errorf("workers still busy after %s", timeout),
			"Controller", "Stop", "worker shutdown")
	}
}

// Workers returns the effective worker budget.
func (c *Controller) Workers() int { return c.workers }

// PeakLive returns the highest number of workers observed executing at once.
func (c *Controller) PeakLive() int {
	return int(atomic.LoadInt32(&c.peak))
}

func (c *Controller) worker(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-c.workChan:
			if !ok {
				return
			}
			c.execute(ctx, t)
		}
	}
}

func (c *Controller) execute(ctx context.Context, t *task) {
	live := atomic.AddInt32(&c.live, 1)
	for {
		peak := atomic.LoadInt32(&c.peak)
		if live <= peak || atomic.CompareAndSwapInt32(&c.peak, peak, live) {
			break
		}
	}
	if c.registry != nil {
		c.registry.Metrics.WorkersLive.Set(float64(live))
	}

	start := time.Now()
	table, err := c.transport.Do(ctx, t.job)

	atomic.AddInt32(&c.live, -1)
	if c.registry != nil {
		c.registry.Metrics.WorkersLive.Set(float64(atomic.LoadInt32(&c.live)))
		c.registry.Metrics.RecordJobDuration(t.job.Stage, time.Since(start))
		if err != nil {
			c.registry.Metrics.RecordJobCompleted(t.job.Stage, "error")
			c.registry.Metrics.RecordJobFailed(t.job.Stage, errors.Classify(err).String())
		} else {
			c.registry.Metrics.RecordJobCompleted(t.job.Stage, "success")
		}
	}

	t.sub.results[t.idx] = Result{JobID: t.job.ID, Table: table, Err: err}
	if atomic.AddInt32(&t.sub.pending, -1) == 0 {
		close(t.sub.done)
		c.outstanding.Done()
	}
}
