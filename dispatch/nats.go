package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// DefaultJobSubject is the NATS subject remote workers listen on.
const DefaultJobSubject = "fiddletunes.jobs"

// wireResult is the reply payload for a remote job. Errors travel as text
// plus their class so the submitting side can rebuild a classified error.
type wireResult struct {
	JobID string               `json:"job_id"`
	Table *series.FeatureTable `json:"table,omitempty"`
	Error string               `json:"error,omitempty"`
	Class string               `json:"class,omitempty"`
}

// NATSTransport executes jobs on remote workers via NATS request/reply. It
// satisfies the same Transport interface as the in-process executor, so the
// controller and containers are unchanged when analysis is distributed.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSTransport creates a transport that publishes jobs on the given
// subject. An empty subject uses DefaultJobSubject.
func NewNATSTransport(conn *nats.Conn, subject string, logger *slog.Logger) *NATSTransport {
	if subject == "" {
		subject = DefaultJobSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSTransport{conn: conn, subject: subject, logger: logger}
}

// Do sends the job to a remote worker and waits for its reply.
func (t *NATSTransport) Do(ctx context.Context, job Job) (*series.FeatureTable, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NATSTransport", "Do", "encode job")
	}

	msg, err := t.conn.RequestWithContext(ctx, t.subject, payload)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrJobFailure, err),
			"NATSTransport", "Do", "request job "+job.ID)
	}

	var reply wireResult
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, errors.WrapInvalid(err, "NATSTransport", "Do", "decode reply")
	}
	if reply.Error != "" {
		return nil, remoteError(reply)
	}
	return reply.Table, nil
}

// Close drains the underlying connection.
func (t *NATSTransport) Close() error {
	if t.conn != nil && !t.conn.IsClosed() {
		if err := t.conn.Drain(); err != nil {
			return errors.WrapTransient(err, "NATSTransport", "Close", "drain connection")
		}
	}
	return nil
}

// remoteError rebuilds a classified error from its wire form.
func remoteError(reply wireResult) error {
	base := fmt.Errorf("%w: %s", errors.ErrJobFailure, reply.Error)
	switch reply.Class {
	case errors.ErrorTransient.String():
		return errors.WrapTransient(base, "NATSTransport", "Do", "remote execution")
	case errors.ErrorFatal.String():
		return errors.WrapFatal(base, "NATSTransport", "Do", "remote execution")
	default:
		return errors.WrapInvalid(base, "NATSTransport", "Do", "remote execution")
	}
}

// NATSWorker subscribes to the job subject and executes jobs with a local
// runner, replying with the encoded result. Run one or more of these in
// worker processes to serve a NATSTransport.
type NATSWorker struct {
	conn    *nats.Conn
	subject string
	runner  *Runner
	logger  *slog.Logger

	sub *nats.Subscription
}

// NewNATSWorker creates a worker bound to the given subject.
func NewNATSWorker(conn *nats.Conn, subject string, runner *Runner, logger *slog.Logger) *NATSWorker {
	if subject == "" {
		subject = DefaultJobSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSWorker{conn: conn, subject: subject, runner: runner, logger: logger}
}

// Start subscribes to the job subject with a queue group, so multiple
// workers share the load.
func (w *NATSWorker) Start(ctx context.Context) error {
	sub, err := w.conn.QueueSubscribe(w.subject, "analysis-workers", func(msg *nats.Msg) {
		w.handle(ctx, msg)
	})
	if err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrPoolStartup, err),
			"NATSWorker", "Start", "subscribe "+w.subject)
	}
	w.sub = sub
	return nil
}

// Stop unsubscribes from the job subject.
func (w *NATSWorker) Stop() error {
	if w.sub == nil {
		return nil
	}
	if err := w.sub.Drain(); err != nil {
		return errors.WrapTransient(err, "NATSWorker", "Stop", "drain subscription")
	}
	w.sub = nil
	return nil
}

func (w *NATSWorker) handle(ctx context.Context, msg *nats.Msg) {
	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.reply(msg, wireResult{Error: "malformed job: " + err.Error(), Class: errors.ErrorInvalid.String()})
		return
	}

	table, err := w.runner.Execute(ctx, job)
	reply := wireResult{JobID: job.ID, Table: table}
	if err != nil {
		reply.Table = nil
		reply.Error = err.Error()
		reply.Class = errors.Classify(err).String()
	}
	w.reply(msg, reply)
}

func (w *NATSWorker) reply(msg *nats.Msg, reply wireResult) {
	payload, err := json.Marshal(reply)
	if err != nil {
		w.logger.Error("failed to encode job reply", "job_id", reply.JobID, "error", err)
		return
	}
	if err := msg.Respond(payload); err != nil {
		w.logger.Error("failed to send job reply", "job_id", reply.JobID, "error", err)
	}
}
