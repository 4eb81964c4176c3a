package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"verifyd/internal/config"
	"verifyd/internal/logging"
	"verifyd/internal/session"
)

// ErrQueueFull indicates the dispatch queue did not accept a job within
// the enqueue timeout.
var ErrQueueFull = errors.New("dispatch queue full")

// CreateResult is returned to the caller immediately after session
// creation, before any analysis has run.
type CreateResult struct {
	VerificationID           string `json:"verificationId"`
	EstimatedDurationSeconds int    `json:"estimatedDurationSeconds"`
	State                    string `json:"state"`
	Message                  string `json:"message"`
}

// Dispatcher validates verification requests, creates sessions, and hands
// work to the worker without waiting for it.
type Dispatcher struct {
	store           *session.Store
	jobs            chan Job
	enqueueTimeout  time.Duration
	defaultEstimate int
	logger          *slog.Logger
}

// NewDispatcher constructs a dispatcher with a buffered dispatch queue.
func NewDispatcher(store *session.Store, cfg config.Worker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:           store,
		jobs:            make(chan Job, cfg.QueueSize),
		enqueueTimeout:  time.Duration(cfg.EnqueueTimeoutMillis) * time.Millisecond,
		defaultEstimate: cfg.DefaultEstimateSecond,
		logger:          logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// Jobs exposes the dispatch queue for the worker to consume.
func (d *Dispatcher) Jobs() <-chan Job {
	return d.jobs
}

// Submit validates the request, creates a session, and triggers the worker.
// The trigger is fire-and-forget: a failure to enqueue is logged but does
// not fail the response, since the caller already holds a valid session id
// and can resubmit if it never observes progress.
func (d *Dispatcher) Submit(ctx context.Context, req Request) (CreateResult, error) {
	if err := req.Validate(); err != nil {
		return CreateResult{}, err
	}

	estimate := EstimateDuration(req.Audio, d.defaultEstimate)
	id, err := d.store.Create(ctx, req.WalrusBlobID, req.Metadata.Title, estimate)
	if err != nil {
		return CreateResult{}, fmt.Errorf("create session: %w", err)
	}

	job := Job{
		SessionID:    id,
		WalrusBlobID: req.WalrusBlobID,
		Metadata:     req.Metadata,
		Audio:        req.Audio,
	}
	if err := d.Enqueue(job); err != nil {
		d.logger.Warn("failed to enqueue verification job",
			logging.String("session_id", id),
			logging.Error(err),
		)
	}

	return CreateResult{
		VerificationID:           id,
		EstimatedDurationSeconds: estimate,
		State:                    string(session.StatusPending),
		Message:                  "verification started; poll the status endpoint for progress",
	}, nil
}

// Enqueue offers a job to the dispatch queue, giving up after the enqueue
// timeout. It validates the job defensively since the run endpoint feeds
// it directly.
func (d *Dispatcher) Enqueue(job Job) error {
	if err := validateJob(&job); err != nil {
		return err
	}
	timer := time.NewTimer(d.enqueueTimeout)
	defer timer.Stop()
	select {
	case d.jobs <- job:
		return nil
	case <-timer.C:
		return ErrQueueFull
	}
}
