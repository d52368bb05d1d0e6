package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/tunguard/internal/budget"
	"github.com/nao1215/tunguard/internal/config"
	"github.com/nao1215/tunguard/internal/model"
)

// Default orchestrator settings, shared with the configuration defaults.
const (
	DefaultWorkers     = config.DefaultWorkers
	DefaultTaskTimeout = config.DefaultTimeout + config.DefaultTaskMargin
)

// Classifier classifies a single tunnel record. A nil result means the
// tunnel produced no report row.
type Classifier interface {
	Classify(ctx context.Context, rec model.TunnelRecord) *model.ClassificationResult
}

// ProgressFunc is called from the collecting goroutine after every
// collected task with the number of tasks collected so far.
type ProgressFunc func(done, total int, rec model.TunnelRecord)

// Orchestrator runs classification tasks concurrently.
type Orchestrator struct {
	classifier  Classifier
	workers     int
	taskTimeout time.Duration
	budget      *budget.Budget
	logger      *slog.Logger
	progress    ProgressFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the maximum number of concurrent classifications.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTaskTimeout sets how long a single task may run before it is
// abandoned and counted as a failure.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.taskTimeout = d
		}
	}
}

// WithBudget sets the error budget shared with the rest of the run.
func WithBudget(b *budget.Budget) Option {
	return func(o *Orchestrator) {
		o.budget = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// New creates an Orchestrator around c.
func New(c Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier:  c,
		workers:     DefaultWorkers,
		taskTimeout: DefaultTaskTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.budget == nil {
		o.budget = budget.New(budget.DefaultCeiling)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// outcome is what a finished task hands to the collector.
type outcome struct {
	rec    model.TunnelRecord
	result *model.ClassificationResult
	err    error
}

// Run classifies every record and returns the non-nil results in
// completion order.
//
// Run returns budget.ErrExhausted together with the results collected so
// far when the error budget runs out, and ctx.Err() when ctx is cancelled.
// Tasks still running at that point are cancelled and their results are
// discarded.
func (o *Orchestrator) Run(ctx context.Context, records []model.TunnelRecord) ([]model.ClassificationResult, error) {
	results := make([]model.ClassificationResult, 0, len(records))
	if len(records) == 0 {
		return results, nil
	}

	o.logger.Info("starting classification",
		"tunnels", len(records),
		"workers", o.workers,
		"taskTimeout", o.taskTimeout,
	)
	startTime := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so abandoned tasks never block on send.
	outcomes := make(chan outcome, len(records))

	go o.dispatch(ctx, records, outcomes)

	done := 0
	for {
		if o.budget.Exhausted() {
			cancel()
			o.logger.Error("error budget exhausted, abandoning remaining tasks",
				"collected", done,
				"total", len(records),
				"errors", o.budget.Count(),
			)
			return results, budget.ErrExhausted
		}

		var (
			out outcome
			ok  bool
		)
		select {
		case <-ctx.Done():
			o.logger.Warn("classification cancelled", "collected", done, "total", len(records))
			return results, ctx.Err()
		case out, ok = <-outcomes:
		}
		if !ok {
			break
		}

		done++
		switch {
		case out.err != nil:
			o.logger.Warn("task failed", "tunnel", out.rec.ID.String(), "error", out.err)
		case out.result != nil:
			results = append(results, *out.result)
		}

		if o.progress != nil {
			o.progress(done, len(records), out.rec)
		}
	}

	o.logger.Info("classification complete",
		"tunnels", len(records),
		"results", len(results),
		"elapsed", time.Since(startTime),
	)
	if err := ctx.Err(); err != nil {
		return results, err
	}
	if o.budget.Exhausted() {
		return results, budget.ErrExhausted
	}
	return results, nil
}

// dispatch submits one task per record and closes outcomes once every
// submitted task has finished.
func (o *Orchestrator) dispatch(ctx context.Context, records []model.TunnelRecord, outcomes chan<- outcome) {
	var g errgroup.Group
	g.SetLimit(o.workers)

	for _, rec := range records {
		if ctx.Err() != nil || o.budget.Exhausted() {
			break
		}
		g.Go(func() error {
			// Re-check: the slot may have been freed by the task that
			// exhausted the budget.
			if ctx.Err() != nil || o.budget.Exhausted() {
				return nil
			}
			outcomes <- o.runTask(ctx, rec)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // tasks report through outcomes
	close(outcomes)
}

// runTask classifies rec under the task deadline. Deadline misses and
// panics are recorded in the budget; cancellation of the run is not.
func (o *Orchestrator) runTask(ctx context.Context, rec model.TunnelRecord) outcome {
	taskCtx, cancel := context.WithTimeout(ctx, o.taskTimeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{rec: rec, err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
			}
		}()
		ch <- outcome{rec: rec, result: o.classifier.Classify(taskCtx, rec)}
	}()

	var out outcome
	select {
	case out = <-ch:
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			return outcome{rec: rec, err: ctx.Err()}
		}
		out = outcome{rec: rec, err: fmt.Errorf("%w after %s", ErrTaskTimeout, o.taskTimeout)}
	}

	if out.err != nil && !errors.Is(out.err, context.Canceled) {
		count, _ := o.budget.Record()
		o.logger.Error("classification task failed",
			"tunnel", rec.ID.String(),
			"error", out.err,
			"errors", count,
			"maxErrors", o.budget.Ceiling(),
		)
	}
	return out
}
