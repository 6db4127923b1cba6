// Package jobs runs long maintenance jobs (bulk imports, re-bindings) on a
// bounded pool and tracks them in a task registry so they can be cancelled
// by id.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nsrs/shardgate/pkg/models/tasks"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/router/statistics"
)

type State string

const (
	StateSucceeded = State("succeeded")
	StateFailed    = State("failed")
	StateCancelled = State("cancelled")
)

// Job does the work. It should call cancelled between units of work and
// return once it reports true; ctx is also cancelled at that point.
type Job func(ctx context.Context, cancelled func() bool) error

type Result struct {
	TaskID   int64
	State    State
	Err      error
	Duration time.Duration
}

type Runner struct {
	registry *tasks.Registry
	sem      *semaphore.Weighted
}

func NewRunner(registry *tasks.Registry, maxParallel int) *Runner {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Runner{
		registry: registry,
		sem:      semaphore.NewWeighted(int64(maxParallel)),
	}
}

func (r *Runner) Registry() *tasks.Registry {
	return r.registry
}

// Start registers the task and runs job in the background. The task is
// cancellable from the moment Start returns, including while it waits for a
// free worker. The channel yields exactly one result.
func (r *Runner) Start(ctx context.Context, taskID int64, job Job) (<-chan *Result, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	if err := r.registry.Register(taskID, tasks.CancelFunc(cancel)); err != nil {
		cancel()
		return nil, err
	}
	statistics.TaskStarted()

	out := make(chan *Result, 1)
	go func() {
		defer cancel()
		out <- r.run(jobCtx, taskID, job)
	}()
	return out, nil
}

// Run is Start followed by waiting for the result.
func (r *Runner) Run(ctx context.Context, taskID int64, job Job) (*Result, error) {
	ch, err := r.Start(ctx, taskID, job)
	if err != nil {
		return nil, err
	}
	return <-ch, nil
}

func (r *Runner) run(ctx context.Context, taskID int64, job Job) (res *Result) {
	start := time.Now()
	res = &Result{TaskID: taskID}

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("job panicked: %v", p)
		}
		res.State = r.state(taskID, res.Err)
		res.Duration = time.Since(start)

		r.registry.Complete(taskID)
		statistics.TaskFinished(string(res.State))

		sglog.Zero.Info().
			Int64("task", taskID).
			Str("state", string(res.State)).
			Dur("duration", res.Duration).
			Err(res.Err).
			Msg("jobs: task finished")
	}()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		res.Err = err
		return res
	}
	defer r.sem.Release(1)

	sglog.Zero.Debug().Int64("task", taskID).Msg("jobs: task started")
	res.Err = job(ctx, func() bool {
		return r.registry.IsCancelRequested(taskID)
	})
	return res
}

// state must be called before the task is completed.
func (r *Runner) state(taskID int64, err error) State {
	if r.registry.IsCancelRequested(taskID) || errors.Is(err, context.Canceled) {
		return StateCancelled
	}
	if err != nil {
		return StateFailed
	}
	return StateSucceeded
}
