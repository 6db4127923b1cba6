// Package tasks tracks long-running in-process jobs by id so they can be
// cancelled from elsewhere. Cancellation is cooperative: RequestCancel raises
// a flag and calls the task's Cancel hook, and the job is expected to poll
// IsCancelRequested and stop at a safe point.
package tasks

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/nsrs/shardgate/pkg/models/sgerror"
	"github.com/nsrs/shardgate/pkg/sglog"
)

type Cancellable interface {
	Cancel()
}

// CancelFunc adapts a plain function to Cancellable.
type CancelFunc func()

func (f CancelFunc) Cancel() {
	f()
}

type taskHandle struct {
	cancellable     Cancellable
	cancelRequested *atomic.Bool
}

type Registry struct {
	tasks   sync.Map // int64 -> *taskHandle
	running *atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{
		running: atomic.NewInt64(0),
	}
}

// Register adds a running task. handle may be nil when the task has no
// cancel hook and relies on the flag alone.
func (r *Registry) Register(taskID int64, handle Cancellable) error {
	h := &taskHandle{
		cancellable:     handle,
		cancelRequested: atomic.NewBool(false),
	}
	if _, loaded := r.tasks.LoadOrStore(taskID, h); loaded {
		return sgerror.Newf(sgerror.SG_TASK_ERROR, "task %d is already registered", taskID)
	}
	r.running.Inc()

	sglog.Zero.Debug().Int64("task", taskID).Msg("tasks: task registered")
	return nil
}

func (r *Registry) load(taskID int64) (*taskHandle, bool) {
	v, ok := r.tasks.Load(taskID)
	if !ok {
		return nil, false
	}
	return v.(*taskHandle), true
}

// RequestCancel reports whether the task was running. It never waits for
// the task to stop.
func (r *Registry) RequestCancel(taskID int64) bool {
	h, ok := r.load(taskID)
	if !ok {
		sglog.Zero.Debug().Int64("task", taskID).Msg("tasks: cancel of unknown task ignored")
		return false
	}
	// Cancel first so a job that sees the flag also sees a done context.
	if h.cancellable != nil {
		h.cancellable.Cancel()
	}
	h.cancelRequested.Store(true)

	sglog.Zero.Info().Int64("task", taskID).Msg("tasks: cancel requested")
	return true
}

func (r *Registry) IsCancelRequested(taskID int64) bool {
	h, ok := r.load(taskID)
	return ok && h.cancelRequested.Load()
}

// Complete removes the task. Only the first call for an id returns true.
func (r *Registry) Complete(taskID int64) bool {
	if _, ok := r.tasks.LoadAndDelete(taskID); !ok {
		return false
	}
	r.running.Dec()

	sglog.Zero.Debug().Int64("task", taskID).Msg("tasks: task completed")
	return true
}

func (r *Registry) IsRunning(taskID int64) bool {
	_, ok := r.tasks.Load(taskID)
	return ok
}

func (r *Registry) RunningCount() int {
	return int(r.running.Load())
}
