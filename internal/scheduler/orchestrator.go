package scheduler

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/logging"
)

// Orchestrator runs an execution plan. It owns nothing but a logger; the
// plan carries the tasks and their configuration, the executor does the
// work.
type Orchestrator struct {
	log *logging.Logger
}

// NewOrchestrator creates an orchestrator. A nil logger discards output.
func NewOrchestrator(log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{log: log}
}

// Run executes the plan group by group and reports every task's outcome in
// the result.
//
// No task of a group dispatches until every dispatched task of the previous
// group is terminal. Within a group, exclusive tasks run strictly alone in
// canonical order before the rest of the group runs concurrently, bounded
// by global/max_parallel (zero means one worker per CPU).
//
// The first failed task cancels the shared run context: running siblings
// that then stop with a cancellation-shaped error are recorded as aborted
// rather than failed, and every still-pending task aborts without being
// dispatched. Cancelling ctx from outside aborts the run the same way. In
// all cases Run waits for in-flight executions to finish before returning.
//
// Task failure is data in the result. Run only returns an error for
// structural faults: a nil executor or a malformed plan.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan, executor TaskExecutor) (*RunResult, error) {
	if executor == nil {
		return nil, errors.NewValidationError("run needs a task executor")
	}
	if plan == nil {
		return nil, errors.NewValidationError("run needs a plan")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	limit := plan.Config.Global.MaxParallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One slot per task, filled in execution order. Slots are handed out to
	// the group goroutines and aggregated after each barrier.
	runs := make([]taskRun, 0, plan.Len())
	for _, group := range plan.Groups {
		for _, h := range group.Tasks {
			runs = append(runs, taskRun{name: h.Task.Name, status: StatusPending})
		}
	}

	result := &RunResult{Started: time.Now()}
	o.log.Info("run started", "tasks", plan.Len(), "groups", len(plan.Groups), "max_parallel", limit)

	offset := 0
	for _, group := range plan.Groups {
		groupRuns := runs[offset : offset+len(group.Tasks)]
		offset += len(group.Tasks)

		o.log.Debug("group started", "group", group.Index, "tasks", len(group.Tasks))
		o.runGroup(runCtx, cancel, group, groupRuns, limit, plan, executor)

		for i := range groupRuns {
			result.record(&groupRuns[i])
		}
		o.log.Debug("group finished", "group", group.Index)
	}

	result.Finished = time.Now()
	o.log.Info("run finished",
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"aborted", len(result.Aborted),
		"duration", result.Duration())
	return result, nil
}

// runGroup brings every task of one group to a terminal state before
// returning. That return is the group barrier.
func (o *Orchestrator) runGroup(ctx context.Context, cancel context.CancelFunc, group Group, runs []taskRun, limit int, plan *Plan, executor TaskExecutor) {
	// Exclusive tasks hold the group to themselves, one at a time, before
	// the parallel batch starts.
	for i, h := range group.Tasks {
		if h.Exclusive {
			o.runTask(ctx, cancel, h, &runs[i], plan, executor)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, h := range group.Tasks {
		if h.Exclusive {
			continue
		}
		g.Go(func() error {
			o.runTask(ctx, cancel, h, &runs[i], plan, executor)
			return nil
		})
	}
	_ = g.Wait()
}

// runTask drives one slot from pending to a terminal state.
func (o *Orchestrator) runTask(ctx context.Context, cancel context.CancelFunc, h *TaskHandle, run *taskRun, plan *Plan, executor TaskExecutor) {
	name := h.Task.Name

	// A cancelled run aborts pending tasks without dispatching them.
	if ctx.Err() != nil {
		run.status = StatusAborted
		run.err = errors.NewAbortError(name).WithCause(ctx.Err())
		return
	}

	run.status = StatusRunning
	run.started = time.Now()
	o.log.Info("task started", "task", name, "group", h.Task.Group)

	err := executor.Execute(ctx, h.Task, plan.Config)
	run.finished = time.Now()

	switch {
	case err == nil:
		run.status = StatusSucceeded
		o.log.Info("task succeeded", "task", name, "duration", run.duration())
	case errors.IsAbort(err) && ctx.Err() != nil:
		// Cancellation-shaped errors only count as aborts while the run is
		// actually being cancelled. A task failing on its own with a wrapped
		// context.Canceled is a real failure and must trip the fail-fast.
		run.status = StatusAborted
		run.err = errors.NewAbortError(name).WithCause(err)
		o.log.Warn("task aborted", "task", name)
	default:
		run.status = StatusFailed
		run.err = err
		o.log.Error("task failed", "task", name, "error", err)
		cancel()
	}
}
