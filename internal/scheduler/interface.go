// Package scheduler turns a task selection into an execution plan and runs
// it group by group.
//
// Planning and running are separate steps. NewPlan resolves the selection
// against the registry and partitions the chosen tasks into their dependency
// groups; the Orchestrator then dispatches one group at a time, in parallel
// within a group, through the TaskExecutor boundary. The plan is immutable
// once computed, so the same plan can be inspected, printed and executed
// without re-resolving anything.
package scheduler

import (
	"context"
	"fmt"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/task"
)

// TaskExecutor performs the actual work of one task. Implementations handle
// the clean, fetch and build mechanics; the scheduler only cares about the
// error.
type TaskExecutor interface {
	// Execute runs the given task and blocks until it finishes or fails.
	//
	// The context is cancelled when the run is aborted, either because a
	// sibling task failed or because the run was interrupted from outside.
	// Implementations must stop promptly when that happens; an error that
	// wraps the cancellation is recorded as an abort, not a failure.
	Execute(ctx context.Context, task *task.Task, cfg *config.Resolved) error
}

// Status is the execution state of one planned task.
type Status int

const (
	// StatusPending indicates the task has not been dispatched yet.
	StatusPending Status = iota

	// StatusRunning indicates the task is currently executing.
	StatusRunning

	// StatusSucceeded indicates the task finished without error.
	StatusSucceeded

	// StatusFailed indicates the task's own execution failed.
	StatusFailed

	// StatusAborted indicates the task was cancelled, either before dispatch
	// or while running, because the run stopped. Aborted is not a failure of
	// the task itself.
	StatusAborted
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsTerminal returns true if this status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusAborted
}
