package scheduler

import (
	"time"
)

// taskRun is one task's execution record. Each slot is written only by the
// goroutine executing its task and read by the orchestrator after the group
// barrier, so no lock is needed.
type taskRun struct {
	name     string
	status   Status
	started  time.Time
	finished time.Time
	err      error
}

func (r *taskRun) duration() time.Duration {
	if r.started.IsZero() {
		return 0
	}
	if r.finished.IsZero() {
		return time.Since(r.started)
	}
	return r.finished.Sub(r.started)
}

// TaskFailure names a failed task together with the reason its execution
// reported.
type TaskFailure struct {
	Name   string
	Reason error
}

// RunResult is the outcome of one run. Task failure lives here as data;
// Run only returns an error for structural faults, never because a task
// failed.
//
// The buckets list tasks in execution order: group by group, canonical
// order within each group.
type RunResult struct {
	// Succeeded lists the tasks that finished without error.
	Succeeded []string

	// Failed lists the tasks whose own execution failed, with reasons.
	Failed []TaskFailure

	// Aborted lists the tasks cancelled by a sibling failure or an
	// interrupt, whether they were running at the time or never dispatched.
	Aborted []string

	// Started and Finished delimit the whole run.
	Started  time.Time
	Finished time.Time

	runs map[string]taskRun
}

// OK returns true if every planned task succeeded.
func (r *RunResult) OK() bool {
	return len(r.Failed) == 0 && len(r.Aborted) == 0
}

// Len returns the number of planned tasks the run accounted for.
func (r *RunResult) Len() int {
	return len(r.runs)
}

// Duration returns the wall time of the whole run.
func (r *RunResult) Duration() time.Duration {
	if r.Started.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// TaskStatus returns the terminal status of a planned task.
func (r *RunResult) TaskStatus(name string) (Status, bool) {
	run, ok := r.runs[name]
	return run.status, ok
}

// TaskDuration returns how long a task ran. Zero for tasks that were never
// dispatched or are unknown to this run.
func (r *RunResult) TaskDuration(name string) time.Duration {
	run, ok := r.runs[name]
	if !ok {
		return 0
	}
	return run.duration()
}

// record aggregates one terminal run slot into the buckets. Called between
// groups, never concurrently.
func (r *RunResult) record(run *taskRun) {
	if r.runs == nil {
		r.runs = map[string]taskRun{}
	}
	r.runs[run.name] = *run

	switch run.status {
	case StatusSucceeded:
		r.Succeeded = append(r.Succeeded, run.name)
	case StatusFailed:
		r.Failed = append(r.Failed, TaskFailure{Name: run.name, Reason: run.err})
	case StatusAborted:
		r.Aborted = append(r.Aborted, run.name)
	}
}
