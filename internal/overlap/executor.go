package overlap

import (
	"context"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/scheduler"
	"github.com/mo2build/mob/internal/task"
)

// Executor wraps a task executor so every execution is bracketed with
// TaskStarted and TaskFinished on the watcher. The scheduler stays unaware
// of the watching; it just runs the wrapped executor.
func (w *Watcher) Executor(inner scheduler.TaskExecutor) scheduler.TaskExecutor {
	return &watchedExecutor{watcher: w, inner: inner}
}

type watchedExecutor struct {
	watcher *Watcher
	inner   scheduler.TaskExecutor
}

var _ scheduler.TaskExecutor = (*watchedExecutor)(nil)

func (e *watchedExecutor) Execute(ctx context.Context, t *task.Task, cfg *config.Resolved) error {
	if t != nil {
		e.watcher.TaskStarted(t.Name)
		defer e.watcher.TaskFinished(t.Name)
	}
	return e.inner.Execute(ctx, t, cfg)
}
