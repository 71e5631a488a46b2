package tools

import (
	"context"
	"os/exec"
	"strconv"

	"github.com/mo2build/mob/internal/errors"
)

// Transifex wraps the tx command line used to pull translation sources.
// The API key travels through the TX_TOKEN environment variable of each
// invocation, never through the command line.
type Transifex struct {
	run CommandRunner
	exe string
	key string
}

// NewTransifex creates a tx client using exe, or "tx" from PATH when empty.
func NewTransifex(run CommandRunner, exe, key string) *Transifex {
	if exe == "" {
		exe = "tx"
	}
	return &Transifex{run: run, exe: exe, key: key}
}

func (t *Transifex) env() []string {
	if t.key == "" {
		return nil
	}
	return []string{"TX_TOKEN=" + t.key}
}

// Init initializes the transifex client state in dir. A directory that is
// already initialized is not an error.
func (t *Transifex) Init(ctx context.Context, dir string) error {
	out, err := t.run.RunEnv(ctx, dir, t.env(), t.exe, "init")
	if err != nil {
		// tx exits with 2 when the directory is already initialized
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
			return nil
		}
		return errors.NewExecutionError("tx init failed", err).WithOutput(string(out))
	}
	return nil
}

// Configure registers the remote project url in dir's transifex state.
func (t *Transifex) Configure(ctx context.Context, dir, url string) error {
	out, err := t.run.RunEnv(ctx, dir, t.env(), t.exe, "add", "remote", url)
	if err != nil {
		return errors.NewExecutionError("tx add remote failed", err).WithOutput(string(out))
	}
	return nil
}

// Pull fetches all translations at or above minimum percent completion into
// dir. Force re-downloads files tx believes are current.
func (t *Transifex) Pull(ctx context.Context, dir string, minimum int, force bool) error {
	args := []string{"pull", "--all", "--minimum-perc", strconv.Itoa(minimum)}
	if force {
		args = append(args, "--force")
	}

	out, err := t.run.RunEnv(ctx, dir, t.env(), t.exe, args...)
	if err != nil {
		return errors.NewExecutionError("tx pull failed", err).WithOutput(string(out))
	}
	return nil
}
