// Package tools runs the external programs a build needs. It wraps git,
// cmake, 7z, lrelease, tx and iscc behind small typed clients, adds an HTTP
// downloader for release archives, and ties everything together in Executor,
// the production task executor that drives each task through its clean,
// fetch and build phases.
//
// Every wrapper takes a CommandRunner, so tests substitute a recording fake
// and assert the exact command lines without spawning anything.
package tools

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/mo2build/mob/internal/logging"
)

// CommandRunner abstracts external process execution for testability.
type CommandRunner interface {
	// Run executes a command in dir and returns its combined output.
	// An empty dir runs in the current working directory.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// RunEnv is Run with extra KEY=VALUE pairs added to the environment.
	RunEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// ProcessRunner executes commands with exec.CommandContext, so cancelling
// the run context kills the process. In dry-run mode every command is logged
// instead of executed and reports empty output and success.
type ProcessRunner struct {
	log *logging.Logger
	dry bool
}

// NewProcessRunner creates a runner logging through log. A nil logger
// discards all output.
func NewProcessRunner(log *logging.Logger, dry bool) *ProcessRunner {
	if log == nil {
		log = logging.Nop()
	}
	return &ProcessRunner{log: log, dry: dry}
}

// Run executes a command in dir and returns its combined output.
func (r *ProcessRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	return r.RunEnv(ctx, dir, nil, name, args...)
}

// RunEnv is Run with extra KEY=VALUE pairs added to the environment.
func (r *ProcessRunner) RunEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmdline := name + " " + strings.Join(args, " ")

	if r.dry {
		r.log.Info("dry run", "cmd", cmdline, "dir", dir)
		return nil, nil
	}

	r.log.Debug("running", "cmd", cmdline, "dir", dir)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.log.Trace("command output", "cmd", name, "output", string(out))
	}
	if err != nil {
		// A context kill surfaces as a generic exit error. Return the
		// context's error instead so callers can tell an abort from a
		// real failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		return out, err
	}
	return out, nil
}

var _ CommandRunner = (*ProcessRunner)(nil)
