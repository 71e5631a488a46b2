package tools

import (
	"context"

	"github.com/mo2build/mob/internal/errors"
)

// LRelease wraps Qt's lrelease, which compiles .ts translation sources into
// the binary .qm files the application loads.
type LRelease struct {
	run CommandRunner
	exe string
}

// NewLRelease creates an lrelease client using exe, or "lrelease" from PATH
// when empty.
func NewLRelease(run CommandRunner, exe string) *LRelease {
	if exe == "" {
		exe = "lrelease"
	}
	return &LRelease{run: run, exe: exe}
}

// Compile compiles the given .ts sources into one .qm file. Passing several
// sources merges them, which is how a project's plugin translations fold
// into its main catalog.
func (l *LRelease) Compile(ctx context.Context, tsFiles []string, qmFile string) error {
	if len(tsFiles) == 0 {
		return errors.NewValidationError("lrelease needs at least one .ts file")
	}

	args := append([]string{"-silent"}, tsFiles...)
	args = append(args, "-qm", qmFile)

	out, err := l.run.Run(ctx, "", l.exe, args...)
	if err != nil {
		return errors.NewExecutionError("lrelease failed", err).WithOutput(string(out))
	}
	return nil
}
