package tools

import (
	"context"

	"github.com/mo2build/mob/internal/errors"
)

// ISCC wraps the Inno Setup compiler that packs the finished install tree
// into the distributable installer executable.
type ISCC struct {
	run CommandRunner
	exe string
}

// NewISCC creates an iscc client using exe, or "iscc" from PATH when empty.
func NewISCC(run CommandRunner, exe string) *ISCC {
	if exe == "" {
		exe = "iscc"
	}
	return &ISCC{run: run, exe: exe}
}

// Compile compiles the .iss script, writing the installer into outputDir.
// Defines are forwarded as /D preprocessor values in the order given.
func (i *ISCC) Compile(ctx context.Context, issFile, outputDir string, defines []string) error {
	var args []string
	for _, d := range defines {
		args = append(args, "/D"+d)
	}
	if outputDir != "" {
		args = append(args, "/O"+outputDir)
	}
	args = append(args, issFile)

	out, err := i.run.Run(ctx, "", i.exe, args...)
	if err != nil {
		return errors.NewExecutionError("iscc failed", err).WithOutput(string(out))
	}
	return nil
}
