package tools

import (
	"context"
	"sort"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/errors"
)

// Cmake wraps the cmake command line for the configure, build and install
// steps of source tasks.
type Cmake struct {
	run CommandRunner
	exe string
	cfg config.CmakeConfig
}

// NewCmake creates a cmake client using exe, or "cmake" from PATH when
// empty. Generator, toolset host and install message come from cfg.
func NewCmake(run CommandRunner, exe string, cfg config.CmakeConfig) *Cmake {
	if exe == "" {
		exe = "cmake"
	}
	return &Cmake{run: run, exe: exe, cfg: cfg}
}

// Configure generates the build system for sourceDir into buildDir.
// Definitions are passed as -D flags in sorted order so invocations stay
// reproducible; the configured install message is applied unless defs
// overrides it.
func (c *Cmake) Configure(ctx context.Context, sourceDir, buildDir string, defs map[string]string) error {
	args := []string{"-S", sourceDir, "-B", buildDir}
	if c.cfg.Generator != "" {
		args = append(args, "-G", c.cfg.Generator)
	}
	if c.cfg.Host != "" {
		args = append(args, "-T", "host="+c.cfg.Host)
	}

	merged := make(map[string]string, len(defs)+1)
	if c.cfg.InstallMessage != "" {
		merged["CMAKE_INSTALL_MESSAGE"] = c.cfg.InstallMessage
	}
	for k, v := range defs {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+merged[k])
	}

	out, err := c.run.Run(ctx, "", c.exe, args...)
	if err != nil {
		return errors.NewExecutionError("cmake configure failed", err).WithOutput(string(out))
	}
	return nil
}

// ConfigurePreset configures using a preset the project defines itself. A
// preset fixes generator, architecture and build directory, so the command
// runs from the source directory and defs only add to it.
func (c *Cmake) ConfigurePreset(ctx context.Context, sourceDir, preset string, defs map[string]string) error {
	args := []string{"--preset", preset}

	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+defs[k])
	}

	out, err := c.run.Run(ctx, sourceDir, c.exe, args...)
	if err != nil {
		return errors.NewExecutionError("cmake configure failed", err).WithOutput(string(out))
	}
	return nil
}

// Build compiles the configured build directory with all cores.
func (c *Cmake) Build(ctx context.Context, buildDir string, bt config.BuildType) error {
	out, err := c.run.Run(ctx, "", c.exe, "--build", buildDir, "--config", bt.String(), "--parallel")
	if err != nil {
		return errors.NewExecutionError("cmake build failed", err).WithOutput(string(out))
	}
	return nil
}

// CleanTarget runs the generated clean target, dropping compiled objects
// while keeping the configured build system.
func (c *Cmake) CleanTarget(ctx context.Context, buildDir string, bt config.BuildType) error {
	out, err := c.run.Run(ctx, "", c.exe, "--build", buildDir, "--config", bt.String(), "--target", "clean")
	if err != nil {
		return errors.NewExecutionError("cmake clean failed", err).WithOutput(string(out))
	}
	return nil
}

// Install copies build artifacts from buildDir into prefix.
func (c *Cmake) Install(ctx context.Context, buildDir string, bt config.BuildType, prefix string) error {
	args := []string{"--install", buildDir, "--config", bt.String()}
	if prefix != "" {
		args = append(args, "--prefix", prefix)
	}

	out, err := c.run.Run(ctx, "", c.exe, args...)
	if err != nil {
		return errors.NewExecutionError("cmake install failed", err).WithOutput(string(out))
	}
	return nil
}
