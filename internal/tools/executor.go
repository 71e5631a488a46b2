package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/logging"
	"github.com/mo2build/mob/internal/task"
)

// CleanFlags selects what the clean phase removes. Flags combine with
// bitwise or.
type CleanFlags uint8

const (
	// CleanRedownload discards cached downloads so fetch gets fresh ones.
	CleanRedownload CleanFlags = 1 << iota
	// CleanReextract deletes extracted trees and cloned sources.
	CleanReextract
	// CleanReconfigure deletes cmake caches so configure runs fresh.
	CleanReconfigure
	// CleanRebuild deletes build output while keeping sources and caches.
	CleanRebuild
)

// CleanAll is every clean flag at once, the --new behavior.
const CleanAll = CleanRedownload | CleanReextract | CleanReconfigure | CleanRebuild

// Has reports whether all flags in f are set.
func (c CleanFlags) Has(f CleanFlags) bool { return c&f == f }

// Any reports whether at least one flag is set.
func (c CleanFlags) Any() bool { return c != 0 }

// BuildOptions gates the three phases every task runs through. The zero
// value runs nothing.
type BuildOptions struct {
	Clean bool
	Fetch bool
	Build bool
}

// DefaultBuildOptions enables fetch and build, which is what a plain mob
// build does. Clean stays off until asked for.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{Fetch: true, Build: true}
}

// Executor runs tasks against the real external tools. It is the production
// implementation of the scheduler's task executor boundary and is safe for
// concurrent Execute calls: all per-task state lives in the call.
type Executor struct {
	log    *logging.Logger
	opts   BuildOptions
	flags  CleanFlags
	runner CommandRunner // nil builds a ProcessRunner per call
}

// NewExecutor creates an executor with the given phase gates and clean
// flags. A nil logger discards all output.
func NewExecutor(log *logging.Logger, opts BuildOptions, flags CleanFlags) *Executor {
	return NewExecutorWithRunner(log, opts, flags, nil)
}

// NewExecutorWithRunner substitutes the command runner. This is primarily
// useful for tests.
func NewExecutorWithRunner(log *logging.Logger, opts BuildOptions, flags CleanFlags, runner CommandRunner) *Executor {
	if log == nil {
		log = logging.Nop()
	}
	return &Executor{log: log, opts: opts, flags: flags, runner: runner}
}

// Execute runs the enabled phases of one task in order. The first phase
// error stops the remaining phases. Cancellation errors pass through
// unchanged so the scheduler can tell an abort from a failure; everything
// else is reported as an ExecutionError naming the task and phase.
func (e *Executor) Execute(ctx context.Context, t *task.Task, cfg *config.Resolved) error {
	if t == nil {
		return errors.NewValidationError("execute needs a task")
	}
	if cfg == nil {
		return errors.NewValidationError("execute needs a resolved configuration")
	}
	settings, ok := cfg.Task(t.Name)
	if !ok {
		return errors.NewValidationError("task has no resolved settings").
			WithField("task").WithValue(t.Name)
	}

	log := e.log.WithTask(t.Name)
	run := e.runner
	if run == nil {
		run = NewProcessRunner(log, cfg.Global.Dry)
	}
	j := newJob(t, settings, cfg, log, run)

	phases := []struct {
		name    string
		enabled bool
		run     func(context.Context) error
	}{
		{"clean", e.opts.Clean, func(ctx context.Context) error { return j.clean(ctx, e.flags) }},
		{"fetch", e.opts.Fetch, j.fetch},
		{"build", e.opts.Build, j.build},
	}

	for _, p := range phases {
		if !p.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Debug("phase started", "phase", p.name)
		if err := p.run(ctx); err != nil {
			if errors.IsAbort(err) {
				return err
			}
			return wrapPhase(err, t.Name, p.name)
		}
		log.Debug("phase finished", "phase", p.name)
	}
	return nil
}

// wrapPhase turns a phase error into an ExecutionError carrying the task
// and phase names. Errors the tool wrappers already shaped keep their
// message and output.
func wrapPhase(err error, taskName, phase string) error {
	var execErr *errors.ExecutionError
	if errors.As(err, &execErr) {
		if execErr.Task == "" {
			execErr.WithTask(taskName)
		}
		if execErr.Phase == "" {
			execErr.WithPhase(phase)
		}
		return err
	}
	return errors.NewExecutionError(phase+" failed", err).WithTask(taskName).WithPhase(phase)
}

// job carries everything one task execution needs: the descriptor, its
// resolved settings, the tool clients and a task-scoped logger.
type job struct {
	task     *task.Task
	settings config.TaskSettings
	cfg      *config.Resolved
	log      *logging.Logger
	fs       fsOps

	git      *Git
	cmake    *Cmake
	sevenz   *SevenZ
	download *Downloader
	lrelease *LRelease
	tx       *Transifex
	iscc     *ISCC
}

func newJob(t *task.Task, settings config.TaskSettings, cfg *config.Resolved, log *logging.Logger, run CommandRunner) *job {
	lrelease := cfg.Tools.LRelease
	if cfg.Paths.QtBin != "" {
		if lrelease == "" {
			lrelease = "lrelease"
		}
		lrelease = filepath.Join(cfg.Paths.QtBin, lrelease)
	}

	return &job{
		task:     t,
		settings: settings,
		cfg:      cfg,
		log:      log,
		fs:       fsOps{log: log, dry: cfg.Global.Dry},
		git:      NewGit(run, cfg.Tools.Git),
		cmake:    NewCmake(run, cfg.Tools.Cmake, cfg.Cmake),
		sevenz:   NewSevenZ(run, cfg.Tools.SevenZ),
		download: NewDownloader(log, cfg.Global.Dry),
		lrelease: NewLRelease(run, lrelease),
		tx:       NewTransifex(run, cfg.Tools.TX, cfg.Transifex.Key),
		iscc:     NewISCC(run, cfg.Tools.ISCC),
	}
}

func (j *job) clean(ctx context.Context, flags CleanFlags) error {
	switch j.task.Kind {
	case task.KindSource:
		return j.cleanSource(ctx, flags)
	case task.KindUsvfs:
		return j.cleanUsvfs(ctx, flags)
	case task.KindStylesheets:
		return j.cleanStylesheets(flags)
	case task.KindLicenses:
		return nil
	case task.KindExplorerPP:
		return j.cleanExplorerPP(flags)
	case task.KindTranslations:
		return j.cleanTranslations(flags)
	case task.KindInstaller:
		return j.cleanInstaller(ctx, flags)
	default:
		return errors.NewValidationError("unknown task kind").
			WithField("kind").WithValue(j.task.Kind.String())
	}
}

func (j *job) fetch(ctx context.Context) error {
	switch j.task.Kind {
	case task.KindSource:
		return j.fetchSource(ctx)
	case task.KindUsvfs:
		return j.fetchUsvfs(ctx)
	case task.KindStylesheets:
		return j.fetchStylesheets(ctx)
	case task.KindLicenses:
		return nil
	case task.KindExplorerPP:
		return j.fetchExplorerPP(ctx)
	case task.KindTranslations:
		return j.fetchTranslations(ctx)
	case task.KindInstaller:
		return j.fetchInstaller(ctx)
	default:
		return errors.NewValidationError("unknown task kind").
			WithField("kind").WithValue(j.task.Kind.String())
	}
}

func (j *job) build(ctx context.Context) error {
	switch j.task.Kind {
	case task.KindSource:
		return j.buildSource(ctx)
	case task.KindUsvfs:
		return j.buildUsvfs(ctx)
	case task.KindStylesheets:
		return j.buildStylesheets()
	case task.KindLicenses:
		return j.buildLicenses()
	case task.KindExplorerPP:
		return j.buildExplorerPP()
	case task.KindTranslations:
		return j.buildTranslations(ctx)
	case task.KindInstaller:
		return j.buildInstaller(ctx)
	default:
		return errors.NewValidationError("unknown task kind").
			WithField("kind").WithValue(j.task.Kind.String())
	}
}

// requirePath guards phases that need a configured path. Most paths derive
// from paths/prefix, so the message points there.
func requirePath(value, key string) (string, error) {
	if value == "" {
		return "", errors.NewExecutionError(
			fmt.Sprintf("%s is not configured, set paths/prefix or %s", key, key), nil)
	}
	return value, nil
}

// sourcePath is the checkout directory of a source task.
func (j *job) sourcePath() (string, error) {
	build, err := requirePath(j.cfg.Paths.Build, "paths/build")
	if err != nil {
		return "", err
	}
	return filepath.Join(build, j.task.Name), nil
}

// gitURL is the clone URL of a source task's repository.
func (j *job) gitURL() string {
	return j.settings.GitURLPrefix + j.settings.MOOrg + "/" + j.task.Name + ".git"
}

// checkSafeToDelete refuses to delete a checkout with local work unless the
// run was told to ignore it.
func (j *job) checkSafeToDelete(ctx context.Context, dir string) error {
	if j.cfg.Global.IgnoreUncommitted || !IsRepo(dir) {
		return nil
	}

	dirty, err := j.git.HasUncommittedChanges(ctx, dir)
	if err != nil {
		return err
	}
	if dirty {
		return errors.NewExecutionError(
			fmt.Sprintf("%s has uncommitted changes, use --ignore-uncommitted-changes to delete anyway", dir), nil)
	}

	stashed, err := j.git.HasStashedChanges(ctx, dir)
	if err != nil {
		return err
	}
	if stashed {
		return errors.NewExecutionError(
			fmt.Sprintf("%s has stashed changes, use --ignore-uncommitted-changes to delete anyway", dir), nil)
	}
	return nil
}
