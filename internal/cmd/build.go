package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/overlap"
	"github.com/mo2build/mob/internal/scheduler"
	"github.com/mo2build/mob/internal/tools"
)

var buildCmd = &cobra.Command{
	Use:   "build [task...]",
	Short: "Build tasks in dependency order",
	Long: `Build tasks in dependency order.

Without arguments every enabled task is built. With arguments only the
selected tasks are built: canonical names, alternate names, aliases and
globs all work, and 'super' selects every ModOrganizer repository.

Examples:
  # Build everything
  mob build

  # Build a single task
  mob build uibase

  # Wipe and rebuild the usvfs libraries from scratch
  mob build -n usvfs

  # Build all installer related tasks without pulling
  mob build --no-pull 'installer*'`,
	RunE: runBuild,
}

// cleanRequest captures the clean selection of one invocation. The
// redownload and reextract file options can also force their flags on.
type cleanRequest struct {
	redownload  bool
	reextract   bool
	reconfigure bool
	rebuild     bool
	fromScratch bool
}

// flags folds the request and the global configuration into the clean
// flag set. fromScratch wins over everything else.
func (r cleanRequest) flags(g config.GlobalConfig) tools.CleanFlags {
	var flags tools.CleanFlags
	if r.redownload || g.Redownload {
		flags |= tools.CleanRedownload
	}
	if r.reextract || g.Reextract {
		flags |= tools.CleanReextract
	}
	if r.reconfigure {
		flags |= tools.CleanReconfigure
	}
	if r.rebuild {
		flags |= tools.CleanRebuild
	}
	if r.fromScratch {
		flags = tools.CleanAll
	}
	return flags
}

var (
	buildClean             cleanRequest
	buildIgnoreUncommitted bool
	buildWatchInstalls     bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	fl := buildCmd.Flags()
	fl.BoolVarP(&buildClean.redownload, "redownload", "g", false, "Delete cached downloads and download again")
	fl.BoolVarP(&buildClean.reextract, "reextract", "e", false, "Delete sources, then extract or clone again")
	fl.BoolVarP(&buildClean.reconfigure, "reconfigure", "c", false, "Delete cmake caches and configure again")
	fl.BoolVarP(&buildClean.rebuild, "rebuild", "b", false, "Delete build output and build again")
	fl.BoolVarP(&buildClean.fromScratch, "new", "n", false, "Delete everything and start from scratch (implies -g -e -c -b)")

	fl.Bool("clean-task", false, "Run the clean phase")
	fl.Bool("no-clean-task", false, "Skip the clean phase")
	fl.Bool("fetch-task", false, "Run the fetch phase")
	fl.Bool("no-fetch-task", false, "Skip the fetch phase")
	fl.Bool("build-task", false, "Run the build phase")
	fl.Bool("no-build-task", false, "Skip the build phase")

	fl.Bool("pull", false, "Pull existing repositories during fetch")
	fl.Bool("no-pull", false, "Leave existing repositories as they are")
	fl.Bool("revert-ts", false, "Revert generated .ts files before pulling")
	fl.Bool("no-revert-ts", false, "Keep local .ts changes")

	fl.BoolVar(&buildIgnoreUncommitted, "ignore-uncommitted-changes", false, "Delete git directories even when they have uncommitted changes")
	fl.BoolVar(&buildWatchInstalls, "watch-installs", false, "Watch the install tree and report tasks writing the same files")

	buildCmd.MarkFlagsMutuallyExclusive("clean-task", "no-clean-task")
	buildCmd.MarkFlagsMutuallyExclusive("fetch-task", "no-fetch-task")
	buildCmd.MarkFlagsMutuallyExclusive("build-task", "no-build-task")
	buildCmd.MarkFlagsMutuallyExclusive("pull", "no-pull")
	buildCmd.MarkFlagsMutuallyExclusive("revert-ts", "no-revert-ts")
}

func runBuild(cmd *cobra.Command, args []string) error {
	fl := cmd.Flags()

	entries := persistentEntries(fl)
	entries = append(entries, behaviorEntries(fl.Changed)...)
	selection, err := selectionEntries(args)
	if err != nil {
		return err
	}
	entries = append(entries, selection...)

	env, err := setup(entries)
	if err != nil {
		return err
	}
	defer env.Close()

	if errs := env.cfg.Validate(); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}
	if env.cfg.Paths.Prefix == "" {
		return fmt.Errorf("paths/prefix is not set, pass --destination or set it in a configuration file")
	}

	plan, err := scheduler.NewPlan(env.registry, env.cfg, args)
	if err != nil {
		return err
	}
	if plan.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to build")
		return nil
	}

	flags := buildClean.flags(env.cfg.Global)
	opts := phaseOptions(flags, fl.Changed)
	var executor scheduler.TaskExecutor = tools.NewExecutor(env.log, opts, flags)

	var watcher *overlap.Watcher
	if env.cfg.Global.WatchInstalls {
		if env.cfg.Paths.Install == "" {
			env.log.Warn("install watching needs paths/install, skipping")
		} else {
			watcher, err = overlap.New(env.log, env.cfg.Paths.Install)
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()
			executor = watcher.Executor(executor)
		}
	}

	// ^C cancels the run; the orchestrator records the interrupted tasks
	// as aborted and the report still prints.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := scheduler.NewOrchestrator(env.log).Run(ctx, plan, executor)
	if err != nil {
		return err
	}

	// The deferred Stop owns the watcher's shutdown; Overlaps is safe on a
	// running watcher, and with every task finished nothing new gets
	// attributed.
	var overlaps []overlap.FileOverlap
	if watcher != nil {
		overlaps = watcher.Overlaps()
	}

	fmt.Fprint(cmd.OutOrStdout(), renderReport(result, overlaps))
	env.log.Debug("run finished",
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"aborted", len(result.Aborted),
		"duration", result.Duration())

	if !result.OK() {
		return fmt.Errorf("%d of %d tasks did not finish", len(result.Failed)+len(result.Aborted), result.Len())
	}
	return nil
}

// phaseOptions derives the phase gates from the defaults, the clean flags
// and the explicit phase toggles. Clean runs only when something asked for
// it; fetch and build run unless switched off.
func phaseOptions(flags tools.CleanFlags, changed func(string) bool) tools.BuildOptions {
	opts := tools.DefaultBuildOptions()
	opts.Clean = flags.Any()

	if changed("clean-task") {
		opts.Clean = true
	}
	if changed("no-clean-task") {
		opts.Clean = false
	}
	if changed("fetch-task") {
		opts.Fetch = true
	}
	if changed("no-fetch-task") {
		opts.Fetch = false
	}
	if changed("build-task") {
		opts.Build = true
	}
	if changed("no-build-task") {
		opts.Build = false
	}
	return opts
}

// behaviorEntries translates the changed pull, revert-ts and safety flags
// into command line layer entries. The pair flags carry their value in
// their presence, so only changed-ness matters.
func behaviorEntries(changed func(string) bool) []config.Entry {
	var entries []config.Entry
	if changed("pull") {
		entries = append(entries, taskEntry("no_pull", false))
	}
	if changed("no-pull") {
		entries = append(entries, taskEntry("no_pull", true))
	}
	if changed("revert-ts") {
		entries = append(entries, taskEntry("revert_ts", true))
	}
	if changed("no-revert-ts") {
		entries = append(entries, taskEntry("revert_ts", false))
	}
	if changed("ignore-uncommitted-changes") {
		entries = append(entries, globalEntry("ignore_uncommitted", buildIgnoreUncommitted))
	}
	if changed("watch-installs") {
		entries = append(entries, globalEntry("watch_installs", buildWatchInstalls))
	}
	return entries
}

// selectionEntries turns an explicit task selection into configuration
// entries: disable everything, then enable each selected scope. Scoped
// entries outrank the base disable within the same layer, so the selection
// wins even for tasks a file disabled.
func selectionEntries(selectors []string) ([]config.Entry, error) {
	if len(selectors) == 0 {
		return nil, nil
	}
	entries := []config.Entry{taskEntry("enabled", false)}
	for _, sel := range selectors {
		scope, err := config.ParseScope(sel)
		if err != nil {
			return nil, err
		}
		entries = append(entries, config.Entry{
			Scope:   scope,
			Section: config.SectionTask,
			Key:     "enabled",
			Value:   true,
		})
	}
	return entries, nil
}
