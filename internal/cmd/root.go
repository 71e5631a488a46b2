// Package cmd wires the CLI: flag parsing, configuration loading and the
// subcommands. Every subcommand goes through setup, which assembles the
// layered configuration, the task registry and the logger.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mob",
	Short: "ModOrganizer build orchestrator",
	Long: `Mob builds ModOrganizer 2 and its components from source: it clones or
updates every repository, configures and builds each one in dependency
order, and assembles the install tree.

Configuration is layered. Ascending priority: built-in defaults, the
mob.yaml next to the executable, files listed in MOBINI, a mob.yaml in
the current directory, --ini files, MOB_* environment variables and
--set assignments. Use --no-default-inis to skip the automatic files
and load only what --ini names.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// Persistent flags, shared by every subcommand.
var (
	iniFiles      []string
	noDefaultInis bool
	dryRun        bool
	logLevel      int
	fileLogLevel  int
	logFile       string
	destination   string
	setValues     []string
)

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringArrayVarP(&iniFiles, "ini", "i", nil, "Additional configuration file (repeatable, loaded in order)")
	pf.BoolVar(&noDefaultInis, "no-default-inis", false, "Skip the default configuration files, only use --ini")
	pf.BoolVar(&dryRun, "dry", false, "Print external commands instead of running them")
	pf.IntVarP(&logLevel, "log-level", "l", 3, "Console log level, 0 (silent) to 6 (dump)")
	pf.IntVar(&fileLogLevel, "file-log-level", 5, "Log file level, 0 (silent) to 6 (dump)")
	pf.StringVar(&logFile, "log-file", "mob.log", "Log file, relative paths resolve against the prefix")
	pf.StringVarP(&destination, "destination", "d", "", "Prefix directory for everything mob produces")
	pf.StringArrayVarP(&setValues, "set", "s", nil, "Override an option: [scope:]section/key=value (repeatable)")
}
