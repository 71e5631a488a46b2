package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mo2build/mob/internal/config"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show every option and its effective value",
	Long: `Show every option with the value that survived layering: defaults,
configuration files, environment variables and command line overrides.
Secrets are hidden.`,
	Args: cobra.NoArgs,
	RunE: runOptions,
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}

func runOptions(cmd *cobra.Command, args []string) error {
	env, err := setup(persistentEntries(cmd.Flags()))
	if err != nil {
		return err
	}
	defer env.Close()

	rows := config.MergedView(env.store)

	width := 0
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Section + "/" + row.Key
		if len(names[i]) > width {
			width = len(names[i])
		}
	}

	w := cmd.OutOrStdout()
	for i, row := range rows {
		fmt.Fprintf(w, "%-*s = %s\n", width, names[i], row.Value)
	}
	return nil
}
