package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inisCmd = &cobra.Command{
	Use:   "inis",
	Short: "Show the configuration files in load order",
	Long: `Show the configuration files that were found and loaded, in load
order. Later files override earlier ones.`,
	Args: cobra.NoArgs,
	RunE: runInis,
}

func init() {
	rootCmd.AddCommand(inisCmd)
}

func runInis(cmd *cobra.Command, args []string) error {
	env, err := setup(persistentEntries(cmd.Flags()))
	if err != nil {
		return err
	}
	defer env.Close()

	w := cmd.OutOrStdout()
	if len(env.files) == 0 {
		fmt.Fprintln(w, "No configuration files loaded")
		return nil
	}
	for _, file := range env.files {
		fmt.Fprintln(w, file)
	}
	return nil
}
