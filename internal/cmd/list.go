package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mo2build/mob/internal/config"
	"github.com/mo2build/mob/internal/errors"
	"github.com/mo2build/mob/internal/task"
)

var listCmd = &cobra.Command{
	Use:   "list [task...]",
	Short: "List the known tasks",
	Long: `List the known tasks, including any the configuration files add.

Examples:
  # Every task with its alternate names
  mob list

  # Grouped by execution order
  mob list -a

  # Only the installer related tasks
  mob list -a 'installer*'

  # Aliases and their members
  mob list --aliases`,
	RunE: runList,
}

var (
	listAll     bool
	listAliases bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Group tasks by execution order")
	// No shorthand: -i belongs to the persistent --ini flag.
	listCmd.Flags().BoolVar(&listAliases, "aliases", false, "List aliases and their members")
}

func runList(cmd *cobra.Command, args []string) error {
	env, err := setup(persistentEntries(cmd.Flags()))
	if err != nil {
		return err
	}
	defer env.Close()

	w := cmd.OutOrStdout()

	if listAliases {
		aliases := env.cfg.Aliases
		if len(aliases) == 0 {
			fmt.Fprintln(w, "No aliases defined")
			return nil
		}
		names := make([]string, 0, len(aliases))
		for name := range aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s = %s\n", name, strings.Join(aliases[name], ", "))
		}
		return nil
	}

	selected, err := selectedTasks(env.registry, args)
	if err != nil {
		return err
	}

	if listAll {
		group := 0
		for _, t := range selected {
			if t.Group != group {
				group = t.Group
				fmt.Fprintf(w, "%d:\n", group)
			}
			fmt.Fprintf(w, "  %s\n", taskLine(t))
		}
		return nil
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	for _, t := range selected {
		fmt.Fprintln(w, taskLine(t))
	}
	return nil
}

// selectedTasks resolves the selectors the same way build does, or returns
// every task when there are none. Ordered by group, then name.
func selectedTasks(registry *task.Registry, selectors []string) ([]*task.Task, error) {
	if len(selectors) == 0 {
		return registry.Tasks(), nil
	}

	wanted := map[string]bool{}
	for _, sel := range selectors {
		scope, err := config.ParseScope(sel)
		if err != nil {
			return nil, err
		}
		names := scope.Resolve(registry)
		if len(names) == 0 {
			return nil, errors.NewTaskNotFoundError(sel)
		}
		for _, name := range names {
			wanted[name] = true
		}
	}

	var selected []*task.Task
	for _, t := range registry.Tasks() {
		if wanted[t.Name] {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

func taskLine(t *task.Task) string {
	if len(t.Alternates) == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, strings.Join(t.Alternates, ", "))
}
