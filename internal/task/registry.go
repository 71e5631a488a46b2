package task

import (
	"sort"
	"strings"
	"sync"

	"github.com/mo2build/mob/internal/errors"
)

// AliasAllTasks is the reserved alias expanding to every builtin task. It
// cannot be redefined from configuration.
const AliasAllTasks = "super"

// Registry is the task catalog. Every task is addressable by its canonical
// name or any alternate; both namespaces share one global uniqueness rule.
// Configuration-defined aliases live here too, next to the reserved super
// alias, so scope resolution has a single place to ask.
type Registry struct {
	mu      sync.RWMutex
	tasks   map[string]*Task   // canonical name -> descriptor
	names   map[string]string  // any name -> canonical name
	aliases map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:   map[string]*Task{},
		names:   map[string]string{},
		aliases: map[string][]string{},
	}
}

// Register adds a task descriptor. The canonical name and every alternate
// must be new to the registry and the group must be positive.
func (r *Registry) Register(t *Task) error {
	if t.Name == "" {
		return errors.NewValidationError("task name cannot be empty").WithField("name")
	}
	if t.Group < 1 {
		return errors.NewValidationError("task group must be positive").
			WithField(t.Name).WithValue(t.Group)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range t.AllNames() {
		if existing, ok := r.names[name]; ok {
			return errors.NewValidationError("task name already registered for " + existing).
				WithField("name").WithValue(name)
		}
	}

	r.tasks[t.Name] = t
	for _, name := range t.AllNames() {
		r.names[name] = t.Name
	}
	return nil
}

// RegisterExtra adds a custom task for a name that appeared in a
// configuration file but matches nothing known. Custom tasks are plain
// source repositories in the plugin group. Names that already resolve are
// left alone.
func (r *Registry) RegisterExtra(name string) error {
	r.mu.RLock()
	_, isTask := r.names[name]
	_, isAlias := r.aliases[name]
	r.mu.RUnlock()
	if isTask || isAlias || name == AliasAllTasks {
		return nil
	}

	return r.Register(&Task{
		Name:  name,
		Group: pluginGroup,
		Kind:  KindSource,
	})
}

// RegisterAlias defines a configuration alias. The reserved super alias
// cannot be redefined.
func (r *Registry) RegisterAlias(name string, members []string) error {
	if name == AliasAllTasks {
		return errors.NewValidationError("alias name is reserved").
			WithField("alias").WithValue(name)
	}
	if name == "" {
		return errors.NewValidationError("alias name cannot be empty").WithField("alias")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = append([]string(nil), members...)
	return nil
}

// Canonical resolves any registered spelling to the canonical task name.
func (r *Registry) Canonical(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.names[name]
	return canonical, ok
}

// Get returns the descriptor for any registered spelling of a task name.
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.tasks[canonical], true
}

// MatchableNames returns every registered name, canonical and alternate,
// sorted. Globs match against this set.
func (r *Registry) MatchableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Alias returns the member list for an alias name. The reserved super alias
// expands to the builtin tasks; it shadows any task spelled the same.
func (r *Registry) Alias(name string) ([]string, bool) {
	if name == AliasAllTasks {
		return r.Builtins(), true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.aliases[name]
	return members, ok
}

// Builtins returns the canonical names of every builtin task, sorted.
func (r *Registry) Builtins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, t := range r.tasks {
		if t.Builtin {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Tasks returns every descriptor ordered by group, then by name.
func (r *Registry) Tasks() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Group != tasks[j].Group {
			return tasks[i].Group < tasks[j].Group
		}
		return tasks[i].Name < tasks[j].Name
	})
	return tasks
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// shortName strips the repository prefix shared by the organization's
// sub-projects, so modorganizer-uibase also answers to uibase.
func shortName(name string) (string, bool) {
	short := strings.TrimPrefix(name, "modorganizer-")
	return short, short != name
}
