package config

import (
	"sort"
)

// Layer priorities, ascending. Later layers override earlier ones; layers
// sharing a priority (several --ini files, say) apply in the order they were
// added.
const (
	// PriorityDefaults is the built-in defaults layer.
	PriorityDefaults = iota
	// PriorityPrimary is the configuration file next to the executable.
	PriorityPrimary
	// PriorityEnvFiles covers files listed in the MOBINI environment variable.
	PriorityEnvFiles
	// PriorityWorkingDir is the optional file in the current directory.
	PriorityWorkingDir
	// PriorityFlagFiles covers files passed with --ini.
	PriorityFlagFiles
	// PriorityEnv covers MOB_* environment variable overrides.
	PriorityEnv
	// PrioritySet covers --set and other command line overrides.
	PrioritySet
)

// Entry is a single configuration value from one layer. Scope is only
// meaningful for the task section; every other section applies globally.
type Entry struct {
	Scope   Scope
	Section string
	Key     string
	Value   any
}

// Layer is an ordered list of entries from one source. Entry order is the
// declaration order in that source, which breaks ties between entries of
// equal scope specificity.
type Layer struct {
	// Source names where the layer came from, for error messages: the file
	// path, "defaults", "environment" or "command line".
	Source   string
	Priority int
	Entries  []Entry
}

// Store holds every loaded layer. Layers resolve in ascending priority;
// insertion order breaks priority ties.
type Store struct {
	layers []Layer
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a layer to the store.
func (s *Store) Add(layer Layer) {
	s.layers = append(s.layers, layer)
}

// Layers returns the layers sorted ascending by priority, preserving
// insertion order within a priority.
func (s *Store) Layers() []Layer {
	sorted := make([]Layer, len(s.layers))
	copy(sorted, s.layers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

// Sources returns each layer's source in resolution order.
func (s *Store) Sources() []string {
	layers := s.Layers()
	sources := make([]string, 0, len(layers))
	for _, layer := range layers {
		sources = append(sources, layer.Source)
	}
	return sources
}

// AliasTable merges the aliases sections of all layers, last write winning
// per alias name. It runs before task registration because scope resolution
// needs the aliases.
func (s *Store) AliasTable() map[string][]string {
	table := map[string][]string{}
	for _, layer := range s.Layers() {
		for _, entry := range layer.Entries {
			if entry.Section != SectionAliases {
				continue
			}
			members, err := coerceValue(entry.Value, kindStringList)
			if err != nil {
				// Reported properly during resolution.
				continue
			}
			table[entry.Key] = members.([]string)
		}
	}
	return table
}

// FileTaskScopes returns the distinct task scope patterns declared in
// file-backed layers, in declaration order. Exact names among them that
// match no known task declare new tasks.
func (s *Store) FileTaskScopes() []string {
	seen := map[string]bool{}
	var scopes []string
	for _, layer := range s.Layers() {
		if layer.Priority > PriorityFlagFiles {
			continue
		}
		for _, entry := range layer.Entries {
			if entry.Section != SectionTask || entry.Scope.Kind() == ScopeBase {
				continue
			}
			if !seen[entry.Scope.Pattern] {
				seen[entry.Scope.Pattern] = true
				scopes = append(scopes, entry.Scope.Pattern)
			}
		}
	}
	return scopes
}
