package config

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mo2build/mob/internal/errors"
)

// Resolved is the final configuration after every layer has been applied:
// the singleton sections plus one TaskSettings per registered task.
type Resolved struct {
	Global    GlobalConfig
	Cmake     CmakeConfig
	Tools     ToolsConfig
	Transifex TransifexConfig
	Versions  VersionsConfig
	Paths     PathsConfig
	Aliases   map[string][]string

	tasks map[string]TaskSettings
}

// Task returns the resolved settings for a canonical task name.
func (r *Resolved) Task(name string) (TaskSettings, bool) {
	settings, ok := r.tasks[name]
	return settings, ok
}

// TaskNames returns the canonical names of every resolved task, sorted.
func (r *Resolved) TaskNames() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Warning is a non-fatal finding from resolution, typically an unknown key.
type Warning struct {
	Source  string
	Key     string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Source, w.Key, w.Message)
}

// Resolve applies every layer in the store, in ascending priority, and
// returns the typed configuration.
//
// Within one layer, task entries apply in ascending scope specificity (task
// base, then aliases, then globs, then exact names) so that a narrow scope
// beats a broad one from the same file; entries of equal specificity apply
// in declaration order. Across layers, a later layer always beats an
// earlier one regardless of specificity.
//
// Values with the wrong type fail resolution with the source layer and key
// path named. Unknown keys and sections are collected as warnings.
func Resolve(store *Store, universe TaskUniverse) (*Resolved, []Warning, error) {
	res := &resolution{
		universe: universe,
		tasks:    map[string]map[string]any{},
		sections: map[string]map[string]any{},
		aliases:  map[string][]string{},
		scopes:   map[string][]string{},
	}

	for _, name := range canonicalNames(universe) {
		res.tasks[name] = map[string]any{}
	}

	for _, layer := range store.Layers() {
		if err := res.applyLayer(layer); err != nil {
			return nil, res.warnings, err
		}
	}

	resolved, err := res.decode()
	if err != nil {
		return nil, res.warnings, err
	}
	return resolved, res.warnings, nil
}

// resolution carries the merge state while layers are applied.
type resolution struct {
	universe TaskUniverse
	tasks    map[string]map[string]any
	sections map[string]map[string]any
	aliases  map[string][]string
	warnings []Warning

	// scopes caches pattern resolutions; the universe is fixed for the
	// duration of a resolve.
	scopes map[string][]string
}

func (r *resolution) applyLayer(layer Layer) error {
	var taskEntries []Entry

	for _, entry := range layer.Entries {
		switch entry.Section {
		case SectionTask:
			taskEntries = append(taskEntries, entry)
		case SectionAliases:
			if err := r.applyAlias(layer, entry); err != nil {
				return err
			}
		default:
			if err := r.applySingleton(layer, entry); err != nil {
				return err
			}
		}
	}

	// Ascending specificity; the stable sort keeps declaration order within
	// each class.
	sort.SliceStable(taskEntries, func(i, j int) bool {
		return taskEntries[i].Scope.Specificity(r.universe) < taskEntries[j].Scope.Specificity(r.universe)
	})

	for _, entry := range taskEntries {
		if err := r.applyTaskEntry(layer, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolution) applySingleton(layer Layer, entry Entry) error {
	if !knownSection(entry.Section) {
		r.warn(layer, entryPath(entry), "unknown section")
		return nil
	}

	kind, ok := keyKind(entry.Section, entry.Key)
	if !ok {
		r.warn(layer, entryPath(entry), "unknown key")
		return nil
	}

	value, err := coerceValue(entry.Value, kind)
	if err != nil {
		return errors.NewConfigError("invalid value", err).
			WithSource(layer.Source).WithKey(entryPath(entry))
	}

	section := r.sections[entry.Section]
	if section == nil {
		section = map[string]any{}
		r.sections[entry.Section] = section
	}
	section[entry.Key] = value
	return nil
}

func (r *resolution) applyAlias(layer Layer, entry Entry) error {
	members, err := coerceValue(entry.Value, kindStringList)
	if err != nil {
		return errors.NewConfigError("invalid alias", err).
			WithSource(layer.Source).WithKey(entryPath(entry))
	}
	r.aliases[entry.Key] = members.([]string)
	return nil
}

func (r *resolution) applyTaskEntry(layer Layer, entry Entry) error {
	kind, ok := keyKind(SectionTask, entry.Key)
	if !ok {
		r.warn(layer, entryPath(entry), "unknown key")
		return nil
	}

	value, err := coerceValue(entry.Value, kind)
	if err != nil {
		return errors.NewConfigError("invalid value", err).
			WithSource(layer.Source).WithKey(entryPath(entry))
	}

	if entry.Scope.Kind() == ScopeBase {
		for _, values := range r.tasks {
			values[entry.Key] = value
		}
		return nil
	}

	// A scope matching no task applies to nothing; that is not an error so
	// shared configuration files can mention optional tasks.
	for _, name := range r.resolveScope(entry.Scope) {
		if values, ok := r.tasks[name]; ok {
			values[entry.Key] = value
		}
	}
	return nil
}

func (r *resolution) resolveScope(scope Scope) []string {
	if cached, ok := r.scopes[scope.Pattern]; ok {
		return cached
	}
	resolved := scope.Resolve(r.universe)
	r.scopes[scope.Pattern] = resolved
	return resolved
}

func (r *resolution) warn(layer Layer, key, message string) {
	r.warnings = append(r.warnings, Warning{Source: layer.Source, Key: key, Message: message})
}

// decode converts the merged raw maps into the typed configuration.
func (r *resolution) decode() (*Resolved, error) {
	resolved := &Resolved{
		Aliases: r.aliases,
		tasks:   make(map[string]TaskSettings, len(r.tasks)),
	}

	targets := map[string]any{
		SectionGlobal:    &resolved.Global,
		SectionCmake:     &resolved.Cmake,
		SectionTools:     &resolved.Tools,
		SectionTransifex: &resolved.Transifex,
		SectionVersions:  &resolved.Versions,
		SectionPaths:     &resolved.Paths,
	}
	for section, target := range targets {
		if err := decodeInto(r.sections[section], target); err != nil {
			return nil, errors.NewConfigError("failed to decode section", err).WithKey(section)
		}
	}

	for name, values := range r.tasks {
		var settings TaskSettings
		if err := decodeInto(values, &settings); err != nil {
			return nil, errors.NewConfigError("failed to decode task settings", err).WithKey("tasks." + name)
		}
		resolved.tasks[name] = settings
	}

	resolved.Paths.Derive()
	return resolved, nil
}

func decodeInto(values map[string]any, target any) error {
	if values == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		DecodeHook: buildTypeHook(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}

// buildTypeHook decodes build configuration names into BuildType values.
func buildTypeHook() mapstructure.DecodeHookFuncType {
	buildType := reflect.TypeOf(BuildType(0))
	return func(from, to reflect.Type, data any) (any, error) {
		if to != buildType {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return ParseBuildType(s)
		}
		return data, nil
	}
}

// entryPath renders an entry's key path for errors and warnings.
func entryPath(e Entry) string {
	if e.Section == SectionTask && e.Scope.Kind() != ScopeBase {
		return "tasks." + e.Scope.Pattern + "/" + e.Key
	}
	return e.Section + "/" + e.Key
}

// canonicalNames derives the sorted canonical task set from the universe.
func canonicalNames(u TaskUniverse) []string {
	set := map[string]bool{}
	for _, name := range u.MatchableNames() {
		if canonical, ok := u.Canonical(name); ok {
			set[canonical] = true
		}
	}
	return sortedKeys(set)
}
