package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mo2build/mob/internal/errors"
)

// LoadFile reads a YAML configuration file into a layer. Entries keep the
// file's declaration order; later entries beat earlier ones of the same
// specificity during resolution.
//
// The file is a mapping of sections. The tasks section maps scope patterns
// to per-task values; every other section maps keys to values directly:
//
//	task:
//	  mo_branch: master
//	tasks:
//	  super:
//	    no_pull: true
//	  "installer_*":
//	    enabled: false
func LoadFile(path string, priority int) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, errors.NewConfigError("failed to read configuration file", err).WithSource(path)
	}
	return parseLayer(data, path, priority)
}

func parseLayer(data []byte, source string, priority int) (Layer, error) {
	layer := Layer{Source: source, Priority: priority}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Layer{}, errors.NewConfigError("invalid YAML", err).WithSource(source)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// Empty file.
		return layer, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Layer{}, errors.NewConfigError("configuration root must be a mapping of sections", nil).WithSource(source)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		sectionNode, valueNode := root.Content[i], root.Content[i+1]
		section := sectionNode.Value

		if valueNode.Kind != yaml.MappingNode {
			return Layer{}, errors.NewConfigError(
				fmt.Sprintf("section %q must be a mapping (line %d)", section, valueNode.Line), nil).
				WithSource(source)
		}

		if section == SectionTasks {
			if err := parseTasksSection(&layer, valueNode, source); err != nil {
				return Layer{}, err
			}
			continue
		}

		if err := parseSectionBody(&layer, BaseScope(), section, valueNode, source); err != nil {
			return Layer{}, err
		}
	}

	return layer, nil
}

// parseTasksSection handles the tasks mapping, whose keys are scope patterns
// rather than configuration keys.
func parseTasksSection(layer *Layer, node *yaml.Node, source string) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		scopeNode, bodyNode := node.Content[i], node.Content[i+1]

		scope, err := ParseScope(scopeNode.Value)
		if err != nil {
			return errors.NewConfigError(
				fmt.Sprintf("invalid task scope %q (line %d)", scopeNode.Value, scopeNode.Line), err).
				WithSource(source)
		}
		if scope.Kind() == ScopeBase {
			return errors.NewConfigError(
				fmt.Sprintf("empty task scope (line %d); use the task section for defaults", scopeNode.Line), nil).
				WithSource(source)
		}
		if bodyNode.Kind != yaml.MappingNode {
			return errors.NewConfigError(
				fmt.Sprintf("tasks.%s must be a mapping (line %d)", scopeNode.Value, bodyNode.Line), nil).
				WithSource(source)
		}

		if err := parseSectionBody(layer, scope, SectionTask, bodyNode, source); err != nil {
			return err
		}
	}
	return nil
}

func parseSectionBody(layer *Layer, scope Scope, section string, node *yaml.Node, source string) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		var value any
		if err := valueNode.Decode(&value); err != nil {
			return errors.NewConfigError(
				fmt.Sprintf("invalid value for %s/%s (line %d)", section, keyNode.Value, valueNode.Line), err).
				WithSource(source)
		}

		layer.Entries = append(layer.Entries, Entry{
			Scope:   scope,
			Section: section,
			Key:     keyNode.Value,
			Value:   value,
		})
	}
	return nil
}

// EnvLayer scans MOB_* environment variables into a layer. Variable names
// follow MOB_<SECTION>_<KEY>, with the key lowercased: MOB_TASK_NO_PULL
// sets task/no_pull. Variables whose section is not recognized are skipped
// so unrelated MOB_* variables stay quiet.
func EnvLayer(environ []string) Layer {
	layer := Layer{Source: "environment", Priority: PriorityEnv}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "MOB_") {
			continue
		}

		section, key, ok := strings.Cut(name[len("MOB_"):], "_")
		if !ok {
			continue
		}
		section = strings.ToLower(section)
		key = strings.ToLower(key)
		if key == "" || !knownSection(section) || section == SectionAliases {
			continue
		}

		layer.Entries = append(layer.Entries, Entry{
			Section: section,
			Key:     key,
			Value:   value,
		})
	}

	// Environment iteration order is not specified; sort for determinism.
	sort.SliceStable(layer.Entries, func(i, j int) bool {
		a, b := layer.Entries[i], layer.Entries[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return a.Key < b.Key
	})

	return layer
}

// ParseSet parses a --set argument of the form [scope:]section/key=value.
// The scope prefix selects tasks and is only valid with the task section:
//
//	--set global/dry=true
//	--set task/no_pull=true
//	--set super:task/no_pull=true
//	--set installer_*:task/enabled=false
func ParseSet(spec string) (Entry, error) {
	left, value, ok := strings.Cut(spec, "=")
	if !ok {
		return Entry{}, errors.NewValidationError("expected [scope:]section/key=value").
			WithField("set").WithValue(spec)
	}

	head, key, ok := strings.Cut(left, "/")
	if !ok || key == "" {
		return Entry{}, errors.NewValidationError("expected [scope:]section/key=value").
			WithField("set").WithValue(spec)
	}

	scopePattern, section, scoped := strings.Cut(head, ":")
	if !scoped {
		section = head
		scopePattern = ""
	}
	if section == "" {
		return Entry{}, errors.NewValidationError("missing section").
			WithField("set").WithValue(spec)
	}
	if scopePattern != "" && section != SectionTask {
		return Entry{}, errors.NewValidationError("a task scope requires the task section").
			WithField("set").WithValue(spec)
	}

	scope, err := ParseScope(scopePattern)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Scope:   scope,
		Section: section,
		Key:     key,
		Value:   value,
	}, nil
}
