package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OptionRow is one section/key = value triple for display.
type OptionRow struct {
	Section string
	Key     string
	Value   string
}

// MergedView flattens the store into display rows: the last written value
// per section and key, across all layers in resolution order. Task entries
// keep their scope in the section column (tasks.super, tasks.installer_*),
// mirroring how they are written in files.
//
// The transifex API key is never shown.
func MergedView(store *Store) []OptionRow {
	type cell struct{ section, key string }
	merged := map[cell]any{}

	for _, layer := range store.Layers() {
		for _, entry := range layer.Entries {
			section := entry.Section
			if section == SectionTask && entry.Scope.Kind() != ScopeBase {
				section = SectionTasks + "." + entry.Scope.Pattern
			}
			merged[cell{section, entry.Key}] = entry.Value
		}
	}

	rows := make([]OptionRow, 0, len(merged))
	for c, value := range merged {
		display := formatValue(value)
		if c.section == SectionTransifex && c.key == "key" && display != "" {
			display = "[hidden]"
		}
		rows = append(rows, OptionRow{Section: c.section, Key: c.key, Value: display})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Section != rows[j].Section {
			return rows[i].Section < rows[j].Section
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]string:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(v))
		for _, key := range keys {
			parts = append(parts, key+"="+v[key])
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(v))
		for _, key := range keys {
			parts = append(parts, key+"="+formatValue(v[key]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", value)
	}
}
