package config

import (
	"testing"
)

func findRow(rows []OptionRow, section, key string) (OptionRow, bool) {
	for _, row := range rows {
		if row.Section == section && row.Key == key {
			return row, true
		}
	}
	return OptionRow{}, false
}

func TestMergedView(t *testing.T) {
	t.Run("last layer wins per cell", func(t *testing.T) {
		primary := mustLayer(t, `
global:
  output_log_level: 4
  dry: false
`, "mob.yaml", PriorityPrimary)
		set := Layer{Source: "command line", Priority: PrioritySet, Entries: []Entry{
			{Scope: BaseScope(), Section: SectionGlobal, Key: "output_log_level", Value: 2},
		}}

		rows := MergedView(storeOf(set, primary))

		row, ok := findRow(rows, SectionGlobal, "output_log_level")
		if !ok {
			t.Fatal("global/output_log_level missing from view")
		}
		if row.Value != "2" {
			t.Errorf("output_log_level = %q, want 2", row.Value)
		}
		if row, ok := findRow(rows, SectionGlobal, "dry"); !ok || row.Value != "false" {
			t.Errorf("dry row wrong: %+v", row)
		}
	})

	t.Run("scoped task entries keep their pattern", func(t *testing.T) {
		layer := mustLayer(t, `
task:
  no_pull: false
tasks:
  super:
    no_pull: true
  "installer_*":
    enabled: false
`, "mob.yaml", PriorityPrimary)

		rows := MergedView(storeOf(layer))

		if row, ok := findRow(rows, SectionTask, "no_pull"); !ok || row.Value != "false" {
			t.Errorf("base task row wrong: %+v", row)
		}
		if row, ok := findRow(rows, "tasks.super", "no_pull"); !ok || row.Value != "true" {
			t.Errorf("tasks.super row wrong: %+v", row)
		}
		if row, ok := findRow(rows, "tasks.installer_*", "enabled"); !ok || row.Value != "false" {
			t.Errorf("tasks.installer_* row wrong: %+v", row)
		}
	})

	t.Run("transifex key is hidden", func(t *testing.T) {
		layer := mustLayer(t, `
transifex:
  key: super-secret-token
  team: team-55745
`, "mob.yaml", PriorityPrimary)

		rows := MergedView(storeOf(layer))

		if row, ok := findRow(rows, SectionTransifex, "key"); !ok || row.Value != "[hidden]" {
			t.Errorf("transifex key should be hidden, got %+v", row)
		}
		if row, ok := findRow(rows, SectionTransifex, "team"); !ok || row.Value != "team-55745" {
			t.Errorf("team should display normally, got %+v", row)
		}
	})

	t.Run("empty transifex key stays empty", func(t *testing.T) {
		layer := Layer{Source: "defaults", Priority: PriorityDefaults, Entries: []Entry{
			{Scope: BaseScope(), Section: SectionTransifex, Key: "key", Value: ""},
		}}

		rows := MergedView(storeOf(layer))
		if row, ok := findRow(rows, SectionTransifex, "key"); !ok || row.Value != "" {
			t.Errorf("unset key should display empty, got %+v", row)
		}
	})

	t.Run("rows are sorted", func(t *testing.T) {
		rows := MergedView(storeOf(DefaultsLayer()))
		for i := 1; i < len(rows); i++ {
			prev, cur := rows[i-1], rows[i]
			if prev.Section > cur.Section || (prev.Section == cur.Section && prev.Key > cur.Key) {
				t.Fatalf("rows out of order: %v before %v", prev, cur)
			}
		}
	})
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "master", "master"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"string list", []string{"a", "b"}, "a, b"},
		{"any list", []any{"a", 2}, "a, 2"},
		{"string map", map[string]string{"b": "2", "a": "1"}, "a=1, b=2"},
		{"any map", map[string]any{"b": 2, "a": "1"}, "a=1, b=2"},
		{"fallback", 1.5, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.value); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
