package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mo2build/mob/internal/overlap"
	"github.com/mo2build/mob/internal/scheduler"
)

var (
	successColor = lipgloss.Color("#10B981") // Green
	errorColor   = lipgloss.Color("#F87171") // Red
	warningColor = lipgloss.Color("#F59E0B") // Amber
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray

	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

// renderReport formats the run summary: one line per task with its outcome
// and duration, then any install tree overlaps the watcher saw.
func renderReport(result *scheduler.RunResult, overlaps []overlap.FileOverlap) string {
	var sb strings.Builder

	sb.WriteString("\n")
	if result.OK() {
		sb.WriteString(titleStyle.Render("build finished in " + formatDuration(result.Duration())))
	} else {
		sb.WriteString(titleStyle.Render("build failed after " + formatDuration(result.Duration())))
	}
	sb.WriteString("\n")

	for _, name := range result.Succeeded {
		line := fmt.Sprintf("  ✓ %s (%s)", name, formatDuration(result.TaskDuration(name)))
		sb.WriteString(successStyle.Render(line))
		sb.WriteString("\n")
	}
	for _, failure := range result.Failed {
		line := fmt.Sprintf("  ✗ %s: %v", failure.Name, failure.Reason)
		sb.WriteString(errorStyle.Render(line))
		sb.WriteString("\n")
	}
	for _, name := range result.Aborted {
		sb.WriteString(mutedStyle.Render("  - " + name + " (aborted)"))
		sb.WriteString("\n")
	}

	if len(overlaps) > 0 {
		sb.WriteString(warningStyle.Render("  install tree overlaps:"))
		sb.WriteString("\n")
		for _, o := range overlaps {
			line := fmt.Sprintf("    %s: %s", o.RelativePath, strings.Join(o.Tasks, ", "))
			sb.WriteString(warningStyle.Render(line))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// formatDuration trims a duration for display: millisecond precision below
// a second, tenths above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second / 10).String()
}
