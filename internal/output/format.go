// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todoctl/internal/service"
)

// FormatTask formats a task line.
// Format: "{#ID:>5}  {[STATUS]:<13}  {TITLE}\n"
func FormatTask(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%5s  %-13s  %s\n", fmt.Sprintf("#%d", task.ID), "["+string(task.Status)+"]", normalizeTitle(task.Title))
}

// FormatTaskDetail formats a task followed by its description, indented by
// seven spaces. Empty descriptions print nothing extra.
func FormatTaskDetail(w io.Writer, task service.Task) {
	FormatTask(w, task)
	desc := strings.TrimSpace(task.Description)
	if desc == "" {
		return
	}
	for _, line := range strings.Split(desc, "\n") {
		fmt.Fprintf(w, "       %s\n", strings.TrimRight(line, "\r"))
	}
}

// FormatSession formats the current identity for whoami.
func FormatSession(w io.Writer, s service.Session) {
	if !s.IsAuthenticated {
		fmt.Fprintln(w, "not logged in")
		return
	}
	fmt.Fprintf(w, "logged in as %s\n", s.Username)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
