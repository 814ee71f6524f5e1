package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	releaseerrors "github.com/strapi/strapi-sub004/pkg/errors"
)

var statusStyles = map[release.Status]lipgloss.Style{
	release.StatusEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	release.StatusReady:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	release.StatusBlocked: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	release.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	release.StatusDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
}

var entryStatusStyles = map[content.DisplayStatus]lipgloss.Style{
	content.DisplayDraft:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	content.DisplayPublished: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	content.DisplayModified:  lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
}

var (
	errorTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func supportsColor(writer any) bool {
	if f, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func formatStatus(w io.Writer, status release.Status) string {
	if style, ok := statusStyles[status]; ok && supportsColor(w) {
		return style.Render(status.String())
	}
	return status.String()
}

func formatEntryStatus(w io.Writer, status content.DisplayStatus) string {
	if status == "" {
		return "missing"
	}
	if style, ok := entryStatusStyles[status]; ok && supportsColor(w) {
		return style.Render(string(status))
	}
	return string(status)
}

// formatInstant prints an instant in UTC, followed by its wall-clock time in
// tz when one is set.
func formatInstant(at *time.Time, tz string) string {
	if at == nil {
		return "-"
	}
	out := at.UTC().Format(time.RFC3339)
	if tz == "" {
		return out
	}
	if loc, err := release.LoadTimezone(tz); err == nil {
		out += fmt.Sprintf(" (%s %s)", at.In(loc).Format("2006-01-02 15:04"), tz)
	}
	return out
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error {
	return e.cause
}

// renderError prints any error a command returned. Domain errors show their
// code and context so the user can tell which release, action or content
// type was involved.
func renderError(w io.Writer, err error) {
	if err == nil {
		return
	}
	color := supportsColor(w)
	title := func(s string) string {
		if color {
			return errorTitleStyle.Render(s)
		}
		return s
	}

	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		fmt.Fprintln(w, title(fmt.Sprintf("Failed to %s: %s", cmdErr.operation, cmdErr.context)))
		renderCause(w, cmdErr.cause)
		if cmdErr.suggestion != "" {
			hint := "Suggestion: " + cmdErr.suggestion
			if color {
				hint = hintStyle.Render(hint)
			}
			fmt.Fprintf(w, "\n%s\n", hint)
		}
		return
	}

	fmt.Fprintln(w, title("Error"))
	renderCause(w, err)
}

func renderCause(w io.Writer, err error) {
	var domainErr *release.DomainError
	var violations *content.ValidationErrors
	var validationErr *releaseerrors.ValidationError
	switch {
	case errors.As(err, &domainErr):
		fmt.Fprintf(w, "  %s: %s\n", domainErr.Code, domainErr.Message)
		keys := make([]string, 0, len(domainErr.Context))
		for k := range domainErr.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %v\n", k, domainErr.Context[k])
		}
		if domainErr.Cause != nil {
			fmt.Fprintf(w, "  cause: %v\n", domainErr.Cause)
		}
	case errors.As(err, &violations):
		fmt.Fprintf(w, "  entry %s/%s failed validation\n", violations.ContentType, violations.DocumentID)
		for _, v := range violations.Violations {
			fmt.Fprintf(w, "    %s (%s): %s\n", v.Path, v.Rule, v.Message)
		}
	case errors.As(err, &validationErr):
		fmt.Fprintf(w, "  %s\n", validationErr.Error())
	default:
		fmt.Fprintf(w, "  %v\n", err)
	}
}
