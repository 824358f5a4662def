package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// With debug set, the underlying cause and details are appended.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	he, ok := As(err)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(he.Message)
	sb.WriteString("\n")

	if he.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(he.Suggestion)
		sb.WriteString("\n")
	}

	if debug {
		if he.Cause != nil {
			fmt.Fprintf(&sb, "\nCause: %v\n", he.Cause)
		}
		for k, v := range he.Details {
			fmt.Fprintf(&sb, "  %s: %s\n", k, v)
		}
	}

	fmt.Fprintf(&sb, "\n[%s]", he.Code)
	return sb.String()
}

// FormatForCLI formats an error for concise terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	he, ok := As(err)
	if !ok {
		he = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", he.Message)
	if he.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", he.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", he.Code)
	return sb.String()
}

// jsonError is the wire representation used by the HTTP API and MCP tools.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	he, ok := As(err)
	if !ok {
		he = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       he.Code,
		Message:    he.Message,
		Category:   string(he.Category),
		Details:    he.Details,
		Suggestion: he.Suggestion,
		Retryable:  he.Retryable,
	}
	if he.Cause != nil {
		je.Cause = he.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs flattens an error into slog key-value pairs.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	he, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{"error_code", he.Code, "error", he.Message}
	if he.Cause != nil {
		attrs = append(attrs, "cause", he.Cause.Error())
	}
	for k, v := range he.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
