package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *InfoResponseCLI:
		return formatInfoHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatInfoHuman(r *InfoResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Store:   %s", r.StoreType)
	if r.StorePath != "" {
		fmt.Fprintf(&b, " (%s)", r.StorePath)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Quads:   %d\n", r.Quads)
	if r.Version != "" {
		fmt.Fprintf(&b, "Updated: %s\n", r.Version)
	}

	fmt.Fprintf(&b, "\nGraphs (%d):\n", len(r.Graphs))
	for _, g := range r.Graphs {
		fmt.Fprintf(&b, "  %-50s %8d", g.Name, g.Triples)
		if g.Version != "" {
			fmt.Fprintf(&b, "  %s", g.Version)
		}
		b.WriteString("\n")
	}

	if len(r.Prefixes) > 0 {
		fmt.Fprintf(&b, "\nPrefixes (%d):\n", len(r.Prefixes))
		for _, p := range r.Prefixes {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTime renders a graph version, empty when untracked.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
