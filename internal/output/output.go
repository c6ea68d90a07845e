// Package output renders reply template listings for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bargainbliss/linkbot/internal/core/messages"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// FormatTemplates renders catalog entries using the requested format.
func FormatTemplates(format Format, entries []messages.Entry) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	return templateTable(entries), nil
}
