package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bargainbliss/linkbot/internal/core/messages"
)

const templatePreviewWidth = 60

// templateTable renders catalog entries as an ASCII table.
func templateTable(entries []messages.Entry) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Source", "Template"})

	for _, entry := range entries {
		source := "default"
		if entry.Overridden {
			source = "override"
		}
		t.AppendRow(table.Row{entry.Key, source, previewTemplate(entry.Template)})
	}

	return t.Render()
}

// previewTemplate flattens a template to one truncated line.
func previewTemplate(template string) string {
	flat := strings.Join(strings.Fields(template), " ")
	if len(flat) <= templatePreviewWidth {
		return flat
	}
	return flat[:templatePreviewWidth-3] + "..."
}
