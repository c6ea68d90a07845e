package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bargainbliss/linkbot/internal/core/messages"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, format)

	format, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestFormatTemplatesTable(t *testing.T) {
	entries := []messages.Entry{
		{Key: "start", Template: "Welcome!"},
		{Key: "tips", Template: "Custom tips", Overridden: true},
	}

	rendered, err := FormatTemplates(FormatTable, entries)
	require.NoError(t, err)

	assert.Contains(t, rendered, "start")
	assert.Contains(t, rendered, "default")
	assert.Contains(t, rendered, "override")
}

func TestFormatTemplatesJSON(t *testing.T) {
	entries := []messages.Entry{
		{Key: "start", Template: "Welcome!"},
	}

	rendered, err := FormatTemplates(FormatJSON, entries)
	require.NoError(t, err)

	var decoded []messages.Entry
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "start", decoded[0].Key)
}

func TestPreviewTemplateTruncatesAndFlattens(t *testing.T) {
	preview := previewTemplate("line one\nline two")
	assert.Equal(t, "line one line two", preview)

	long := strings.Repeat("x", templatePreviewWidth+10)
	preview = previewTemplate(long)
	assert.Len(t, preview, templatePreviewWidth)
	assert.True(t, strings.HasSuffix(preview, "..."))
}
