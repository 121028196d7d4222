package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/solrdex/internal/catalog"
	"github.com/hyperjump/solrdex/internal/document"
)

func samplePayload() document.Payload {
	return document.Payload{
		"id":              "Post 1",
		"type":            []string{"Post", "BaseClass"},
		"title_text":      "Title One",
		"category_ids_im": []string{"3", "14"},
		"body_text":       strings.Repeat("x", 200),
	}
}

func TestWritePreview_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, []document.Payload{samplePayload()}, OutputJSON))
	var decoded []map[string]any
	require.NoError(t, json.NewDecoder(&buf).Decode(&decoded), "output is not valid JSON")
	require.Len(t, decoded, 1)
	assert.Equal(t, "Post 1", decoded[0]["id"])
}

func TestWritePreview_text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePreview(&buf, []document.Payload{samplePayload()}, OutputText))
	out := buf.String()
	for _, sub := range []string{"1 document(s)", "ID: Post 1", "Type: Post, BaseClass", "title_text", "Title One", "[3, 14]", "..."} {
		assert.Contains(t, out, sub)
	}
	assert.Less(t, strings.Index(out, "body_text"), strings.Index(out, "title_text"), "fields should be sorted")
	assert.NotContains(t, out, strings.Repeat("x", 200), "long values should be truncated")
}

func TestWriteTypes(t *testing.T) {
	types := []catalog.TypeInfo{{Name: "Post", Chain: []string{"BaseClass", "Post"}, Fields: []string{"title_text", "custom_float:*_fm"}}}
	var buf bytes.Buffer
	require.NoError(t, WriteTypes(&buf, types, OutputText))
	for _, sub := range []string{"Post (BaseClass > Post)", "  title_text", "  custom_float:*_fm"} {
		assert.Contains(t, buf.String(), sub)
	}

	buf.Reset()
	require.NoError(t, WriteTypes(&buf, types, OutputJSON))
	assert.Contains(t, buf.String(), `"chain"`)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
