// Package cli renders solrdex command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/solrdex/internal/catalog"
	"github.com/hyperjump/solrdex/internal/document"
	"github.com/hyperjump/solrdex/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// maxValueLen bounds field values in text output.
const maxValueLen = 120

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// WritePreview writes assembled document payloads to w in the given format.
func WritePreview(w io.Writer, docs []document.Payload, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, docs)
	}
	fmt.Fprintf(w, "%d document(s)\n", len(docs))
	for _, doc := range docs {
		writeDocument(w, doc)
	}
	return nil
}

func writeDocument(w io.Writer, doc document.Payload) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "ID: %s\n", doc.ID())
	fmt.Fprintf(w, "Type: %s\n", strings.Join(doc.Types(), ", "))
	names := make([]string, 0, len(doc))
	width := 0
	for name := range doc {
		if name == document.IDField || name == document.TypeField {
			continue
		}
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-*s  %s\n", width, name, formatValue(doc[name]))
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case []string:
		return utils.Truncate("["+strings.Join(v, ", ")+"]", maxValueLen)
	case string:
		return utils.Truncate(v, maxValueLen)
	}
	return utils.Truncate(fmt.Sprint(v), maxValueLen)
}

// WriteTypes writes the configured types to w in the given format.
func WriteTypes(w io.Writer, types []catalog.TypeInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, types)
	}
	for _, t := range types {
		fmt.Fprintf(w, "%s (%s)\n", t.Name, strings.Join(t.Chain, " > "))
		for _, f := range t.Fields {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
