package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/inodb/vav/internal/summary"
)

// JSONWriter writes summaries as indented JSON. A single result is written
// as a bare summary object; several results as an object keyed by variant.
type JSONWriter struct {
	w io.Writer
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// Write encodes results.
func (jw *JSONWriter) Write(results []Result) error {
	var v any
	if len(results) == 1 {
		v = results[0].Summary
	} else {
		m := make(map[string]summary.Summary, len(results))
		for _, r := range results {
			m[r.Key] = r.Summary
		}
		v = m
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}
	data = append(data, '\n')
	_, err = jw.w.Write(data)
	return err
}
