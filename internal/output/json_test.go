package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vav/internal/summary"
)

func TestJSONWriter_Single(t *testing.T) {
	var buf bytes.Buffer
	s := summary.Summary{Reference: 3, Proper: 2, Unknown: 1}
	require.NoError(t, NewJSONWriter(&buf).Write([]Result{{Key: "2:29474101C>A", Summary: s}}))

	var got summary.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, s, got)
	assert.Contains(t, buf.String(), "\n  \"reference\": 3")
	assert.NotContains(t, buf.String(), "freq")
}

func TestJSONWriter_Multiple(t *testing.T) {
	var buf bytes.Buffer
	results := []Result{
		{Key: "2:29474101C>A", Summary: summary.Summary{Proper: 5}},
		{Key: "1:100A>-", Summary: summary.Summary{Reference: 7}},
	}
	require.NoError(t, NewJSONWriter(&buf).Write(results))

	var got map[string]summary.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]summary.Summary{
		"2:29474101C>A": {Proper: 5},
		"1:100A>-":      {Reference: 7},
	}, got)
}

func TestJSONWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter(&buf).Write(nil))
	assert.Equal(t, "{}\n", buf.String())
}
