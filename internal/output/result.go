// Package output provides summary output formatters.
package output

import "github.com/inodb/vav/internal/summary"

// Result is the summary of one variant, keyed by the variant text it was
// requested as.
type Result struct {
	Key     string
	Summary summary.Summary
}

// Writer writes variant summaries.
type Writer interface {
	Write(results []Result) error
}
