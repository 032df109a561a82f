package output

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vav/internal/summary"
)

// TabWriter writes summaries in tab-delimited format, one variant per line.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Variant",
			"Total",
			"Reference",
			"Proper",
			"Margin",
			"Lowq",
			"Excessive",
			"Alleles",
			"Unknown",
			"Ref_freq",
			"Alt_freq",
			"Proper_freq",
			"Margin_freq",
			"Lowq_freq",
			"Excessive_freq",
			"Alleles_freq",
			"Unknown_freq",
		},
	}
}

// Write writes the header followed by one row per result and flushes.
func (tw *TabWriter) Write(results []Result) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := tw.WriteRow(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteRow writes a single result.
func (tw *TabWriter) WriteRow(r Result) error {
	s := r.Summary
	values := []string{
		r.Key,
		strconv.Itoa(s.TotalCount()),
		strconv.Itoa(s.Reference),
		strconv.Itoa(s.Proper),
		strconv.Itoa(s.Margin),
		strconv.Itoa(s.Lowq),
		strconv.Itoa(s.Excessive),
		strconv.Itoa(s.Alleles),
		strconv.Itoa(s.Unknown),
		formatFreq(s.RefFreq()),
		formatFreq(s.AltFreq()),
		formatFreq(s.ProperFreq()),
		formatFreq(s.MarginFreq()),
		formatFreq(s.LowqFreq()),
		formatFreq(s.ExcessiveFreq()),
		formatFreq(s.AllelesFreq()),
		formatFreq(s.UnknownFreq()),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// formatFreq prints a frequency rounded to four decimals, or NA without
// coverage.
func formatFreq(f float64) string {
	if math.IsNaN(f) {
		return "NA"
	}
	return strconv.FormatFloat(summary.Round4(f), 'f', -1, 64)
}
