// Package summary aggregates per-read support verdicts for one variant.
package summary

import (
	"math"

	"github.com/inodb/vav/internal/support"
)

// Summary counts reads by support bucket. The JSON form carries counts only.
type Summary struct {
	// Reference counts Ref, Rep and Ree reads.
	Reference int `json:"reference"`
	// Proper counts Alt reads passing the mapping quality and margin checks.
	Proper int `json:"proper"`
	// Margin counts Alt reads too close to a read boundary.
	Margin int `json:"margin"`
	// Lowq counts Alt reads below the mapping quality threshold.
	Lowq int `json:"lowq"`
	// Excessive counts alternate support running past the expected allele,
	// e.g. expecting chr1:12345A>C and seeing chr1:12345AT>CG.
	Excessive int `json:"excessive"`
	// Alleles counts partial alternate support and other alleles.
	Alleles int `json:"alleles"`
	// Unknown counts reads whose bases could not be extracted.
	Unknown int `json:"unknown"`
}

// Add counts one verdict. The tier only matters for Alt; Nul is not counted.
func (s *Summary) Add(sup support.Support, tier support.Tier) {
	if sup.AnyRef() {
		s.Reference++
		return
	}
	switch sup {
	case support.Alt:
		switch tier {
		case support.LowQ:
			s.Lowq++
		case support.Margin:
			s.Margin++
		default:
			s.Proper++
		}
	case support.Ale:
		s.Excessive++
	case support.Alp, support.Oth:
		s.Alleles++
	case support.Unk:
		s.Unknown++
	}
}

// Merge adds the counts of o into s.
func (s *Summary) Merge(o Summary) {
	s.Reference += o.Reference
	s.Proper += o.Proper
	s.Margin += o.Margin
	s.Lowq += o.Lowq
	s.Excessive += o.Excessive
	s.Alleles += o.Alleles
	s.Unknown += o.Unknown
}

// TotalCount returns the number of counted reads.
func (s Summary) TotalCount() int {
	return s.Reference + s.Proper + s.Margin + s.Lowq + s.Excessive + s.Alleles + s.Unknown
}

// AltCount returns all alternate support, excessive included.
func (s Summary) AltCount() int {
	return s.Proper + s.Margin + s.Lowq + s.Excessive
}

// RefCount returns reference support.
func (s Summary) RefCount() int {
	return s.Reference
}

// Covered reports whether any read was counted.
func (s Summary) Covered() bool {
	return s.TotalCount() > 0
}

func (s Summary) AltFreq() float64    { return s.freq(s.AltCount()) }
func (s Summary) RefFreq() float64    { return s.freq(s.RefCount()) }
func (s Summary) ProperFreq() float64 { return s.freq(s.Proper) }
func (s Summary) MarginFreq() float64 { return s.freq(s.Margin) }
func (s Summary) LowqFreq() float64   { return s.freq(s.Lowq) }

func (s Summary) ExcessiveFreq() float64 { return s.freq(s.Excessive) }
func (s Summary) AllelesFreq() float64   { return s.freq(s.Alleles) }
func (s Summary) UnknownFreq() float64   { return s.freq(s.Unknown) }

// freq returns n over the total rounded to 4 decimals, NaN without coverage.
func (s Summary) freq(n int) float64 {
	total := s.TotalCount()
	if total == 0 {
		return math.NaN()
	}
	return Round4(float64(n) / float64(total))
}

// Round4 rounds half away from zero to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
