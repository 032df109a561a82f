// Package vcf reads variants from VCF files.
package vcf

import (
	"strings"

	"github.com/inodb/vav/internal/variant"
)

// Record is one VCF data line restricted to the columns vav uses.
type Record struct {
	Chrom string // Chromosome name (e.g., "12", "chr12")
	Pos   int    // 1-based genomic position
	ID    string // Variant identifier (e.g., rs ID)
	Ref   string // Reference allele
	Alt   string // Alternate allele(s), comma separated
}

// SplitMultiAllelic splits a multi-allelic record into one record per ALT.
func SplitMultiAllelic(r *Record) []*Record {
	alts := strings.Split(r.Alt, ",")
	if len(alts) == 1 {
		return []*Record{r}
	}

	records := make([]*Record, len(alts))
	for i, alt := range alts {
		rr := *r
		rr.Alt = alt
		records[i] = &rr
	}
	return records
}

// IsSymbolic reports whether the ALT allele cannot be expressed as bases,
// e.g. "<DEL>", "*" or ".".
func (r *Record) IsSymbolic() bool {
	return r.Alt == "." || r.Alt == "*" || strings.HasPrefix(r.Alt, "<") ||
		strings.ContainsAny(r.Alt, "[]")
}

// Variant converts a single-ALT record into a variant.
func (r *Record) Variant() (*variant.Variant, error) {
	return variant.FromAlleles(r.Chrom, r.Pos, r.Ref, r.Alt)
}
