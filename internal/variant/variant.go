// Package variant parses and represents a single genomic variant.
package variant

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/inodb/vav/internal/seq"
)

// reVariant matches CHROM:POS REF>ALT, e.g. chr1:12345AT>- or 2:29474101 C>A.
var reVariant = regexp.MustCompile(`(?i)^(?P<chrom>(?:chr)?[\w.-]+):(?P<pos>\d+) ?(?P<refs>[ATCGN]+|-)>(?P<alts>[ATCGN]+|-)$`)

// Variant is a single-locus change: 1-based position, expected reference
// and alternate sequences. Either side may be empty for indels.
type Variant struct {
	Chrom string
	Pos   int
	Refs  seq.Sequence
	Alts  seq.Sequence
}

// ParseError represents a malformed variant specification.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("variant parse error %q: %s", e.Input, e.Message)
}

// Parse parses a variant specification such as "chr1:12345AT>GC".
func Parse(input string) (*Variant, error) {
	m := reVariant.FindStringSubmatch(input)
	if m == nil {
		return nil, &ParseError{Input: input, Message: "expected CHROM:POS REF>ALT"}
	}

	pos, err := strconv.Atoi(m[reVariant.SubexpIndex("pos")])
	if err != nil || pos < 1 {
		return nil, &ParseError{Input: input, Message: fmt.Sprintf("invalid position %s", m[reVariant.SubexpIndex("pos")])}
	}

	return build(input, m[reVariant.SubexpIndex("chrom")], pos,
		m[reVariant.SubexpIndex("refs")], m[reVariant.SubexpIndex("alts")])
}

// FromAlleles builds a variant from already split columns, as found in a VCF.
// Empty alleles are written "-" or "".
func FromAlleles(chrom string, pos int, ref, alt string) (*Variant, error) {
	input := fmt.Sprintf("%s:%d%s>%s", chrom, pos, ref, alt)
	if chrom == "" || strings.ContainsAny(chrom, ": \t") {
		return nil, &ParseError{Input: input, Message: "invalid chromosome"}
	}
	if pos < 1 {
		return nil, &ParseError{Input: input, Message: fmt.Sprintf("invalid position %d", pos)}
	}
	if ref == "" {
		ref = "-"
	}
	if alt == "" {
		alt = "-"
	}
	return build(input, chrom, pos, ref, alt)
}

func build(input, chrom string, pos int, ref, alt string) (*Variant, error) {
	refs, err := seq.Parse(ref)
	if err != nil {
		return nil, &ParseError{Input: input, Message: err.Error()}
	}
	alts, err := seq.Parse(alt)
	if err != nil {
		return nil, &ParseError{Input: input, Message: err.Error()}
	}
	if len(refs) == 0 && len(alts) == 0 {
		return nil, &ParseError{Input: input, Message: "reference and alternate are both empty"}
	}
	return &Variant{Chrom: chrom, Pos: pos, Refs: refs, Alts: alts}, nil
}

// End returns the last reference position covered by the variant. A pure
// insertion covers its anchor and the following base.
func (v *Variant) End() int {
	if len(v.Refs) > 0 {
		return v.Pos + len(v.Refs) - 1
	}
	return v.Pos + 1
}

// IsAbbrDeletion reports whether the variant is a deletion written as REF>-.
func (v *Variant) IsAbbrDeletion() bool {
	return len(v.Alts) == 0
}

// RefCmp compares the expected reference against observed reference bases.
func (v *Variant) RefCmp(observed seq.Sequence) seq.Ordering {
	return seq.Compare(v.Refs, observed)
}

// AltCmp compares the expected alternate against observed read bases.
func (v *Variant) AltCmp(observed seq.Sequence) seq.Ordering {
	return seq.Compare(v.Alts, observed)
}

// String returns the canonical CHROM:POSREF>ALT form.
func (v *Variant) String() string {
	return fmt.Sprintf("%s:%d%s>%s", v.Chrom, v.Pos, v.Refs, v.Alts)
}

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
