// Package seq provides the nucleotide alphabet and sequence comparison used
// to match expected alleles against bases observed in a read.
package seq

import (
	"fmt"
	"strings"
)

// Base is a single nucleotide. N stands for a base the sequencer could not call.
type Base byte

const (
	A Base = 'A'
	T Base = 'T'
	C Base = 'C'
	G Base = 'G'
	N Base = 'N'
)

// String returns the single-letter code.
func (b Base) String() string {
	return string(rune(b))
}

// ParseError reports text that is not a valid base or base sequence.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as base sequence", e.Input)
}

// BaseFromByte parses a single base, case-insensitively.
func BaseFromByte(c byte) (Base, error) {
	switch c {
	case 'A', 'a':
		return A, nil
	case 'T', 't':
		return T, nil
	case 'C', 'c':
		return C, nil
	case 'G', 'g':
		return G, nil
	case 'N', 'n':
		return N, nil
	}
	return 0, &ParseError{Input: string([]byte{c})}
}

// Sequence is an ordered run of bases.
type Sequence []Base

// Parse parses a base sequence. The literal "-" is the empty sequence.
func Parse(s string) (Sequence, error) {
	if s == "-" {
		return Sequence{}, nil
	}
	if s == "" {
		return nil, &ParseError{Input: s}
	}
	out := make(Sequence, 0, len(s))
	for i := 0; i < len(s); i++ {
		b, err := BaseFromByte(s[i])
		if err != nil {
			return nil, &ParseError{Input: s}
		}
		out = append(out, b)
	}
	return out, nil
}

// String formats the sequence; the empty sequence formats as "-".
func (s Sequence) String() string {
	if len(s) == 0 {
		return "-"
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, b := range s {
		sb.WriteByte(byte(b))
	}
	return sb.String()
}

// Equal reports whether s and o hold the same bases.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether s starts with p.
func (s Sequence) HasPrefix(p Sequence) bool {
	return len(s) >= len(p) && s[:len(p)].Equal(p)
}
