// Package support classifies how a single aligned read supports a variant.
package support

import "fmt"

// Support is the verdict of classifying one read against one variant.
type Support int

const (
	// Ref: the reference allele is fully supported.
	Ref Support = iota
	// Rep: the reference allele is partially supported, e.g. expecting "ATC" found "AT".
	Rep
	// Ree: the reference allele is excessively supported, e.g. expecting "ATC" found "ATCG".
	Ree
	// Alt: the alternate allele is fully supported.
	Alt
	// Alp: the alternate allele is partially supported.
	Alp
	// Ale: the alternate allele is excessively supported.
	Ale
	// Oth: another allele, or the read's reference disagrees with the variant.
	Oth
	// Unk: the read's bases could not be extracted.
	Unk
	// Nul: the read is unmapped or does not reach the variant.
	Nul
)

var supportNames = [...]string{"Ref", "Rep", "Ree", "Alt", "Alp", "Ale", "Oth", "Unk", "Nul"}

func (s Support) String() string {
	if s < 0 || int(s) >= len(supportNames) {
		return fmt.Sprintf("Support(%d)", int(s))
	}
	return supportNames[s]
}

// AnyRef reports whether s counts as reference support.
func (s Support) AnyRef() bool {
	return s == Ref || s == Rep || s == Ree
}
