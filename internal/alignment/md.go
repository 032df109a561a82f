package alignment

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/biogo/hts/sam"

	"github.com/inodb/vav/internal/support"
)

var (
	errNoMD       = errors.New("missing MD tag")
	errNoSequence = errors.New("missing read sequence")
)

var mdTag = sam.NewTag("MD")

// mdBase is one reference base described by an MD tag. base is zero when the
// reference agrees with the read.
type mdBase struct {
	base    byte
	deleted bool
}

// expandMD turns an MD string such as "10A5^AC6" into one entry per
// reference base covered by M/=/X and D operations.
func expandMD(md string) ([]mdBase, error) {
	var out []mdBase
	for i := 0; i < len(md); {
		c := md[i]
		switch {
		case c >= '0' && c <= '9':
			j := i
			for j < len(md) && md[j] >= '0' && md[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(md[i:j])
			if err != nil {
				return nil, fmt.Errorf("MD %q: %w", md, err)
			}
			for ; n > 0; n-- {
				out = append(out, mdBase{})
			}
			i = j
		case c == '^':
			i++
			start := i
			for i < len(md) && isMDLetter(md[i]) {
				out = append(out, mdBase{base: md[i], deleted: true})
				i++
			}
			if i == start {
				return nil, fmt.Errorf("MD %q: empty deletion at offset %d", md, start)
			}
		case isMDLetter(c):
			out = append(out, mdBase{base: c})
			i++
		default:
			return nil, fmt.Errorf("MD %q: unexpected %q at offset %d", md, c, i)
		}
	}
	return out, nil
}

func isMDLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// observations derives the aligned bases of rec from its CIGAR, sequence and
// MD tag. Reference positions are converted to 1-based here.
func observations(rec *sam.Record) ([]support.Observation, error) {
	aux, ok := rec.Tag(mdTag[:])
	if !ok {
		return nil, errNoMD
	}
	md, ok := aux.Value().(string)
	if !ok {
		return nil, fmt.Errorf("MD tag has type %c", aux.Type())
	}
	refs, err := expandMD(md)
	if err != nil {
		return nil, err
	}
	query := rec.Seq.Expand()
	if len(query) == 0 {
		return nil, errNoSequence
	}

	var (
		obs  = make([]support.Observation, 0, len(query))
		rpos = rec.Pos
		qpos int
		mi   int
	)
	for _, co := range rec.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if qpos+n > len(query) {
				return nil, fmt.Errorf("CIGAR %v exceeds read length %d", rec.Cigar, len(query))
			}
			for k := 0; k < n; k++ {
				if mi >= len(refs) || refs[mi].deleted {
					return nil, fmt.Errorf("MD %q does not match CIGAR %v", md, rec.Cigar)
				}
				q := query[qpos]
				r := refs[mi].base
				if r == 0 {
					r = q
				}
				edit := support.Match
				if upper(r) != upper(q) {
					edit = support.Mismatch
				}
				obs = append(obs, support.Observation{Edit: edit, RefBase: r, QueryBase: q, RefPos: rpos + 1, QueryPos: qpos})
				mi++
				rpos++
				qpos++
			}
		case sam.CigarInsertion:
			if qpos+n > len(query) {
				return nil, fmt.Errorf("CIGAR %v exceeds read length %d", rec.Cigar, len(query))
			}
			for k := 0; k < n; k++ {
				obs = append(obs, support.Observation{Edit: support.Insertion, QueryBase: query[qpos], RefPos: support.NoPos, QueryPos: qpos})
				qpos++
			}
		case sam.CigarDeletion:
			for k := 0; k < n; k++ {
				if mi >= len(refs) || !refs[mi].deleted {
					return nil, fmt.Errorf("MD %q does not match CIGAR %v", md, rec.Cigar)
				}
				obs = append(obs, support.Observation{Edit: support.Deletion, RefBase: refs[mi].base, RefPos: rpos + 1, QueryPos: support.NoPos})
				mi++
				rpos++
			}
		case sam.CigarSkipped:
			rpos += n
		case sam.CigarSoftClipped:
			qpos += n
		case sam.CigarHardClipped, sam.CigarPadded:
		default:
			return nil, fmt.Errorf("unsupported CIGAR operation %v", co.Type())
		}
	}
	if mi != len(refs) {
		return nil, fmt.Errorf("MD %q does not match CIGAR %v", md, rec.Cigar)
	}
	return obs, nil
}

// alignedQueryEnd returns the query index one past the last base that is not
// soft-clipped.
func alignedQueryEnd(rec *sam.Record) int {
	end := rec.Seq.Length
	i := len(rec.Cigar) - 1
	for i >= 0 && rec.Cigar[i].Type() == sam.CigarHardClipped {
		i--
	}
	if i >= 0 && rec.Cigar[i].Type() == sam.CigarSoftClipped {
		end -= rec.Cigar[i].Len()
	}
	return end
}
