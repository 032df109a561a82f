package support

import (
	"errors"
	"fmt"

	"github.com/inodb/vav/internal/seq"
	"github.com/inodb/vav/internal/variant"
)

// Evidence is the outcome of walking one read over a variant.
type Evidence struct {
	Support Support
	// Ref and Alt are the reference and read bases collected at the locus.
	Ref seq.Sequence
	Alt seq.Sequence
	// Front is the number of observations skipped before the variant position.
	Front int
	// Tail is the distance from the last consumed query base to the end of
	// the aligned (not soft-clipped) part of the read.
	Tail int
	// SkippedAnchor is set when the first base was dropped because the
	// variant is an abbreviated deletion.
	SkippedAnchor bool
}

var (
	errMissingRefBase   = errors.New("missing reference base")
	errMissingQueryBase = errors.New("missing query base")
)

// Classify walks r's observations from the variant position, collects the
// observed reference and alternate bases and decides how r supports v.
//
// A read that is unmapped or does not overlap [v.Pos, v.End()] is Nul and its
// observations are never requested. When observations cannot be produced or
// decoded the verdict is Unk and the error is an *ObservationError.
func Classify(r Read, v *variant.Variant) (Evidence, error) {
	if !r.Mapped() || r.Start() > v.End() || r.End() < v.Pos {
		return Evidence{Support: Nul}, nil
	}

	obs, err := r.Observations()
	if err != nil {
		return Evidence{Support: Unk}, &ObservationError{Read: r.Name(), Err: err}
	}

	// Skip to the first base at or after the variant position. Insertions
	// carry no reference position and are skipped too.
	var (
		front int
		next  Observation
		ok    bool
	)
	for {
		next, ok = obs.Next()
		if !ok {
			return Evidence{Support: Nul, Front: front}, nil
		}
		if next.RefPos != NoPos && next.RefPos >= v.Pos {
			break
		}
		front++
	}

	ev := Evidence{
		Ref:   make(seq.Sequence, 0, len(v.Refs)),
		Alt:   make(seq.Sequence, 0, len(v.Alts)),
		Front: front,
	}
	lastQuery := 0
	preskip := v.IsAbbrDeletion()

	for ok {
		curr := next
		next, ok = obs.Next()
		if curr.QueryPos != NoPos {
			lastQuery = curr.QueryPos
		}

		if preskip {
			// The anchor of REF>- carries no alternate allele information.
			preskip = false
			ev.SkippedAnchor = true
			continue
		}

		switch curr.Edit {
		case Insertion:
			b, err := queryBase(curr)
			if err != nil {
				return Evidence{Support: Unk, Front: front}, &ObservationError{Read: r.Name(), Err: err}
			}
			ev.Alt = append(ev.Alt, b)
		case Deletion:
			b, err := refBase(curr)
			if err != nil {
				return Evidence{Support: Unk, Front: front}, &ObservationError{Read: r.Name(), Err: err}
			}
			ev.Ref = append(ev.Ref, b)
		case Match, Mismatch:
			q, err := queryBase(curr)
			if err != nil {
				return Evidence{Support: Unk, Front: front}, &ObservationError{Read: r.Name(), Err: err}
			}
			rb, err := refBase(curr)
			if err != nil {
				return Evidence{Support: Unk, Front: front}, &ObservationError{Read: r.Name(), Err: err}
			}
			ev.Alt = append(ev.Alt, q)
			ev.Ref = append(ev.Ref, rb)
		default:
			return Evidence{Support: Unk, Front: front}, &ObservationError{Read: r.Name(), Err: fmt.Errorf("unknown edit %v", curr.Edit)}
		}

		// Never stop inside a run of edits: a multi-base substitution or
		// indel is absorbed whole before the length check applies.
		if ok && next.Edit != Match {
			continue
		}
		if len(ev.Ref) >= len(v.Refs) || len(ev.Alt) >= len(v.Alts) {
			break
		}
	}

	ev.Tail = r.AlignedQueryEnd() - lastQuery
	ev.Support = decide(v.RefCmp(ev.Ref), v.AltCmp(ev.Alt), ev.Ref.Equal(ev.Alt))
	return ev, nil
}

// decide applies the verdict table. Row order is significant.
func decide(refCmp, altCmp seq.Ordering, equal bool) Support {
	switch {
	case refCmp == seq.Nul:
		return Oth
	case refCmp == seq.Equ && altCmp == seq.Equ:
		return Alt
	case refCmp == seq.Equ && equal:
		return Ref
	case refCmp == seq.Sub && equal:
		// Extra bases are assumed to match the genome reference.
		return Ree
	case equal:
		return Rep
	case refCmp == seq.Sub && altCmp == seq.Equ:
		return Ale
	case altCmp == seq.Sub:
		return Ale
	case altCmp == seq.Sup:
		return Alp
	default:
		return Oth
	}
}

func queryBase(o Observation) (seq.Base, error) {
	if o.QueryBase == 0 {
		return 0, fmt.Errorf("%w at query %d", errMissingQueryBase, o.QueryPos)
	}
	return seq.BaseFromByte(o.QueryBase)
}

func refBase(o Observation) (seq.Base, error) {
	if o.RefBase == 0 {
		return 0, fmt.Errorf("%w at reference %d", errMissingRefBase, o.RefPos)
	}
	return seq.BaseFromByte(o.RefBase)
}
