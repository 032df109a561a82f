package support

import "fmt"

// NoPos marks an absent coordinate: insertions have no reference position,
// deletions have no query position.
const NoPos = -1

// Edit is the alignment operation behind one observation.
type Edit int

const (
	Match Edit = iota
	Mismatch
	Insertion
	Deletion
)

func (e Edit) String() string {
	switch e {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	}
	return fmt.Sprintf("Edit(%d)", int(e))
}

// Observation is one aligned base of a read. RefPos is 1-based, QueryPos is
// the 0-based index into the stored read sequence. RefBase and QueryBase are
// raw bytes, zero when absent.
type Observation struct {
	Edit      Edit
	RefBase   byte
	QueryBase byte
	RefPos    int
	QueryPos  int
}

// Observations is a pull iterator over a read's aligned bases in
// alignment order.
type Observations interface {
	// Next returns the next observation, or false once exhausted.
	Next() (Observation, bool)
}

// SliceObservations iterates a pre-computed slice.
type SliceObservations struct {
	obs []Observation
	i   int
}

// NewSliceObservations returns an iterator over obs.
func NewSliceObservations(obs []Observation) *SliceObservations {
	return &SliceObservations{obs: obs}
}

// Next implements Observations.
func (s *SliceObservations) Next() (Observation, bool) {
	if s.i >= len(s.obs) {
		return Observation{}, false
	}
	o := s.obs[s.i]
	s.i++
	return o, true
}

// Read is the per-read view the classifier needs from an alignment source.
// Coordinates are 1-based and inclusive.
type Read interface {
	Name() string
	Mapped() bool
	// Start is the first aligned reference position.
	Start() int
	// End is the last aligned reference position.
	End() int
	MapQ() int
	// AlignedQueryEnd is the query index one past the last base that is not
	// soft-clipped.
	AlignedQueryEnd() int
	// Observations derives the read's aligned bases. It fails when the
	// record lacks what is needed, such as an MD tag.
	Observations() (Observations, error)
}

// ObservationError reports that a read's aligned bases could not be
// extracted or decoded.
type ObservationError struct {
	Read string
	Err  error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("read %s: observations: %v", e.Read, e.Err)
}

func (e *ObservationError) Unwrap() error {
	return e.Err
}

// Reads iterates the reads of one region query in non-decreasing start
// order.
type Reads interface {
	Next() bool
	Read() Read
	Err() error
	Close() error
}
