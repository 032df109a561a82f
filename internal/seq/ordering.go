package seq

// Ordering relates an expected sequence to an observed one.
type Ordering int

const (
	// Equ: both sequences are identical.
	Equ Ordering = iota
	// Emp: exactly one of the two is empty.
	Emp
	// Sup: expected starts with observed (observed is a truncated prefix).
	Sup
	// Sub: observed starts with expected (observed runs past expected).
	Sub
	// Nul: the sequences are incompatible.
	Nul
)

var orderingNames = [...]string{"Equ", "Emp", "Sup", "Sub", "Nul"}

func (o Ordering) String() string {
	if o < 0 || int(o) >= len(orderingNames) {
		return "Ordering(?)"
	}
	return orderingNames[o]
}

// Compare returns the Ordering of observed relative to expected.
// Checks run in the order Equ, Emp, Sup, Sub, so two empty sequences are Equ.
func Compare(expected, observed Sequence) Ordering {
	switch {
	case expected.Equal(observed):
		return Equ
	case len(expected) == 0 || len(observed) == 0:
		return Emp
	case expected.HasPrefix(observed):
		return Sup
	case observed.HasPrefix(expected):
		return Sub
	default:
		return Nul
	}
}
