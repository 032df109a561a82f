package support

import "fmt"

// Tier subdivides full alternate support by read quality.
type Tier int

const (
	Proper Tier = iota
	Margin
	LowQ
)

func (t Tier) String() string {
	switch t {
	case Proper:
		return "proper"
	case Margin:
		return "margin"
	case LowQ:
		return "lowq"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Thresholds configures the quality refinement of Alt verdicts.
type Thresholds struct {
	// MinMapQ is the minimum read mapping quality.
	MinMapQ int
	// MinMargin is the minimum number of bases between the variant and the
	// aligned read boundaries.
	MinMargin int
}

// DefaultThresholds are used when nothing else is configured.
var DefaultThresholds = Thresholds{MinMapQ: 30, MinMargin: 10}

// Refine places full alternate support into a confidence tier.
func (t Thresholds) Refine(mapq, front, tail int) Tier {
	switch {
	case mapq < t.MinMapQ:
		return LowQ
	case front < t.MinMargin || tail < t.MinMargin:
		return Margin
	default:
		return Proper
	}
}
