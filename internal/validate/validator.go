// Package validate evaluates how the reads of an alignment source support
// variants.
package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vav/internal/seq"
	"github.com/inodb/vav/internal/summary"
	"github.com/inodb/vav/internal/support"
	"github.com/inodb/vav/internal/variant"
)

// ReadSource returns the reads overlapping a 1-based inclusive region.
type ReadSource interface {
	Fetch(chrom string, start, end int) (support.Reads, error)
}

// Validator classifies reads against variants and aggregates the verdicts.
type Validator struct {
	thresholds support.Thresholds
	logger     *zap.Logger
}

// NewValidator creates a validator using the given quality thresholds.
func NewValidator(th support.Thresholds) *Validator {
	return &Validator{
		thresholds: th,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for per-read and per-variant messages.
func (val *Validator) SetLogger(l *zap.Logger) {
	val.logger = l
}

// Evaluate queries src for reads over v and returns their summary. Reads
// whose bases cannot be extracted are counted as unknown and do not stop
// the evaluation.
func (val *Validator) Evaluate(src ReadSource, v *variant.Variant) (summary.Summary, error) {
	var sum summary.Summary

	reads, err := src.Fetch(v.Chrom, v.Pos, v.End())
	if err != nil {
		return sum, fmt.Errorf("fetch reads for %s: %w", v, err)
	}
	defer reads.Close()

	for reads.Next() {
		r := reads.Read()
		// Reads come sorted by start; nothing further can overlap.
		if r.Start() > v.End() {
			break
		}
		val.accumulate(&sum, r, v)
	}
	if err := reads.Err(); err != nil {
		return sum, fmt.Errorf("read alignments for %s: %w", v, err)
	}

	val.logger.Info("variant summary",
		zap.String("variant", v.String()),
		zap.Int("total", sum.TotalCount()),
		zap.Int("ref", sum.Reference),
		zap.Float64("ref_freq", sum.RefFreq()),
		zap.Int("proper", sum.Proper),
		zap.Float64("proper_freq", sum.ProperFreq()),
		zap.Int("margin", sum.Margin),
		zap.Float64("margin_freq", sum.MarginFreq()),
		zap.Int("lowq", sum.Lowq),
		zap.Float64("lowq_freq", sum.LowqFreq()),
		zap.Int("excessive", sum.Excessive),
		zap.Float64("excessive_freq", sum.ExcessiveFreq()),
		zap.Int("alleles", sum.Alleles),
		zap.Float64("alleles_freq", sum.AllelesFreq()),
		zap.Int("unknown", sum.Unknown),
		zap.Float64("unknown_freq", sum.UnknownFreq()))

	return sum, nil
}

func (val *Validator) accumulate(sum *summary.Summary, r support.Read, v *variant.Variant) {
	ev, err := support.Classify(r, v)
	if err != nil {
		val.logger.Warn("cannot classify read",
			zap.String("read", r.Name()),
			zap.String("variant", v.String()),
			zap.Error(err))
		sum.Add(support.Unk, support.Proper)
		return
	}
	if ev.SkippedAnchor {
		val.logger.Debug("skipped anchor base of abbreviated deletion",
			zap.String("read", r.Name()),
			zap.String("variant", v.String()))
	}

	tier := support.Proper
	switch ev.Support {
	case support.Alt:
		tier = val.thresholds.Refine(r.MapQ(), ev.Front, ev.Tail)
		val.logger.Debug("alt support",
			zap.String("read", r.Name()),
			zap.Stringer("tier", tier),
			zap.Int("mapq", r.MapQ()),
			zap.Int("front", ev.Front),
			zap.Int("tail", ev.Tail))
	case support.Oth:
		if v.RefCmp(ev.Ref) == seq.Nul {
			val.logger.Error("read reference does not accord with variant reference",
				zap.String("read", r.Name()),
				zap.Stringer("observed", ev.Ref),
				zap.Stringer("expected", v.Refs))
		} else {
			val.logger.Debug("other allele",
				zap.String("read", r.Name()),
				zap.Stringer("observed", ev.Alt))
		}
	case support.Nul:
		return
	default:
		val.logger.Debug("read support",
			zap.String("read", r.Name()),
			zap.Stringer("support", ev.Support))
	}
	sum.Add(ev.Support, tier)
}
