package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vav/internal/summary"
	"github.com/inodb/vav/internal/support"
	"github.com/inodb/vav/internal/variant"
)

// Run identifies one evaluation of a BAM under fixed thresholds.
type Run struct {
	ID         string
	StartedAt  time.Time
	BAM        FileFingerprint
	Thresholds support.Thresholds
}

// NewRun creates a run with a fresh identifier.
func NewRun(bam FileFingerprint, th support.Thresholds) Run {
	return Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		BAM:        bam,
		Thresholds: th,
	}
}

// SummaryResult holds the data needed to write one variant summary.
type SummaryResult struct {
	Key     string
	Variant *variant.Variant
	Summary summary.Summary
}

// BeginRun records a run. Summaries written for it reference its ID.
func (s *Store) BeginRun(r Run) error {
	_, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.BAM.Path, r.BAM.Size, r.BAM.ModTime.UnixNano(),
		int64(r.Thresholds.MinMapQ), int64(r.Thresholds.MinMargin))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// WriteSummaries batch-inserts summaries for a run using the Appender API.
// Duplicate variant keys are written once.
func (s *Store) WriteSummaries(runID string, results []SummaryResult) error {
	if len(results) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(results))
	deduped := make([]SummaryResult, 0, len(results))
	for _, r := range results {
		if !seen[r.Key] {
			seen[r.Key] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "summary_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		v, sum := r.Variant, r.Summary
		if err := appender.AppendRow(
			runID, r.Key, v.Chrom, int64(v.Pos), v.Refs.String(), v.Alts.String(),
			int64(sum.Reference), int64(sum.Proper), int64(sum.Margin), int64(sum.Lowq),
			int64(sum.Excessive), int64(sum.Alleles), int64(sum.Unknown),
		); err != nil {
			return fmt.Errorf("append summary: %w", err)
		}
	}

	return appender.Flush()
}

// LookupSummary returns the most recent summary stored for key by a run
// over the same BAM fingerprint and thresholds. The bool is false when no
// such summary exists.
func (s *Store) LookupSummary(bam FileFingerprint, th support.Thresholds, key string) (summary.Summary, bool, error) {
	var sum summary.Summary
	err := s.db.QueryRow(`SELECT
		s.reference, s.proper, s.margin, s.lowq, s.excessive, s.alleles, s.unknown
		FROM summary_results s JOIN runs r ON s.run_id = r.run_id
		WHERE r.bam_path=? AND r.bam_size=? AND r.bam_mtime=?
			AND r.min_mapq=? AND r.min_margin=? AND s.variant=?
		ORDER BY r.started_at DESC
		LIMIT 1`,
		bam.Path, bam.Size, bam.ModTime.UnixNano(),
		int64(th.MinMapQ), int64(th.MinMargin), key,
	).Scan(&sum.Reference, &sum.Proper, &sum.Margin, &sum.Lowq, &sum.Excessive, &sum.Alleles, &sum.Unknown)
	if errors.Is(err, sql.ErrNoRows) {
		return summary.Summary{}, false, nil
	}
	if err != nil {
		return summary.Summary{}, false, fmt.Errorf("query summary: %w", err)
	}
	return sum, true, nil
}

// ClearSummaries removes all runs and stored summaries and returns the
// number of runs removed.
func (s *Store) ClearSummaries() (int64, error) {
	if _, err := s.db.Exec("DELETE FROM summary_results"); err != nil {
		return 0, fmt.Errorf("clear summaries: %w", err)
	}
	res, err := s.db.Exec("DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}
