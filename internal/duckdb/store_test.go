package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vav/internal/summary"
	"github.com/inodb/vav/internal/support"
	"github.com/inodb/vav/internal/variant"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(t *testing.T, key string, sum summary.Summary) SummaryResult {
	t.Helper()
	v, err := variant.Parse(key)
	require.NoError(t, err)
	return SummaryResult{Key: key, Variant: v, Summary: sum}
}

var testBAM = FileFingerprint{
	Path:    "/data/tumor.bam",
	Size:    1 << 20,
	ModTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
}

func TestOpenClose(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vav.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLookupSummaries(t *testing.T) {
	s := openInMemory(t)

	run := NewRun(testBAM, support.DefaultThresholds)
	require.NoError(t, s.BeginRun(run))
	require.NoError(t, s.WriteSummaries(run.ID, []SummaryResult{
		result(t, "2:29474101C>A", summary.Summary{Reference: 10, Proper: 4, Lowq: 1}),
		result(t, "1:100A>-", summary.Summary{Reference: 7, Unknown: 2}),
		result(t, "1:100A>-", summary.Summary{Reference: 99}),
	}))

	got, ok, err := s.LookupSummary(testBAM, support.DefaultThresholds, "2:29474101C>A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.Summary{Reference: 10, Proper: 4, Lowq: 1}, got)

	// The first of two results for one key wins.
	got, ok, err = s.LookupSummary(testBAM, support.DefaultThresholds, "1:100A>-")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.Summary{Reference: 7, Unknown: 2}, got)
}

func TestLookupSummary_Miss(t *testing.T) {
	s := openInMemory(t)

	run := NewRun(testBAM, support.DefaultThresholds)
	require.NoError(t, s.BeginRun(run))
	require.NoError(t, s.WriteSummaries(run.ID, []SummaryResult{
		result(t, "2:29474101C>A", summary.Summary{Proper: 1}),
	}))

	changed := testBAM
	changed.ModTime = changed.ModTime.Add(time.Second)

	tests := []struct {
		name string
		bam  FileFingerprint
		th   support.Thresholds
		key  string
	}{
		{"unknown variant", testBAM, support.DefaultThresholds, "2:29474101C>T"},
		{"modified bam", changed, support.DefaultThresholds, "2:29474101C>A"},
		{"other thresholds", testBAM, support.Thresholds{MinMapQ: 20, MinMargin: 10}, "2:29474101C>A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := s.LookupSummary(tt.bam, tt.th, tt.key)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLookupSummary_LatestRun(t *testing.T) {
	s := openInMemory(t)

	older := NewRun(testBAM, support.DefaultThresholds)
	older.StartedAt = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	newer := NewRun(testBAM, support.DefaultThresholds)
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	assert.NotEqual(t, older.ID, newer.ID)

	require.NoError(t, s.BeginRun(newer))
	require.NoError(t, s.WriteSummaries(newer.ID, []SummaryResult{result(t, "1:5C>G", summary.Summary{Proper: 2})}))
	require.NoError(t, s.BeginRun(older))
	require.NoError(t, s.WriteSummaries(older.ID, []SummaryResult{result(t, "1:5C>G", summary.Summary{Proper: 1})}))

	got, ok, err := s.LookupSummary(testBAM, support.DefaultThresholds, "1:5C>G")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.Summary{Proper: 2}, got)
}

func TestClearSummaries(t *testing.T) {
	s := openInMemory(t)

	run := NewRun(testBAM, support.DefaultThresholds)
	require.NoError(t, s.BeginRun(run))
	require.NoError(t, s.WriteSummaries(run.ID, []SummaryResult{result(t, "1:5C>G", summary.Summary{Proper: 1})}))
	n, err := s.ClearSummaries()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := s.LookupSummary(testBAM, support.DefaultThresholds, "1:5C>G")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = s.ClearSummaries()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteSummaries_Empty(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.WriteSummaries("none", nil))
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bam")
	require.NoError(t, os.WriteFile(path, []byte("BAM\x01"), 0o644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4), fp.Size)
	assert.True(t, filepath.IsAbs(fp.Path))
	assert.False(t, fp.ModTime.IsZero())

	_, err = StatFile(filepath.Join(t.TempDir(), "absent.bam"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
