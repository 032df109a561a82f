package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vav/internal/alignment"
	"github.com/inodb/vav/internal/alignment/bamtest"
	"github.com/inodb/vav/internal/duckdb"
	"github.com/inodb/vav/internal/summary"
	"github.com/inodb/vav/internal/variant"
)

func writeBAM(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tumor.bam")
	refs := []bamtest.Reference{{Name: "2", Length: 30000000}}
	reads := []bamtest.Read{
		{Name: "alt1", Chrom: "2", Pos: 29474091, MapQ: 60, Cigar: "21M", Seq: "GATTACAGATATTGACCAGGT", MD: "10C10"},
		{Name: "ref1", Chrom: "2", Pos: 29474091, MapQ: 60, Cigar: "21M", Seq: "GATTACAGATCTTGACCAGGT", MD: "21"},
		{Name: "alt2", Chrom: "2", Pos: 29474095, MapQ: 5, Cigar: "21M", Seq: "ACAGATATTGACCAGGTACGT", MD: "6C14"},
	}
	require.NoError(t, bamtest.WriteIndexed(path, refs, reads))
	return path
}

// execute runs the root command with a clean viper state and HOME.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRoot_SingleVariantJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	bam := writeBAM(t)

	out, err := execute(t, "--var", "2:29474101C>A", bam)
	require.NoError(t, err)

	var got summary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, summary.Summary{Reference: 1, Proper: 1, Lowq: 1}, got)
}

func TestRoot_ThresholdFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	bam := writeBAM(t)

	out, err := execute(t, "--var", "2:29474101C>A", "--mapq", "0", "--margin", "0", bam)
	require.NoError(t, err)

	var got summary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, summary.Summary{Reference: 1, Proper: 2}, got)
}

func TestRoot_ConfigOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".vav.yaml"), []byte("mapq: 0\n"), 0o644))
	bam := writeBAM(t)

	out, err := execute(t, "--var", "2:29474101C>A", bam)
	require.NoError(t, err)

	var got summary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	// alt2 now passes the mapping quality check but sits 6 bases from its start.
	assert.Equal(t, summary.Summary{Reference: 1, Proper: 1, Margin: 1}, got)
}

func TestRoot_MultipleVariantsTab(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	bam := writeBAM(t)
	outFile := filepath.Join(t.TempDir(), "out.tsv")

	_, err := execute(t,
		"--var", "2:29474101C>A",
		"--var", "2:29474101C>T",
		"--var", "2:29474101C>A",
		"--format", "tab", "-o", outFile, "--workers", "2", bam)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2:29474101C>A\t3\t"))
	assert.True(t, strings.HasPrefix(lines[2], "2:29474101C>T\t3\t"))
}

func TestRoot_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	bam := writeBAM(t)

	_, err := execute(t, "--var", "2:29474101C>Z", bam)
	assert.True(t, variant.IsParseError(err), "got %v", err)

	_, err = execute(t, "--var", "7:100C>A", bam)
	var le *alignment.LookupError
	assert.ErrorAs(t, err, &le)

	_, err = execute(t, bam)
	assert.ErrorContains(t, err, "no variants")

	_, err = execute(t, "--var", "2:29474101C>A", "--format", "xml", bam)
	assert.ErrorContains(t, err, "unknown output format")

	_, err = execute(t, "--var", "2:29474101C>A", filepath.Join(t.TempDir(), "absent.bam"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunValidate_VCF(t *testing.T) {
	bam := writeBAM(t)
	vcfPath := filepath.Join(t.TempDir(), "calls.vcf")
	content := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"2\t29474101\t.\tC\tA,T,<DEL>\t.\tPASS\t.\n"
	require.NoError(t, os.WriteFile(vcfPath, []byte(content), 0o644))

	var buf bytes.Buffer
	err := runValidate(&buf, zap.NewNop(), runOptions{
		bamPath: bam, vcfPath: vcfPath, format: "json", mapq: 30, margin: 10, workers: 1,
	})
	require.NoError(t, err)

	var got map[string]summary.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]summary.Summary{
		"2:29474101C>A": {Reference: 1, Proper: 1, Lowq: 1},
		"2:29474101C>T": {Reference: 1, Alleles: 2},
	}, got)
}

func TestRunValidate_ResultStore(t *testing.T) {
	bam := writeBAM(t)
	dbPath := filepath.Join(t.TempDir(), "results.duckdb")
	opts := runOptions{
		bamPath: bam, vars: []string{"2:29474101C>A"}, format: "json",
		mapq: 30, margin: 10, workers: 1, dbPath: dbPath,
	}

	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		require.NoError(t, runValidate(&buf, zap.NewNop(), opts))
		var got summary.Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, summary.Summary{Reference: 1, Proper: 1, Lowq: 1}, got)
	}

	opts.refresh = true
	require.NoError(t, runValidate(&bytes.Buffer{}, zap.NewNop(), opts))

	// The cached run and the refreshed one are both removed.
	core, logs := observer.New(zapcore.InfoLevel)
	opts.refresh = false
	opts.clearDB = true
	var buf bytes.Buffer
	require.NoError(t, runValidate(&buf, zap.New(core), opts))
	cleared := logs.FilterMessage("cleared result database").All()
	require.Len(t, cleared, 1)
	assert.Equal(t, int64(2), cleared[0].ContextMap()["runs"])

	var got summary.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, summary.Summary{Reference: 1, Proper: 1, Lowq: 1}, got)

	store, err := duckdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.ClearSummaries()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRunValidate_ClearDBNeedsDB(t *testing.T) {
	bam := writeBAM(t)
	err := runValidate(&bytes.Buffer{}, zap.NewNop(), runOptions{
		bamPath: bam, vars: []string{"2:29474101C>A"}, format: "json",
		mapq: 30, margin: 10, workers: 1, clearDB: true,
	})
	assert.ErrorContains(t, err, "--clear-db")
}

func TestConfigSetGet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := execute(t, "config", "set", "margin", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Set margin = 5")
	_, err = os.Stat(filepath.Join(home, ".vav.yaml"))
	require.NoError(t, err)

	out, err = execute(t, "config", "get", "margin")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = execute(t, "config", "get", "nosuchkey")
	assert.ErrorContains(t, err, "not set")
}

func TestConfig_FileHoldsOnlySetKeys(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := filepath.Join(home, ".vav.yaml")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration set")

	_, err = execute(t, "config", "set", "margin", "5")
	require.NoError(t, err)
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.YAMLEq(t, "margin: 5\n", string(data))

	_, err = execute(t, "config", "set", "verbose", "on")
	require.NoError(t, err)
	data, err = os.ReadFile(cfg)
	require.NoError(t, err)
	assert.YAMLEq(t, "margin: 5\nverbose: true\n", string(data))

	out, err = execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "margin: 5")
	assert.NotContains(t, out, "mapq")

	_, err = execute(t, "config", "set", "nosuchkey", "1")
	assert.ErrorContains(t, err, "unknown config key")
	_, err = execute(t, "config", "set", "mapq", "high")
	assert.ErrorContains(t, err, "invalid value")
}

func TestRoot_MAF(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	bam := writeBAM(t)
	mafPath := filepath.Join(t.TempDir(), "data_mutations.txt")
	content := "Hugo_Symbol\tChromosome\tStart_Position\tReference_Allele\tTumor_Seq_Allele2\n" +
		"X1\t2\t29474101\tC\tA\n" +
		"X2\t2\t29474101\t-\tTT\n"
	require.NoError(t, os.WriteFile(mafPath, []byte(content), 0o644))

	out, err := execute(t, "--maf", mafPath, bam)
	require.NoError(t, err)

	var got summary.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, summary.Summary{Reference: 1, Proper: 1, Lowq: 1}, got)
}

func TestCollectRequests_SkipWarnings(t *testing.T) {
	dir := t.TempDir()
	vcfPath := filepath.Join(dir, "calls.vcf")
	require.NoError(t, os.WriteFile(vcfPath, []byte("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"+
		"2\t29474101\trs99\tC\t<DEL>\t.\tPASS\t.\n"), 0o644))
	mafPath := filepath.Join(dir, "data_mutations.txt")
	require.NoError(t, os.WriteFile(mafPath, []byte("Hugo_Symbol\tChromosome\tStart_Position\tReference_Allele\tTumor_Seq_Allele2\tTumor_Sample_Barcode\n"+
		"ERBB2\t17\t37880981\t-\tGCA\tTCGA-02\n"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	reqs, err := collectRequests(zap.New(core), runOptions{vars: []string{"1:5C>G"}, vcfPath: vcfPath, mafPath: mafPath})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "1:5C>G", reqs[0].key)

	vcfSkips := logs.FilterMessage("skipping vcf record").All()
	require.Len(t, vcfSkips, 1)
	assert.Equal(t, "rs99", vcfSkips[0].ContextMap()["id"])

	mafSkips := logs.FilterMessage("skipping maf record").All()
	require.Len(t, mafSkips, 1)
	assert.Equal(t, "ERBB2", mafSkips[0].ContextMap()["gene"])
	assert.Equal(t, "TCGA-02", mafSkips[0].ContextMap()["sample"])
}
