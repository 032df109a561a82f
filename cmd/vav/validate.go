package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/vav/internal/alignment"
	"github.com/inodb/vav/internal/duckdb"
	"github.com/inodb/vav/internal/maf"
	"github.com/inodb/vav/internal/output"
	"github.com/inodb/vav/internal/summary"
	"github.com/inodb/vav/internal/support"
	"github.com/inodb/vav/internal/validate"
	"github.com/inodb/vav/internal/variant"
	"github.com/inodb/vav/internal/vcf"
)

type runOptions struct {
	bamPath    string
	vars       []string
	vcfPath    string
	mafPath    string
	outputFile string
	format     string
	mapq       int
	margin     int
	workers    int
	dbPath     string
	refresh    bool
	clearDB    bool
}

// request is one variant to evaluate, keyed by the text it was given as.
type request struct {
	key     string
	variant *variant.Variant
}

func runValidate(stdout io.Writer, logger *zap.Logger, opts runOptions) error {
	var writer output.Writer
	var out io.Writer = stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	switch opts.format {
	case "json":
		writer = output.NewJSONWriter(out)
	case "tab":
		writer = output.NewTabWriter(out)
	default:
		return fmt.Errorf("unknown output format %q", opts.format)
	}

	requests, err := collectRequests(logger, opts)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return errors.New("no variants given; use --var, --vcf or --maf")
	}
	if opts.clearDB && opts.dbPath == "" {
		return errors.New("--clear-db needs a result database; set --db")
	}

	th := support.Thresholds{MinMapQ: opts.mapq, MinMargin: opts.margin}
	val := validate.NewValidator(th)
	val.SetLogger(logger)

	var store *duckdb.Store
	var fp duckdb.FileFingerprint
	if opts.dbPath != "" {
		fp, err = duckdb.StatFile(opts.bamPath)
		if err != nil {
			return fmt.Errorf("stat bam: %w", err)
		}
		store, err = duckdb.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if opts.clearDB {
			n, err := store.ClearSummaries()
			if err != nil {
				return err
			}
			logger.Info("cleared result database", zap.String("db", opts.dbPath), zap.Int64("runs", n))
		}
	}

	summaries := make(map[string]summary.Summary, len(requests))
	var items []validate.WorkItem
	for _, req := range requests {
		if store != nil && !opts.refresh {
			sum, ok, err := store.LookupSummary(fp, th, req.key)
			if err != nil {
				return err
			}
			if ok {
				logger.Debug("using cached summary", zap.String("variant", req.key))
				summaries[req.key] = sum
				continue
			}
		}
		items = append(items, validate.WorkItem{Seq: len(items), Key: req.key, Variant: req.variant})
	}

	open := func() (validate.Source, error) {
		src, err := alignment.Open(opts.bamPath)
		if err != nil {
			return nil, err
		}
		src.SetLogger(logger)
		return src, nil
	}

	var fresh []duckdb.SummaryResult
	results := val.ParallelEvaluate(validate.Items(items), opts.workers, open)
	err = validate.OrderedCollect(results, func(r validate.WorkResult) error {
		if r.Err != nil {
			return r.Err
		}
		summaries[r.Key] = r.Summary
		fresh = append(fresh, duckdb.SummaryResult{Key: r.Key, Variant: r.Variant, Summary: r.Summary})
		return nil
	})
	if err != nil {
		return err
	}

	if store != nil && len(fresh) > 0 {
		run := duckdb.NewRun(fp, th)
		if err := store.BeginRun(run); err != nil {
			return err
		}
		if err := store.WriteSummaries(run.ID, fresh); err != nil {
			return err
		}
		logger.Debug("stored summaries", zap.String("run_id", run.ID), zap.Int("count", len(fresh)))
	}

	ordered := make([]output.Result, len(requests))
	for i, req := range requests {
		ordered[i] = output.Result{Key: req.key, Summary: summaries[req.key]}
	}
	return writer.Write(ordered)
}

// collectRequests parses --var specs and VCF and MAF records, dropping
// repeated keys. Any malformed variant aborts the run.
func collectRequests(logger *zap.Logger, opts runOptions) ([]request, error) {
	seen := make(map[string]bool)
	var reqs []request
	add := func(key string, v *variant.Variant) {
		if seen[key] {
			logger.Debug("duplicate variant", zap.String("variant", key))
			return
		}
		seen[key] = true
		reqs = append(reqs, request{key: key, variant: v})
	}

	for _, spec := range opts.vars {
		v, err := variant.Parse(spec)
		if err != nil {
			return nil, err
		}
		add(spec, v)
	}

	if opts.vcfPath != "" {
		vars, err := vcf.ReadVariants(opts.vcfPath, func(r *vcf.Record, reason string) {
			logger.Warn("skipping vcf record",
				zap.String("id", r.ID),
				zap.String("chrom", r.Chrom),
				zap.Int("pos", r.Pos),
				zap.String("alt", r.Alt),
				zap.String("reason", reason))
		})
		if err != nil {
			return nil, err
		}
		for _, v := range vars {
			add(v.String(), v)
		}
	}

	if opts.mafPath != "" {
		vars, err := maf.ReadVariants(opts.mafPath, func(r *maf.Record, reason string) {
			logger.Warn("skipping maf record",
				zap.String("chrom", r.Chrom),
				zap.Int("start", r.Start),
				zap.String("alt", r.Alt),
				zap.String("gene", r.HugoSymbol),
				zap.String("sample", r.SampleBarcode),
				zap.String("reason", reason))
		})
		if err != nil {
			return nil, err
		}
		for _, v := range vars {
			add(v.String(), v)
		}
	}

	return reqs, nil
}
