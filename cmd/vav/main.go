// Package main provides the vav command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		vars       []string
		vcfPath    string
		mafPath    string
		outputFile string
		refresh    bool
		clearDB    bool
	)

	cmd := &cobra.Command{
		Use:   "vav [flags] <bam>",
		Short: "Variant allele validation against aligned reads",
		Long: `Classify every read of an indexed BAM that overlaps a variant as supporting
the reference, the alternate, another allele, or nothing, and summarize
the verdicts per variant.

Variants are written as CHROM:POS REF>ALT, where POS is 1-based and an
empty allele is written as '-'.`,
		Example: `  vav --var 2:29474101C>A sample.bam
  vav --var 1:100A>- --var 1:200A>ATT --format tab sample.bam
  vav --vcf calls.vcf.gz --workers 4 --db ~/.vav/results.duckdb sample.bam`,
		Version:      fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetBool("verbose"))
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			opts := runOptions{
				bamPath:    args[0],
				vars:       vars,
				vcfPath:    vcfPath,
				mafPath:    mafPath,
				outputFile: outputFile,
				format:     viper.GetString("format"),
				mapq:       viper.GetInt("mapq"),
				margin:     viper.GetInt("margin"),
				workers:    viper.GetInt("workers"),
				dbPath:     viper.GetString("db"),
				refresh:    refresh,
				clearDB:    clearDB,
			}
			return runValidate(cmd.OutOrStdout(), logger, opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&vars, "var", nil, "Variant to validate, e.g. 2:29474101C>A (repeatable)")
	f.StringVar(&vcfPath, "vcf", "", "Read variants from a VCF file (plain or gzipped)")
	f.StringVar(&mafPath, "maf", "", "Read variants from a MAF file (plain or gzipped)")
	f.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	f.BoolVar(&refresh, "refresh", false, "Ignore cached summaries in the result database")
	f.BoolVar(&clearDB, "clear-db", false, "Remove all stored runs from the result database before evaluating")
	f.Int("mapq", 30, "Minimum mapping quality for proper alternate support")
	f.Int("margin", 10, "Minimum aligned bases on each side of the variant")
	f.String("format", "json", "Output format: json, tab")
	f.Int("workers", 1, "Number of variants evaluated in parallel")
	f.String("db", "", "DuckDB result database (disabled when empty)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log per-read decisions")

	for _, name := range []string{"mapq", "margin", "format", "workers", "db"} {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
	_ = viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newLogger builds a console logger on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}
