// Package maf reads variants from MAF (Mutation Annotation Format) files.
package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vav/internal/variant"
)

// Standard MAF column names
const (
	ColChromosome      = "Chromosome"
	ColStartPosition   = "Start_Position"
	ColReferenceAllele = "Reference_Allele"
	ColTumorSeqAllele2 = "Tumor_Seq_Allele2"
	ColHugoSymbol      = "Hugo_Symbol"
	ColSampleBarcode   = "Tumor_Sample_Barcode"
)

// ColumnIndices holds the indices of the MAF columns vav reads.
type ColumnIndices struct {
	Chromosome      int
	StartPosition   int
	ReferenceAllele int
	TumorSeqAllele2 int
	HugoSymbol      int
	SampleBarcode   int
}

// Record is one MAF data row. Alleles keep the MAF '-' convention. Gene and
// sample identify skipped rows in warnings.
type Record struct {
	Chrom         string
	Start         int
	Ref           string
	Alt           string
	HugoSymbol    string
	SampleBarcode string
}

// IsInsertion reports whether the row is an insertion between Start and
// Start+1.
func (r *Record) IsInsertion() bool {
	return r.Ref == "-" || r.Ref == ""
}

// Variant converts the row into a variant. MAF deletions start at the first
// deleted base, so the variant is anchored one base earlier in the
// abbreviated deletion form. Insertions have no anchor base in MAF and
// cannot be converted.
func (r *Record) Variant() (*variant.Variant, error) {
	if r.IsInsertion() {
		return nil, fmt.Errorf("insertion %s:%d->%s has no anchor base", r.Chrom, r.Start, r.Alt)
	}
	if r.Alt == "-" || r.Alt == "" {
		return variant.FromAlleles(r.Chrom, r.Start-1, r.Ref, "-")
	}
	return variant.FromAlleles(r.Chrom, r.Start, r.Ref, r.Alt)
}

// Parser reads records from a MAF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	columns    ColumnIndices
}

// NewParser creates a new MAF parser for the given file.
// Supports both plain MAF and gzipped MAF (.maf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}

	p := &Parser{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read maf header: %w", err)
	}

	// Seek back to beginning
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek maf file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(r),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads and parses the MAF header line to find column indices.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{
					Line:    p.lineNumber,
					Message: "no header line found",
				}
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		// Skip comment lines (#version 2.4) and blank lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		return p.parseColumnIndices(line)
	}
}

// parseColumnIndices parses the header line to find column indices.
func (p *Parser) parseColumnIndices(headerLine string) error {
	columns := strings.Split(headerLine, "\t")

	// Initialize all indices to -1 (not found)
	p.columns = ColumnIndices{
		Chromosome:      -1,
		StartPosition:   -1,
		ReferenceAllele: -1,
		TumorSeqAllele2: -1,
		HugoSymbol:      -1,
		SampleBarcode:   -1,
	}

	for i, col := range columns {
		switch col {
		case ColChromosome:
			p.columns.Chromosome = i
		case ColStartPosition:
			p.columns.StartPosition = i
		case ColReferenceAllele:
			p.columns.ReferenceAllele = i
		case ColTumorSeqAllele2:
			p.columns.TumorSeqAllele2 = i
		case ColHugoSymbol:
			p.columns.HugoSymbol = i
		case ColSampleBarcode:
			p.columns.SampleBarcode = i
		}
	}

	required := []struct {
		name string
		idx  int
	}{
		{ColChromosome, p.columns.Chromosome},
		{ColStartPosition, p.columns.StartPosition},
		{ColReferenceAllele, p.columns.ReferenceAllele},
		{ColTumorSeqAllele2, p.columns.TumorSeqAllele2},
	}
	for _, r := range required {
		if r.idx == -1 {
			return &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("required column '%s' not found in header", r.name),
			}
		}
	}

	return nil
}

// Next reads the next record from the MAF file.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseLine(line)
	}
}

// parseLine parses a single MAF data line.
func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")

	minCols := max(p.columns.Chromosome, p.columns.StartPosition, p.columns.ReferenceAllele, p.columns.TumorSeqAllele2)
	if len(fields) <= minCols {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}

	start, err := strconv.Atoi(fields[p.columns.StartPosition])
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[p.columns.StartPosition]),
		}
	}

	return &Record{
		Chrom:         fields[p.columns.Chromosome],
		Start:         start,
		Ref:           fields[p.columns.ReferenceAllele],
		Alt:           fields[p.columns.TumorSeqAllele2],
		HugoSymbol:    optional(fields, p.columns.HugoSymbol),
		SampleBarcode: optional(fields, p.columns.SampleBarcode),
	}, nil
}

func optional(fields []string, idx int) string {
	if idx >= 0 && idx < len(fields) {
		return fields[idx]
	}
	return ""
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ReadVariants reads every row of the MAF at path and converts it to a
// variant. Rows that cannot be expressed as a variant are reported through
// skip, which may be nil.
func ReadVariants(path string, skip func(r *Record, reason string)) ([]*variant.Variant, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var out []*variant.Variant
	for {
		rec, err := p.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return out, nil
		}
		if rec.IsInsertion() {
			if skip != nil {
				skip(rec, "insertion without anchor base")
			}
			continue
		}
		v, err := rec.Variant()
		if err != nil {
			return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
		}
		out = append(out, v)
	}
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
