// Package alignment reads indexed BAM files and adapts their records to the
// read view used by the support classifier.
//
// biogo/hts works in 0-based half-open coordinates. This package converts to
// 1-based inclusive coordinates at its boundary and nowhere else.
package alignment

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"go.uber.org/zap"

	"github.com/inodb/vav/internal/support"
)

// LookupError reports a chromosome that is not in the BAM header.
type LookupError struct {
	Chrom string
	Path  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("chromosome %q not found in %s", e.Chrom, e.Path)
}

// Source is an opened, indexed BAM file. It is not safe for concurrent use.
type Source struct {
	path   string
	file   *os.File
	reader *bam.Reader
	index  *bam.Index
	refs   map[string]*sam.Reference
	logger *zap.Logger
}

// Open opens a BAM file and its index. The index is looked up as
// <path>.bai, then with the .bam extension replaced by .bai.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bam file: %w", err)
	}

	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read bam header: %w", err)
	}

	idx, err := readIndex(path)
	if err != nil {
		br.Close()
		f.Close()
		return nil, err
	}

	s := &Source{
		path:   path,
		file:   f,
		reader: br,
		index:  idx,
		refs:   make(map[string]*sam.Reference),
		logger: zap.NewNop(),
	}
	for _, r := range br.Header().Refs() {
		s.refs[r.Name()] = r
	}
	return s, nil
}

func readIndex(path string) (*bam.Index, error) {
	candidates := []string{path + ".bai"}
	if strings.HasSuffix(path, ".bam") {
		candidates = append(candidates, strings.TrimSuffix(path, ".bam")+".bai")
	}

	for _, p := range candidates {
		f, err := os.Open(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open bam index: %w", err)
		}
		idx, err := bam.ReadIndex(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read bam index %s: %w", p, err)
		}
		return idx, nil
	}
	return nil, fmt.Errorf("no bam index found for %s (tried %s)", path, strings.Join(candidates, ", "))
}

// SetLogger sets the logger for debug messages.
func (s *Source) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Path returns the BAM file path.
func (s *Source) Path() string {
	return s.path
}

// Close releases the reader and the underlying file.
func (s *Source) Close() error {
	err := s.reader.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Reference resolves a chromosome name. A name missing from the header is
// retried with the "chr" prefix added or removed.
func (s *Source) Reference(chrom string) (*sam.Reference, error) {
	if r, ok := s.refs[chrom]; ok {
		return r, nil
	}
	alt := "chr" + chrom
	if strings.HasPrefix(chrom, "chr") {
		alt = strings.TrimPrefix(chrom, "chr")
	}
	if r, ok := s.refs[alt]; ok {
		s.logger.Debug("resolved chromosome by prefix",
			zap.String("chrom", chrom),
			zap.String("reference", alt))
		return r, nil
	}
	return nil, &LookupError{Chrom: chrom, Path: s.path}
}

// Fetch returns the records overlapping the 1-based inclusive interval
// [start, end] on chrom, in non-decreasing start order.
func (s *Source) Fetch(chrom string, start, end int) (support.Reads, error) {
	ref, err := s.Reference(chrom)
	if err != nil {
		return nil, err
	}

	chunks, err := s.index.Chunks(ref, start-1, end)
	// A reference without reads, or a region past the last indexed tile,
	// has no coverage.
	if errors.Is(err, index.ErrNoReference) || errors.Is(err, index.ErrInvalid) {
		s.logger.Debug("no indexed reads in region",
			zap.String("chrom", chrom),
			zap.Int("start", start),
			zap.Int("end", end))
		return &Iterator{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query index %s:%d-%d: %w", chrom, start, end, err)
	}
	if len(chunks) == 0 {
		return &Iterator{}, nil
	}

	it, err := bam.NewIterator(s.reader, chunks)
	if err != nil {
		return nil, fmt.Errorf("seek %s:%d-%d: %w", chrom, start, end, err)
	}
	return &Iterator{it: it}, nil
}

// Iterator walks the records of one region query.
type Iterator struct {
	it  *bam.Iterator
	cur *Record
}

// Next advances to the next record.
func (i *Iterator) Next() bool {
	if i.it == nil || !i.it.Next() {
		return false
	}
	i.cur = &Record{rec: i.it.Record()}
	return true
}

// Read returns the current record.
func (i *Iterator) Read() support.Read {
	return i.cur
}

// Err returns the first error met while iterating.
func (i *Iterator) Err() error {
	if i.it == nil {
		return nil
	}
	return i.it.Error()
}

// Close releases the iterator.
func (i *Iterator) Close() error {
	if i.it == nil {
		return nil
	}
	return i.it.Close()
}

// Record adapts a BAM record to support.Read.
type Record struct {
	rec *sam.Record
}

// NewRecord wraps rec.
func NewRecord(rec *sam.Record) *Record {
	return &Record{rec: rec}
}

func (r *Record) Name() string { return r.rec.Name }

func (r *Record) Mapped() bool {
	return r.rec.Flags&sam.Unmapped == 0 && r.rec.Ref != nil && r.rec.Pos >= 0
}

func (r *Record) Start() int { return r.rec.Pos + 1 }

// End returns the last aligned reference position; biogo's exclusive 0-based
// end is the same number.
func (r *Record) End() int { return r.rec.End() }

func (r *Record) MapQ() int { return int(r.rec.MapQ) }

func (r *Record) AlignedQueryEnd() int { return alignedQueryEnd(r.rec) }

// Observations derives the record's aligned bases from CIGAR and MD.
func (r *Record) Observations() (support.Observations, error) {
	obs, err := observations(r.rec)
	if err != nil {
		return nil, err
	}
	return support.NewSliceObservations(obs), nil
}
