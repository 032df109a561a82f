// Package bamtest writes small indexed BAM files for tests.
package bamtest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/sam"
)

// Reference is a header sequence.
type Reference struct {
	Name   string
	Length int
}

// Read is one alignment. Pos is 1-based. An empty MD writes no MD tag.
type Read struct {
	Name     string
	Chrom    string
	Pos      int
	MapQ     byte
	Cigar    string
	Seq      string
	MD       string
	Unmapped bool
}

// WriteIndexed writes reads, which must be sorted by chromosome and
// position, to path and builds path+".bai".
func WriteIndexed(path string, refs []Reference, reads []Read) error {
	if err := write(path, refs, reads); err != nil {
		return err
	}
	return writeIndex(path)
}

func write(path string, refs []Reference, reads []Read) error {
	byName := make(map[string]*sam.Reference, len(refs))
	srefs := make([]*sam.Reference, 0, len(refs))
	for _, r := range refs {
		sr, err := sam.NewReference(r.Name, "", "", r.Length, nil, nil)
		if err != nil {
			return fmt.Errorf("reference %s: %w", r.Name, err)
		}
		byName[r.Name] = sr
		srefs = append(srefs, sr)
	}
	h, err := sam.NewHeader(nil, srefs)
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}
	h.SortOrder = sam.Coordinate

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw, err := bam.NewWriter(f, h, 1)
	if err != nil {
		return fmt.Errorf("bam writer: %w", err)
	}

	mdTag := sam.NewTag("MD")
	for _, r := range reads {
		ref, ok := byName[r.Chrom]
		if !ok {
			return fmt.Errorf("read %s: unknown chromosome %s", r.Name, r.Chrom)
		}
		cigar, err := sam.ParseCigar([]byte(r.Cigar))
		if err != nil {
			return fmt.Errorf("read %s: %w", r.Name, err)
		}
		var aux []sam.Aux
		if r.MD != "" {
			a, err := sam.NewAux(mdTag, r.MD)
			if err != nil {
				return fmt.Errorf("read %s: %w", r.Name, err)
			}
			aux = append(aux, a)
		}
		qual := make([]byte, len(r.Seq))
		for i := range qual {
			qual[i] = 30
		}
		rec, err := sam.NewRecord(r.Name, ref, nil, r.Pos-1, -1, 0, r.MapQ, cigar, []byte(r.Seq), qual, aux)
		if err != nil {
			return fmt.Errorf("read %s: %w", r.Name, err)
		}
		if r.Unmapped {
			rec.Flags |= sam.Unmapped
		}
		if err := bw.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", r.Name, err)
		}
	}
	return bw.Close()
}

// tileShift is the log2 width of a linear index tile.
const tileShift = 14

// refIndex collects the bins and linear index of one reference.
type refIndex struct {
	bins  map[uint32][]bgzf.Chunk
	tiles []int64 // offset of the first record overlapping each tile, -1 if none
}

// writeIndex builds path+".bai" from the records as written. Every tile a
// record overlaps carries the record's start offset unless an earlier record
// already claimed it.
func writeIndex(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	if err != nil {
		return fmt.Errorf("reopen bam: %w", err)
	}
	defer br.Close()

	refs := make([]refIndex, len(br.Header().Refs()))
	var unplaced uint64
	for {
		rec, err := br.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read back: %w", err)
		}
		chunk := br.LastChunk()
		if rec.Ref == nil || rec.Pos < 0 {
			unplaced++
			continue
		}
		ri := &refs[rec.Ref.ID()]
		if ri.bins == nil {
			ri.bins = make(map[uint32][]bgzf.Chunk)
		}
		bin := uint32(rec.Bin())
		ri.bins[bin] = appendChunk(ri.bins[bin], chunk)

		first, last := rec.Pos>>tileShift, (rec.End()-1)>>tileShift
		for len(ri.tiles) <= last {
			ri.tiles = append(ri.tiles, -1)
		}
		for t := first; t <= last; t++ {
			if ri.tiles[t] < 0 {
				ri.tiles[t] = voffset(chunk.Begin)
			}
		}
	}

	out, err := os.Create(path + ".bai")
	if err != nil {
		return err
	}
	if err := encodeIndex(out, refs, unplaced); err != nil {
		out.Close()
		return fmt.Errorf("write index: %w", err)
	}
	return out.Close()
}

// appendChunk extends the last chunk when c follows it directly.
func appendChunk(chunks []bgzf.Chunk, c bgzf.Chunk) []bgzf.Chunk {
	if n := len(chunks); n > 0 && chunks[n-1].End == c.Begin {
		chunks[n-1].End = c.End
		return chunks
	}
	return append(chunks, c)
}

func voffset(o bgzf.Offset) int64 {
	return o.File<<16 | int64(o.Block)
}

func encodeIndex(w io.Writer, refs []refIndex, unplaced uint64) error {
	bw := bufio.NewWriter(w)
	put := func(v any) error { return binary.Write(bw, binary.LittleEndian, v) }

	if err := put([4]byte{'B', 'A', 'I', 0x1}); err != nil {
		return err
	}
	if err := put(int32(len(refs))); err != nil {
		return err
	}
	for _, ri := range refs {
		bins := make([]uint32, 0, len(ri.bins))
		for b := range ri.bins {
			bins = append(bins, b)
		}
		slices.Sort(bins)

		if err := put(int32(len(bins))); err != nil {
			return err
		}
		for _, b := range bins {
			chunks := ri.bins[b]
			if err := put(b); err != nil {
				return err
			}
			if err := put(int32(len(chunks))); err != nil {
				return err
			}
			for _, c := range chunks {
				if err := put([2]int64{voffset(c.Begin), voffset(c.End)}); err != nil {
					return err
				}
			}
		}

		// Empty tiles take the previous tile's offset so the list stays
		// non-decreasing; leading empty tiles are zero.
		var prev int64
		tiles := make([]int64, len(ri.tiles))
		for i, t := range ri.tiles {
			if t >= 0 {
				prev = t
			}
			tiles[i] = prev
		}
		if err := put(int32(len(tiles))); err != nil {
			return err
		}
		if err := put(tiles); err != nil {
			return err
		}
	}
	if err := put(unplaced); err != nil {
		return err
	}
	return bw.Flush()
}
