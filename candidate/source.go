// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package candidate

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/polish/encoding/bamprovider"
	"github.com/grailbio/polish/encoding/fasta"
	"github.com/grailbio/polish/pileup"
)

// AlignmentSource supplies reads and pileups. Implementations need not be
// safe for concurrent use.
type AlignmentSource interface {
	// Reads returns every read whose alignment overlaps [start, end), in
	// coordinate order.
	Reads(ctx context.Context, chrom string, start, end int) ([]*sam.Record, error)
	// PileupColumns returns one column per position in [start, end).
	PileupColumns(ctx context.Context, chrom string, start, end int) ([]pileup.Column, error)
}

// ReferenceSource supplies reference bases. Implementations need not be
// safe for concurrent use.
type ReferenceSource interface {
	// Sequence returns bases [start, end) of chrom.
	Sequence(ctx context.Context, chrom string, start, end int) (string, error)
	// Length returns the length of chrom.
	Length(ctx context.Context, chrom string) (int, error)
}

// BAMSource is an AlignmentSource reading from a bamprovider.Provider.
// Reads returns unfiltered reads; PileupColumns only uses reads accepted by
// Filter.
type BAMSource struct {
	Provider bamprovider.Provider
	Filter   pileup.ReadFilter
}

// Reads implements AlignmentSource.
func (s *BAMSource) Reads(ctx context.Context, chrom string, start, end int) (reads []*sam.Record, err error) {
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	iter := s.Provider.NewIterator(bamprovider.Range{RefName: chrom, Start: start, End: end})
	defer func() {
		if e := iter.Close(); e != nil && err == nil {
			err = errors.E(e, fmt.Sprintf("reading %s:%d-%d", chrom, start, end))
			reads = nil
		}
	}()
	for iter.Scan() {
		reads = append(reads, iter.Record())
	}
	return reads, nil
}

// PileupColumns implements AlignmentSource.
func (s *BAMSource) PileupColumns(ctx context.Context, chrom string, start, end int) ([]pileup.Column, error) {
	reads, err := s.Reads(ctx, chrom, start, end)
	if err != nil {
		return nil, err
	}
	cols, nBad := pileup.Columns(s.Filter.Filter(reads), start, end)
	if nBad > 0 {
		log.Debug.Printf("%s:%d-%d: skipped %d reads with malformed alignments", chrom, start, end, nBad)
	}
	return cols, nil
}

// FastaSource is a ReferenceSource backed by a fasta.Fasta.
type FastaSource struct {
	Fasta fasta.Fasta
}

// Sequence implements ReferenceSource.
func (s *FastaSource) Sequence(_ context.Context, chrom string, start, end int) (string, error) {
	if start < 0 {
		return "", errors.E(errors.Invalid, fmt.Sprintf("negative start %d for %s", start, chrom))
	}
	seq, err := s.Fasta.Get(chrom, uint64(start), uint64(end))
	if err != nil {
		return "", errors.E(err, fmt.Sprintf("reference %s:%d-%d", chrom, start, end))
	}
	return seq, nil
}

// Length implements ReferenceSource.
func (s *FastaSource) Length(_ context.Context, chrom string) (int, error) {
	n, err := s.Fasta.Len(chrom)
	if err != nil {
		return 0, errors.E(errors.NotExist, err, "reference", chrom)
	}
	return int(n), nil
}

// Sources is a private pair of sources owned by one region run.
type Sources struct {
	Alignment AlignmentSource
	Reference ReferenceSource
	// Closer, if set, releases the resources behind both sources.
	Closer func(ctx context.Context) error
}

// Close releases the sources.
func (s *Sources) Close(ctx context.Context) error {
	if s.Closer == nil {
		return nil
	}
	return s.Closer(ctx)
}

// SourceOpener creates a fresh Sources. Each shard calls it once, so that no
// file handle is shared between concurrent shards.
type SourceOpener func(ctx context.Context) (*Sources, error)

// FileSources returns a SourceOpener for a BAM file (with optional index
// path) and a FASTA file.
func FileSources(bamPath, indexPath, fastaPath string, opts *Opts) SourceOpener {
	filter := opts.readFilter()
	return func(ctx context.Context) (*Sources, error) {
		fa, err := fasta.Open(ctx, fastaPath)
		if err != nil {
			return nil, err
		}
		provider := bamprovider.NewProvider(bamPath, indexPath)
		if _, err := provider.GetHeader(); err != nil {
			fa.Close(ctx)    // nolint: errcheck
			provider.Close() // nolint: errcheck
			return nil, errors.E(err, "opening", bamPath)
		}
		return &Sources{
			Alignment: &BAMSource{Provider: provider, Filter: filter},
			Reference: &FastaSource{Fasta: fa},
			Closer: func(ctx context.Context) error {
				err := provider.Close()
				if e := fa.Close(ctx); e != nil && err == nil {
					err = e
				}
				return err
			},
		}, nil
	}
}
