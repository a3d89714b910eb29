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
	"github.com/grailbio/polish/pileup"
)

// RegionResult is the output of one ParseRegion run over [Start, End).
type RegionResult struct {
	Chrom      string
	Start, End int
	// Windows holds one entry per detected window, in window order.
	Windows     []WindowCandidateList
	Diagnostics Diagnostics
}

// ParseRegion finds the windows of [start, end) on chrom and enumerates the
// allele candidates of each. For every window, pileup columns cover the
// window plus one trailing base, and the reference is fetched over the same
// span, extended to the end of the longest deletion seen there.
//
// A region without windows, including an empty region, yields a
// RegionResult with no Windows.
func ParseRegion(ctx context.Context, align AlignmentSource, ref ReferenceSource, chrom string, start, end int, opts *Opts) (*RegionResult, error) {
	if start < 0 || end < start {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("invalid region %s:%d-%d", chrom, start, end))
	}
	chromLen, err := ref.Length(ctx, chrom)
	if err != nil {
		return nil, err
	}
	if start == end {
		return &RegionResult{Chrom: chrom, Start: start, End: end, Windows: []WindowCandidateList{}}, nil
	}
	reads, err := align.Reads(ctx, chrom, start, end)
	if err != nil {
		return nil, err
	}
	span, err := readSpan(ctx, ref, chrom, start, min(end, chromLen), reads, opts.readFilter())
	if err != nil {
		return nil, err
	}
	windows, diag := DetectWindows(chrom, start, end, reads, span, opts)
	log.Debug.Printf("%s:%d-%d: %d reads, %d windows, %+v", chrom, start, end, len(reads), len(windows), diag)

	result := &RegionResult{
		Chrom:       chrom,
		Start:       start,
		End:         end,
		Windows:     make([]WindowCandidateList, 0, len(windows)),
		Diagnostics: diag,
	}
	for _, w := range windows {
		if opts.PrintWindows {
			log.Printf("window %v", w)
		}
		list, err := windowCandidates(ctx, align, ref, w, chromLen, opts)
		if err != nil {
			return nil, err
		}
		if opts.PrintCandidates {
			log.Printf("%s:%d-%d: %d candidates", list.Chrom, list.Start, list.End, len(list.Candidates))
			for _, c := range list.Candidates {
				log.Printf("  %v", c)
			}
		}
		result.Windows = append(result.Windows, list)
	}
	return result, nil
}

// readSpan fetches the reference bases under the reads accepted by filter,
// limited to [start, end).
func readSpan(ctx context.Context, ref ReferenceSource, chrom string, start, end int, reads []*sam.Record, filter pileup.ReadFilter) (RefSpan, error) {
	lo, hi := end, start
	for _, r := range reads {
		if !filter(r) {
			continue
		}
		if r.Pos < lo {
			lo = r.Pos
		}
		if e := r.End(); e > hi {
			hi = e
		}
	}
	lo, hi = max(lo, start), min(hi, end)
	if lo >= hi {
		return RefSpan{Start: start}, nil
	}
	seq, err := ref.Sequence(ctx, chrom, lo, hi)
	if err != nil {
		return RefSpan{}, err
	}
	return RefSpan{Start: lo, Seq: seq}, nil
}

func windowCandidates(ctx context.Context, align AlignmentSource, ref ReferenceSource, w Window, chromLen int, opts *Opts) (WindowCandidateList, error) {
	if w.Start >= chromLen {
		return EnumerateAlleles(w, w.Start, "", nil, opts), nil
	}
	colEnd := min(w.End+2, chromLen)
	cols, err := align.PileupColumns(ctx, w.Chrom, w.Start, colEnd)
	if err != nil {
		return WindowCandidateList{}, err
	}
	refEnd := colEnd
	if d := pileup.MaxDeletionEnd(cols); d+1 > refEnd {
		refEnd = min(d+1, chromLen)
	}
	seq, err := ref.Sequence(ctx, w.Chrom, w.Start, refEnd)
	if err != nil {
		return WindowCandidateList{}, err
	}
	return EnumerateAlleles(w, w.Start, seq, cols, opts), nil
}

// ProcessRegion runs ParseRegion on srcs and, when opts.OutputDir is set,
// writes the result to ArtifactPath. It returns the artifact path, or "" if
// nothing was written.
func ProcessRegion(ctx context.Context, srcs *Sources, chrom string, start, end int, opts *Opts) (*RegionResult, string, error) {
	result, err := ParseRegion(ctx, srcs.Alignment, srcs.Reference, chrom, start, end, opts)
	if err != nil {
		return nil, "", err
	}
	if opts.OutputDir == "" {
		return result, "", nil
	}
	path := ArtifactPath(opts.OutputDir, chrom, start, end)
	if err := WriteJSON(ctx, path, result); err != nil {
		return result, "", err
	}
	return result, path, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
