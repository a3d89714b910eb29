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
	"fmt"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/polish/pileup"
)

// DivergentPosition is a reference position where at least one read
// disagrees with the reference.
type DivergentPosition struct {
	Pos     int
	Support int
}

// Window is a closed interval [Start, End] of merged divergent positions.
type Window struct {
	Chrom      string
	Start, End int
	// Support is the total number of divergent observations in the window.
	Support int
}

func (w Window) String() string {
	return fmt.Sprintf("%s:%d-%d (support %d)", w.Chrom, w.Start, w.End, w.Support)
}

// Diagnostics counts the anomalies absorbed while scanning reads.
type Diagnostics struct {
	// FilteredReads were rejected by the read filter.
	FilteredReads int
	// BadReads had a CIGAR that could not be placed, or fewer bases than
	// their CIGAR consumes.
	BadReads int
	// MissingRef counts read bases aligned to a position the reference could
	// not supply.
	MissingRef int
}

// RefBases gives access to single reference bases.
type RefBases interface {
	// Base returns the reference base at pos, or false if it is not
	// available.
	Base(pos int) (byte, bool)
}

// RefSpan is a RefBases holding the reference bases [Start, Start+len(Seq)).
type RefSpan struct {
	Start int
	Seq   string
}

// Base implements RefBases.
func (s RefSpan) Base(pos int) (byte, bool) {
	if pos < s.Start || pos >= s.Start+len(s.Seq) {
		return 0, false
	}
	return s.Seq[pos-s.Start], true
}

// DetectWindows scans reads for positions in [start, end) that disagree with
// the reference, and merges them into windows: a divergent position within
// opts.MaxGap of the previous one extends its window. The result is sorted
// and non-overlapping, and depends only on the reads and their order.
func DetectWindows(chrom string, start, end int, reads []*sam.Record, ref RefBases, opts *Opts) ([]Window, Diagnostics) {
	var diag Diagnostics
	filter := opts.readFilter()
	support := map[int]int{}
	flag := func(pos int) {
		if pos >= start && pos < end {
			support[pos]++
		}
	}
	for _, r := range reads {
		if !filter(r) {
			diag.FilteredReads++
			continue
		}
		ops, err := pileup.AlignedOps(r)
		if err != nil {
			diag.BadReads++
			log.Debug.Printf("DetectWindows: skipping read %s: %v", r.Name, err)
			continue
		}
		seq := r.Seq.Expand()
		anchor := -1
		for _, op := range ops {
			switch op.Type {
			case sam.CigarMatch:
				for k := 0; k < op.Len; k++ {
					pos := op.RefPos + k
					if pos < start || pos >= end {
						continue
					}
					refBase, ok := ref.Base(pos)
					if !ok {
						diag.MissingRef++
						continue
					}
					rt, bt := pileup.BaseToken(refBase), pileup.BaseToken(seq[op.ReadPos+k])
					if rt != "N" && bt != "N" && rt != bt {
						flag(pos)
					}
				}
				anchor = op.RefPos + op.Len - 1
			case sam.CigarMismatch:
				for k := 0; k < op.Len; k++ {
					flag(op.RefPos + k)
				}
				anchor = op.RefPos + op.Len - 1
			case sam.CigarEqual:
				anchor = op.RefPos + op.Len - 1
			case sam.CigarInsertion:
				if anchor >= 0 {
					flag(anchor)
				} else {
					flag(op.RefPos)
				}
			case sam.CigarDeletion:
				// The deletion token sits on the anchor, so the window must
				// include it.
				if anchor >= 0 {
					flag(anchor)
				}
				for k := 0; k < op.Len; k++ {
					flag(op.RefPos + k)
				}
				anchor = -1
			case sam.CigarSkipped:
				anchor = -1
			}
		}
	}
	if diag.MissingRef > 0 {
		log.Debug.Printf("DetectWindows: %s:%d-%d: %d read bases had no reference base", chrom, start, end, diag.MissingRef)
	}

	positions := make([]DivergentPosition, 0, len(support))
	for pos, n := range support {
		positions = append(positions, DivergentPosition{Pos: pos, Support: n})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Pos < positions[j].Pos })
	return mergePositions(chrom, positions, opts.MaxGap), diag
}

// mergePositions folds sorted, distinct positions into windows.
func mergePositions(chrom string, positions []DivergentPosition, maxGap int) []Window {
	var windows []Window
	for _, p := range positions {
		if n := len(windows); n > 0 && p.Pos-windows[n-1].End <= maxGap {
			windows[n-1].End = p.Pos
			windows[n-1].Support += p.Support
			continue
		}
		windows = append(windows, Window{Chrom: chrom, Start: p.Pos, End: p.Pos, Support: p.Support})
	}
	return windows
}
