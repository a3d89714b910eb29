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

	"github.com/grailbio/polish/pileup"
)

// BaseFrequencyTable counts the tokens observed at one reference position.
type BaseFrequencyTable struct {
	Pos int
	// RefBase is the upper-cased reference base, or 0 if unknown.
	RefBase byte
	// Coverage is the number of reads covering Pos, deletions included.
	Coverage int
	Counts   map[pileup.Token]int
}

// AlleleCandidate is an alternate allele observed in a window. Start and End
// are the inclusive reference span the allele replaces.
type AlleleCandidate struct {
	Start, End int
	Ref, Alt   string
	Support    int
	Frequency  float64
}

func (c AlleleCandidate) String() string {
	return fmt.Sprintf("%d-%d %s>%s support=%d freq=%.4f", c.Start, c.End, c.Ref, c.Alt, c.Support, c.Frequency)
}

// WindowCandidateList holds the candidates of one window, together with the
// reference bases [RefStart, RefStart+len(Reference)) they were derived
// from. Candidates is never nil.
type WindowCandidateList struct {
	Chrom      string
	Start, End int
	RefStart   int
	Reference  string
	Candidates []AlleleCandidate
}

// BuildFrequencyTables returns one table per position of w, in order. A
// position with no column has zero coverage.
func BuildFrequencyTables(w Window, refStart int, refSeq string, cols []pileup.Column) []BaseFrequencyTable {
	byPos := make(map[int]*pileup.Column, len(cols))
	for i := range cols {
		byPos[cols[i].Pos] = &cols[i]
	}
	ref := RefSpan{Start: refStart, Seq: refSeq}
	tables := make([]BaseFrequencyTable, 0, w.End-w.Start+1)
	for pos := w.Start; pos <= w.End; pos++ {
		t := BaseFrequencyTable{Pos: pos, Counts: map[pileup.Token]int{}}
		if b, ok := ref.Base(pos); ok {
			t.RefBase = pileup.BaseToken(b)[0]
		}
		if c := byPos[pos]; c != nil {
			for _, tok := range c.Tokens {
				t.Counts[tok]++
			}
			t.Coverage = c.Depth()
		}
		tables = append(tables, t)
	}
	return tables
}

// EnumerateAlleles derives the allele candidates of window w from its pileup
// columns and the reference bases starting at refStart. A token becomes a
// candidate when it differs from the reference, is seen in at least
// opts.MinSupport reads, and in at least opts.MinFrequency of the reads
// covering its position.
//
// Candidates are ordered by decreasing support, then by Alt, Start and End.
func EnumerateAlleles(w Window, refStart int, refSeq string, cols []pileup.Column, opts *Opts) WindowCandidateList {
	list := WindowCandidateList{
		Chrom:      w.Chrom,
		Start:      w.Start,
		End:        w.End,
		RefStart:   refStart,
		Reference:  refSeq,
		Candidates: []AlleleCandidate{},
	}
	ref := RefSpan{Start: refStart, Seq: refSeq}
	for _, t := range BuildFrequencyTables(w, refStart, refSeq, cols) {
		if t.Coverage == 0 || t.RefBase == 0 || t.RefBase == 'N' {
			continue
		}
		refBase := string(t.RefBase)
		for tok, n := range t.Counts {
			freq := float64(n) / float64(t.Coverage)
			if n < opts.MinSupport || freq < opts.MinFrequency {
				continue
			}
			c := AlleleCandidate{Start: t.Pos, End: t.Pos, Support: n, Frequency: freq}
			switch tok.Kind() {
			case pileup.KindBase:
				if string(tok) == refBase || tok == "N" {
					continue
				}
				c.Ref, c.Alt = refBase, string(tok)
			case pileup.KindInsertion:
				c.Ref, c.Alt = refBase, refBase+tok.Inserted()
			case pileup.KindDeletion:
				c.End = t.Pos + tok.DeletionLen()
				c.Ref, c.Alt = refSubseq(ref, c.Start, c.End), refBase
			default:
				continue
			}
			list.Candidates = append(list.Candidates, c)
		}
	}
	sortCandidates(list.Candidates)
	return list
}

// refSubseq returns the upper-cased reference bases in [start, end],
// truncated at the first position the reference does not cover.
func refSubseq(ref RefSpan, start, end int) string {
	buf := make([]byte, 0, end-start+1)
	for pos := start; pos <= end; pos++ {
		b, ok := ref.Base(pos)
		if !ok {
			break
		}
		buf = append(buf, pileup.BaseToken(b)[0])
	}
	return string(buf)
}

func sortCandidates(c []AlleleCandidate) {
	sort.Slice(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Support != b.Support {
			return a.Support > b.Support
		}
		if a.Alt != b.Alt {
			return a.Alt < b.Alt
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}
