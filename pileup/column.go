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
package pileup

import (
	"github.com/grailbio/hts/sam"
)

// Column holds every read observation at one reference position, in read
// order.
type Column struct {
	Pos    int
	Tokens []Token
}

// Depth returns the number of reads covering the position, deletions
// included.
func (c *Column) Depth() int {
	n := 0
	for _, t := range c.Tokens {
		if k := t.Kind(); k == KindBase || k == KindDeleted {
			n++
		}
	}
	return n
}

// Columns builds one Column for each position in [start, end) from reads.
// Reads are used as given; filtering is the caller's job. Reads that
// AlignedOps rejects are left out, and their number is returned as nBad.
//
// An indel token is anchored on the last reference base the read aligned
// before the indel. Indels with no such base (a read starting with an
// insertion or a deletion, or an indel right after another deletion or a
// skipped region) get no indel token.
func Columns(reads []*sam.Record, start, end int) (cols []Column, nBad int) {
	if end < start {
		end = start
	}
	cols = make([]Column, end-start)
	for i := range cols {
		cols[i].Pos = start + i
	}
	add := func(pos int, t Token) {
		if pos >= start && pos < end {
			cols[pos-start].Tokens = append(cols[pos-start].Tokens, t)
		}
	}
	for _, r := range reads {
		if r.Pos >= end || r.End() <= start {
			continue
		}
		ops, err := AlignedOps(r)
		if err != nil {
			nBad++
			continue
		}
		seq := r.Seq.Expand()
		anchor := -1
		for _, op := range ops {
			switch op.Type {
			case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
				for k := 0; k < op.Len; k++ {
					add(op.RefPos+k, BaseToken(seq[op.ReadPos+k]))
				}
				anchor = op.RefPos + op.Len - 1
			case sam.CigarInsertion:
				if anchor >= 0 {
					add(anchor, InsertionToken(seq[op.ReadPos:op.ReadPos+op.Len]))
				}
			case sam.CigarDeletion:
				if anchor >= 0 {
					add(anchor, DeletionToken(op.Len))
				}
				for k := 0; k < op.Len; k++ {
					add(op.RefPos+k, DeletedBase)
				}
				anchor = -1
			case sam.CigarSkipped:
				anchor = -1
			}
		}
	}
	return cols, nBad
}

// MaxDeletionEnd returns the last reference position (inclusive) removed by
// any deletion token in cols, or -1 if there is none.
func MaxDeletionEnd(cols []Column) int {
	maxEnd := -1
	for i := range cols {
		for _, t := range cols[i].Tokens {
			if n := t.DeletionLen(); n > 0 && cols[i].Pos+n > maxEnd {
				maxEnd = cols[i].Pos + n
			}
		}
	}
	return maxEnd
}
