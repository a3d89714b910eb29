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

// Package pileup turns aligned reads into per-position observations.
package pileup

import (
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// Token is a single read observation at a reference position.
//
// Every read covering a position contributes exactly one base token ("A",
// "C", "G", "T", "N") or, inside a deletion, DeletedBase. In addition, the
// last reference base aligned before an insertion or a deletion carries an
// indel token: "+<inserted bases>" or "-<deleted length>".
type Token string

// DeletedBase marks a position covered by a deletion in the read.
const DeletedBase Token = "*"

// TokenKind classifies tokens.
type TokenKind int

const (
	// KindBase is a single read base.
	KindBase TokenKind = iota
	// KindDeleted is DeletedBase.
	KindDeleted
	// KindInsertion is an insertion following the position.
	KindInsertion
	// KindDeletion is a deletion following the position.
	KindDeletion
)

// BaseToken returns the token for read base b. Anything other than A/C/G/T
// (in either case) becomes "N".
func BaseToken(b byte) Token {
	switch b {
	case 'A', 'a':
		return "A"
	case 'C', 'c':
		return "C"
	case 'G', 'g':
		return "G"
	case 'T', 't':
		return "T"
	}
	return "N"
}

// InsertionToken returns the token for an insertion of seq.
func InsertionToken(seq []byte) Token {
	return Token("+" + strings.ToUpper(string(seq)))
}

// DeletionToken returns the token for a deletion of n reference bases.
func DeletionToken(n int) Token {
	return Token("-" + strconv.Itoa(n))
}

// Kind returns the kind of t.
func (t Token) Kind() TokenKind {
	switch {
	case t == DeletedBase:
		return KindDeleted
	case strings.HasPrefix(string(t), "+"):
		return KindInsertion
	case strings.HasPrefix(string(t), "-"):
		return KindDeletion
	}
	return KindBase
}

// Inserted returns the inserted bases of an insertion token.
func (t Token) Inserted() string {
	return strings.TrimPrefix(string(t), "+")
}

// DeletionLen returns the number of deleted bases of a deletion token, or 0
// for any other token.
func (t Token) DeletionLen() int {
	if t.Kind() != KindDeletion {
		return 0
	}
	n, err := strconv.Atoi(string(t[1:]))
	if err != nil {
		return 0
	}
	return n
}

// DefaultFlagExclude drops unmapped, secondary, QC-failed and duplicate
// reads.
const DefaultFlagExclude = sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate

// FilterOpts configures NewReadFilter.
type FilterOpts struct {
	// FlagExclude drops reads with any of these FLAG bits set.
	FlagExclude sam.Flags
	// MinMapQ drops reads with a lower mapping quality.
	MinMapQ int
}

// ReadFilter reports whether a read should be used.
type ReadFilter func(r *sam.Record) bool

// NewReadFilter returns a ReadFilter implementing opts. Reads without a
// reference or a CIGAR are always dropped.
func NewReadFilter(opts FilterOpts) ReadFilter {
	return func(r *sam.Record) bool {
		if r.Ref == nil || len(r.Cigar) == 0 {
			return false
		}
		if r.Flags&opts.FlagExclude != 0 {
			return false
		}
		return int(r.MapQ) >= opts.MinMapQ
	}
}

// Filter returns the reads accepted by f, preserving order.
func (f ReadFilter) Filter(reads []*sam.Record) []*sam.Record {
	if f == nil {
		return reads
	}
	kept := make([]*sam.Record, 0, len(reads))
	for _, r := range reads {
		if f(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
