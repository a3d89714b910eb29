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
	"fmt"

	"github.com/grailbio/hts/sam"
)

// AlignedOp is one CIGAR operation placed on reference and read
// coordinates. RefPos and ReadPos are the coordinates of the first
// reference/read base the operation touches (or would touch, for operations
// that don't consume one of them).
type AlignedOp struct {
	Type    sam.CigarOpType
	RefPos  int
	ReadPos int
	Len     int
}

// AlignedOps places every CIGAR operation of r, in order. It fails if the
// CIGAR uses an unknown operation, or consumes more read bases than r.Seq
// holds (e.g. SEQ is "*").
func AlignedOps(r *sam.Record) ([]AlignedOp, error) {
	ops := make([]AlignedOp, 0, len(r.Cigar))
	posInRef := r.Pos
	posInRead := 0
	for _, co := range r.Cigar {
		cLen := co.Len()
		op := AlignedOp{Type: co.Type(), RefPos: posInRef, ReadPos: posInRead, Len: cLen}
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			posInRef += cLen
			posInRead += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped:
			posInRead += cLen
		case sam.CigarDeletion, sam.CigarSkipped:
			posInRef += cLen
		case sam.CigarHardClipped, sam.CigarPadded:
			// do nothing
		default:
			return nil, fmt.Errorf("pileup.AlignedOps: unexpected CIGAR code %v in read %s", co, r.Name)
		}
		ops = append(ops, op)
	}
	if posInRead > r.Seq.Length {
		return nil, fmt.Errorf("pileup.AlignedOps: read %s has %d bases, CIGAR needs %d", r.Name, r.Seq.Length, posInRead)
	}
	return ops, nil
}
