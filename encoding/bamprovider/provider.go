// Package bamprovider reads alignments from a BAM file by genomic range.
package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// Range is a half-open coordinate range [Start, End) on one reference.
type Range struct {
	RefName    string
	Start, End int
}

// Provider reads records from a BAM file. A Provider is not safe for
// concurrent use; callers running in parallel each open their own.
type Provider interface {
	// GetHeader returns the BAM header. The caller must not modify it.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewIterator returns an iterator over the records whose alignment
	// overlaps r.
	//
	// REQUIRES: Close has not been called.
	NewIterator(r Range) Iterator

	// Close must be called exactly once. It returns any error encountered by
	// the provider or any of its iterators.
	//
	// REQUIRES: All the iterators created by NewIterator have been closed.
	Close() error
}

// Iterator yields sam.Records in coordinate order.
type Iterator interface {
	// Scan advances to the next record, returning false at the end of the
	// range or on error.
	Scan() bool

	// Record returns the current record. It must be called only after Scan()
	// returns true.
	Record() *sam.Record

	// Err returns the error encountered during iteration, if any.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// Overlaps reports whether the alignment of rec intersects r. Records
// without a reference or a CIGAR never overlap anything.
func Overlaps(rec *sam.Record, r Range) bool {
	if rec.Ref == nil || rec.Ref.Name() != r.RefName || len(rec.Cigar) == 0 {
		return false
	}
	return rec.Pos < r.End && rec.End() > r.Start
}

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

type errorIterator struct {
	err error
}

func (i *errorIterator) Scan() bool          { return false }
func (i *errorIterator) Record() *sam.Record { panic("shall not be called") }
func (i *errorIterator) Err() error          { return i.err }
func (i *errorIterator) Close() error        { return i.err }

// NewErrorIterator creates an Iterator that yields no record and returns "err"
// in Err and Close.
func NewErrorIterator(err error) Iterator {
	return &errorIterator{err: err}
}
