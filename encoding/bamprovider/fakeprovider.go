package bamprovider

import (
	"fmt"
	"sort"

	"github.com/grailbio/hts/sam"
)

// fakeProvider is only for unittests. It yields the given records.
type fakeProvider struct {
	header *sam.Header
	recs   []*sam.Record
}

type fakeIterator struct {
	recs []*sam.Record
	rec  *sam.Record
	r    Range
}

// NewFakeProvider creates a provider that returns "header" in response to a
// GetHeader() call, and the records of recs overlapping the requested range
// from its iterators. recs are sorted by coordinate first.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	sorted := append([]*sam.Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Ref.ID() != b.Ref.ID() {
			return a.Ref.ID() < b.Ref.ID()
		}
		return a.Pos < b.Pos
	})
	return &fakeProvider{header, sorted}
}

// GetHeader implements the Provider interface. It returns the header passed to
// the constructor.
func (b *fakeProvider) GetHeader() (*sam.Header, error) {
	return b.header, nil
}

// Close implements the Provider interface.
func (b *fakeProvider) Close() error {
	return nil
}

// NewIterator implements the Provider interface.
func (b *fakeProvider) NewIterator(r Range) Iterator {
	if RefByName(b.header, r.RefName) == nil {
		return NewErrorIterator(fmt.Errorf("bamprovider: reference '%s' not found", r.RefName))
	}
	return &fakeIterator{recs: b.recs, r: r}
}

// Err implements the Iterator interface.
func (i *fakeIterator) Err() error {
	return nil
}

// Close implements the Iterator interface.
func (i *fakeIterator) Close() error {
	return nil
}

// Scan implements the Iterator interface.
func (i *fakeIterator) Scan() bool {
	for len(i.recs) > 0 {
		i.rec = i.recs[0]
		i.recs = i.recs[1:]
		if Overlaps(i.rec, i.r) {
			return true
		}
	}
	return false
}

// Record implements the Iterator interface.
func (i *fakeIterator) Record() *sam.Record {
	// Return a copy so that the code under test cannot alter the
	// original test input data.
	copy := *i.rec
	return &copy
}
