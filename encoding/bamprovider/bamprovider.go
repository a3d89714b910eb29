package bamprovider

import (
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for BAM files. Paths may be anything
// grailbio/base/file can open, e.g. local paths or S3 URLs.
//
// When the index file exists, iterators seek directly to the requested
// range. Otherwise they scan the file from the beginning, which is only
// reasonable for small inputs.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Index is the pathname of *.bam.bai file. If "", Path + ".bai"
	Index string
	err   errors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
	// noIndex is set once opening the index has failed with NotExist.
	noIndex bool
	idx     *bam.Index
}

type bamIterator struct {
	provider *BAMProvider
	in       file.File
	reader   *bam.Reader
	r        Range
	// refID is the ID of r's reference once a record on it has been seen,
	// -1 before.
	refID int

	rec  *sam.Record
	err  error
	done bool
}

// NewProvider creates a BAMProvider for path. An optional index path
// overrides the default path+".bai".
func NewProvider(path string, indexPath ...string) *BAMProvider {
	p := &BAMProvider{Path: path}
	if len(indexPath) > 0 {
		p.Index = indexPath[0]
	}
	return p
}

func (b *BAMProvider) indexPath() string {
	if b.Index == "" {
		return b.Path + ".bai"
	}
	return b.Index
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header != nil {
		return b.header, nil
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		b.err.Set(err)
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		err = errors.E(err, "bamprovider: reading header of", b.Path)
		b.err.Set(err)
		return nil, err
	}
	defer reader.Close() // nolint: errcheck
	b.header = reader.Header()
	return b.header, nil
}

// loadIndex returns the BAM index, or nil if there is none.
func (b *BAMProvider) loadIndex() (*bam.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx != nil || b.noIndex {
		return b.idx, nil
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.indexPath())
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			vlog.VI(1).Infof("%s: no index found, falling back to linear scan", b.indexPath())
			b.noIndex = true
			return nil, nil
		}
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	if b.idx, err = bam.ReadIndex(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, "bamprovider: reading index", b.indexPath())
	}
	return b.idx, nil
}

// NewIterator implements the Provider interface.
func (b *BAMProvider) NewIterator(r Range) Iterator {
	if r.Start >= r.End {
		return NewErrorIterator(fmt.Errorf("bamprovider: empty range %s:%d-%d", r.RefName, r.Start, r.End))
	}
	header, err := b.GetHeader()
	if err != nil {
		return NewErrorIterator(err)
	}
	ref := RefByName(header, r.RefName)
	if ref == nil {
		return NewErrorIterator(errors.E(errors.NotExist, fmt.Sprintf("bamprovider: reference '%s' not found in %s", r.RefName, b.Path)))
	}
	idx, err := b.loadIndex()
	if err != nil {
		return NewErrorIterator(err)
	}

	b.mu.Lock()
	b.nActive++
	b.mu.Unlock()
	iter := &bamIterator{provider: b, r: r, refID: -1}
	ctx := vcontext.Background()
	if iter.in, iter.err = file.Open(ctx, b.Path); iter.err != nil {
		return iter
	}
	if iter.reader, iter.err = bam.NewReader(iter.in.Reader(ctx), 1); iter.err != nil {
		return iter
	}
	if idx == nil {
		return iter
	}
	chunks, err := idx.Chunks(ref, r.Start, r.End)
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		// No reads are indexed in this interval.
		iter.done = true
		return iter
	}
	if err != nil {
		iter.err = err
		return iter
	}
	iter.err = iter.reader.Seek(chunks[0].Begin)
	return iter
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %s", b.nActive, b.Path)
	}
	return b.err.Err()
}

// Scan implements the Iterator interface.
func (i *bamIterator) Scan() bool {
	if i.err != nil || i.done {
		return false
	}
	for {
		rec, err := i.reader.Read()
		if err != nil {
			if err != io.EOF {
				i.err = err
			}
			i.done = true
			return false
		}
		if rec.Ref == nil {
			// Unmapped reads are sorted after all mapped ones.
			i.done = true
			return false
		}
		if rec.Ref.Name() != i.r.RefName {
			if i.refID >= 0 && rec.Ref.ID() > i.refID {
				i.done = true
				return false
			}
			continue
		}
		i.refID = rec.Ref.ID()
		if rec.Pos >= i.r.End {
			i.done = true
			return false
		}
		if Overlaps(rec, i.r) {
			i.rec = rec
			return true
		}
	}
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record {
	return i.rec
}

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	if i.reader != nil {
		if err := i.reader.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.reader = nil
	}
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.err == nil {
			i.err = err
		}
		i.in = nil
	}
	b := i.provider
	b.err.Set(i.err)
	b.mu.Lock()
	b.nActive--
	b.mu.Unlock()
	return i.err
}
