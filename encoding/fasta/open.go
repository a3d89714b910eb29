package fasta

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// Handle is a Fasta opened from a path by Open. Close must be called once
// the Fasta is no longer needed.
type Handle struct {
	Fasta
	in file.File
}

// Close releases the underlying file, if any is still open.
func (h *Handle) Close(ctx context.Context) error {
	if h.in == nil {
		return nil
	}
	err := h.in.Close(ctx)
	h.in = nil
	return err
}

// Open opens the FASTA file at path, which may be any path understood by
// grailbio/base/file. If path+".fai" exists, sequences are read on demand
// through the index; otherwise the whole file is loaded into memory,
// decompressing it first if the path ends in ".gz".
func Open(ctx context.Context, path string) (h *Handle, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "fasta.Open", path)
	}
	defer func() {
		if err != nil {
			in.Close(ctx) // nolint: errcheck
		}
	}()
	if !strings.HasSuffix(path, ".gz") {
		var idx file.File
		if idx, err = file.Open(ctx, path+".fai"); err == nil {
			defer idx.Close(ctx) // nolint: errcheck
			var fa Fasta
			if fa, err = NewIndexed(in.Reader(ctx), idx.Reader(ctx)); err != nil {
				return nil, errors.E(err, "fasta.Open", path+".fai")
			}
			return &Handle{Fasta: fa, in: in}, nil
		}
		if !errors.Is(errors.NotExist, err) {
			return nil, errors.E(err, "fasta.Open", path+".fai")
		}
	}
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(r); err != nil {
			return nil, errors.E(err, "fasta.Open", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	fa, err := New(r)
	if err != nil {
		return nil, errors.E(err, "fasta.Open", path)
	}
	return &Handle{Fasta: fa, in: in}, nil
}
