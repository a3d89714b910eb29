// Package fasta reads reference sequences from FASTA files, either fully
// into memory or by random access through a samtools-style ".fai" index.
//
// A FASTA file is a series of named records:
//
// >chr7 optional description
// ACGTAC
// GAGGAC
// >chr8
// ACGT
//
// The record name is the text between '>' and the first space.
package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Fasta represents a set of named reference sequences.
type Fasta interface {
	// Get returns bases [start, end) of the named sequence. Get is
	// thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the named sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the sequence names in file order.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all of r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	br := bufio.NewReaderSize(r, 1<<20)
	var (
		name string
		seq  bytes.Buffer
		seen bool
	)
	finish := func() error {
		if !seen {
			if seq.Len() != 0 {
				return errors.Errorf("malformed FASTA file: sequence data before the first header")
			}
			return nil
		}
		if _, ok := f.seqs[name]; ok {
			return errors.Errorf("malformed FASTA file: duplicate sequence %s", name)
		}
		f.seqs[name] = seq.String()
		f.seqNames = append(f.seqNames, name)
		seq.Reset()
		return nil
	}
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "couldn't read FASTA data")
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 && line[0] == '>' {
			if e := finish(); e != nil {
				return nil, e
			}
			name = string(bytes.SplitN(line[1:], []byte{' '}, 2)[0])
			seen = true
		} else {
			seq.Write(line)
		}
		if err == io.EOF {
			break
		}
	}
	if err := finish(); err != nil {
		return nil, err
	}
	if len(f.seqNames) == 0 {
		return nil, errors.Errorf("empty FASTA file")
	}
	return f, nil
}

func checkRange(seqName string, start, end, length uint64) error {
	if end <= start {
		return errors.Errorf("start must be less than end")
	}
	if end > length {
		return errors.Errorf("end is past end of sequence %s: %d", seqName, length)
	}
	return nil
}

// Get implements Fasta.Get().
func (f *fasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if err := checkRange(seqName, start, end, uint64(len(s))); err != nil {
		return "", err
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *fasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}
