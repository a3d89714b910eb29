package fasta

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// faiEntry is one line of a .fai index: name, number of bases, byte offset
// of the first base, bases per line, and bytes per line (including the line
// terminator).
type faiEntry struct {
	name      string
	length    uint64
	offset    uint64
	lineBases uint64
	lineWidth uint64
}

// byteOffset returns the file offset of the base at pos.
func (e *faiEntry) byteOffset(pos uint64) uint64 {
	return e.offset + (pos/e.lineBases)*e.lineWidth + pos%e.lineBases
}

func parseIndex(index io.Reader) ([]faiEntry, error) {
	var entries []faiEntry
	scanner := bufio.NewScanner(index)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, errors.Errorf("invalid index line %d: %q", lineNo, line)
		}
		ent := faiEntry{name: fields[0]}
		for i, dst := range []*uint64{&ent.length, &ent.offset, &ent.lineBases, &ent.lineWidth} {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid index line %d", lineNo)
			}
			*dst = v
		}
		if ent.lineBases == 0 || ent.lineWidth < ent.lineBases {
			return nil, errors.Errorf("invalid line geometry in index line %d: %q", lineNo, line)
		}
		entries = append(entries, ent)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA index")
	}
	return entries, nil
}

type indexedFasta struct {
	entries  map[string]*faiEntry
	seqNames []string

	mu  sync.Mutex
	in  io.ReadSeeker
	buf []byte
}

// NewIndexed creates a Fasta that reads bases from in on demand, using the
// .fai index to locate them. The caller keeps ownership of in.
func NewIndexed(in io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{entries: make(map[string]*faiEntry, len(entries)), in: in}
	for i := range entries {
		f.entries[entries[i].name] = &entries[i]
		f.seqNames = append(f.seqNames, entries[i].name)
	}
	return f, nil
}

// ReferenceLengths reads a .fai index and returns the length of every
// sequence it lists, without touching the FASTA data.
func ReferenceLengths(index io.Reader) (map[string]uint64, error) {
	entries, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64, len(entries))
	for _, e := range entries {
		lengths[e.name] = e.length
	}
	return lengths, nil
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	ent, ok := f.entries[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return ent.length, nil
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	ent, ok := f.entries[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if err := checkRange(seqName, start, end, ent.length); err != nil {
		return "", err
	}
	first := ent.byteOffset(start)
	n := int(ent.byteOffset(end-1) + 1 - first)

	f.mu.Lock()
	defer f.mu.Unlock()
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	f.buf = f.buf[:n]
	if _, err := f.in.Seek(int64(first), io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "seek %s:%d", seqName, start)
	}
	if _, err := io.ReadFull(f.in, f.buf); err != nil {
		return "", errors.Wrapf(err, "read %s:%d-%d (bad index?)", seqName, start, end)
	}
	// Drop line terminators. linePos tracks the column of buf[i] within its
	// line of lineWidth bytes.
	result := make([]byte, 0, end-start)
	linePos := start % ent.lineBases
	for _, b := range f.buf {
		if linePos < ent.lineBases {
			result = append(result, b)
		}
		linePos++
		if linePos == ent.lineWidth {
			linePos = 0
		}
	}
	return string(result), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}
