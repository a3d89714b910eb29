package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// GenerateIndex writes the .fai index of the FASTA data in "in" to "out",
// in the format produced by "samtools faidx".
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w       = tsv.NewWriter(out)
		r       = bufio.NewReader(in)
		cur     faiEntry
		started bool
		nRead   uint64
		err     error
	)
	emit := func() {
		if !started || err != nil {
			return
		}
		w.WriteString(cur.name)
		w.WriteInt64(int64(cur.length))
		w.WriteInt64(int64(cur.offset))
		w.WriteInt64(int64(cur.lineBases))
		w.WriteInt64(int64(cur.lineWidth))
		err = w.EndLine()
	}
	for err == nil {
		raw, e := r.ReadBytes('\n')
		if e != nil && e != io.EOF {
			return e
		}
		nRead += uint64(len(raw))
		line := bytes.TrimRight(raw, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			emit()
			cur = faiEntry{
				name:   string(bytes.SplitN(line[1:], []byte{' '}, 2)[0]),
				offset: nRead,
			}
			started = true
		case !started:
			err = errors.E("malformed FASTA file")
		default:
			if cur.lineWidth == 0 {
				cur.lineWidth = uint64(len(raw))
				cur.lineBases = uint64(len(line))
			}
			cur.length += uint64(len(line))
		}
		if e == io.EOF {
			break
		}
	}
	if err != nil {
		return err
	}
	if nRead == 0 {
		return errors.E("empty FASTA file")
	}
	emit()
	if err != nil {
		return err
	}
	return w.Flush()
}
