package fasta_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/polish/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const (
	fastaData  = ">seq1\nACGTA\nCGTAC\nGT\n>seq2 A viral sequence\nACGT\nACGT\n"
	fastaIndex = "seq1\t12\t6\t5\t6\nseq2\t8\t44\t4\t5\n"
)

func newBoth(t *testing.T) []fasta.Fasta {
	unindexed, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	indexed, err := fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader(fastaIndex))
	assert.NoError(t, err)
	return []fasta.Fasta{unindexed, indexed}
}

func TestGet(t *testing.T) {
	tests := []struct {
		seq        string
		start, end uint64
		want       string
		wantErr    bool
	}{
		{"seq1", 1, 2, "C", false},
		{"seq1", 1, 6, "CGTAC", false},
		{"seq1", 0, 12, "ACGTACGTACGT", false},
		{"seq1", 4, 11, "ACGTACG", false},
		{"seq1", 10, 12, "GT", false},
		{"seq2", 0, 8, "ACGTACGT", false},
		{"seq2", 2, 5, "GTA", false},
		{"seq0", 0, 1, "", true},
		{"seq1", 10, 13, "", true},
		{"seq1", 4, 3, "", true},
	}
	for _, fa := range newBoth(t) {
		for _, tt := range tests {
			got, err := fa.Get(tt.seq, tt.start, tt.end)
			if tt.wantErr {
				expect.NotNil(t, err, "%s:%d-%d", tt.seq, tt.start, tt.end)
				continue
			}
			expect.NoError(t, err)
			expect.EQ(t, got, tt.want, "%s:%d-%d", tt.seq, tt.start, tt.end)
		}
	}
}

func TestLenAndSeqNames(t *testing.T) {
	for _, fa := range newBoth(t) {
		n, err := fa.Len("seq1")
		expect.NoError(t, err)
		expect.EQ(t, n, uint64(12))
		n, err = fa.Len("seq2")
		expect.NoError(t, err)
		expect.EQ(t, n, uint64(8))
		_, err = fa.Len("seq0")
		expect.NotNil(t, err)
		expect.EQ(t, fa.SeqNames(), []string{"seq1", "seq2"})
	}
}

func TestMalformed(t *testing.T) {
	_, err := fasta.New(strings.NewReader("ACGT\n>seq1\nACGT\n"))
	expect.NotNil(t, err)
	_, err = fasta.New(strings.NewReader(""))
	expect.NotNil(t, err)
	_, err = fasta.New(strings.NewReader(">a\nAC\n>a\nGT\n"))
	expect.NotNil(t, err)
	_, err = fasta.NewIndexed(strings.NewReader(fastaData), strings.NewReader("seq1\t12\t6\n"))
	expect.NotNil(t, err)
}

func TestReferenceLengths(t *testing.T) {
	lengths, err := fasta.ReferenceLengths(strings.NewReader("chr1\t250000000\t6\t60\t61\nchr2\t199000000\t6\t60\t61\n"))
	assert.NoError(t, err)
	expect.EQ(t, lengths, map[string]uint64{"chr1": 250000000, "chr2": 199000000})
}

func TestGenerateIndex(t *testing.T) {
	generateIndex := func(fa string) string {
		idx := bytes.Buffer{}
		assert.NoError(t, fasta.GenerateIndex(&idx, strings.NewReader(fa)))
		return idx.String()
	}
	fa := ">E0\nGGTGAAATC\nCCTGAAATC\nAAAATTGCT\n>E1\nGTCCCTCCCCAGACATGGCCCTGGGAGGC\n>E2 desc\nCCGCGC\n"
	fai := generateIndex(fa)
	assert.EQ(t, fai, "E0\t27\t4\t9\t10\nE1\t29\t38\t29\t30\nE2\t6\t77\t6\t7\n")

	indexed, err := fasta.NewIndexed(strings.NewReader(fa), strings.NewReader(fai))
	assert.NoError(t, err)
	seq, err := indexed.Get("E0", 7, 20)
	assert.NoError(t, err)
	assert.EQ(t, seq, "TCCCTGAAATCAA")

	assert.EQ(t, generateIndex(">E0\r\nGGGG\r\n>E1\r\nAAAAA\r\n"), "E0\t4\t5\t4\t6\nE1\t5\t16\t5\t7\n")
	assert.EQ(t, generateIndex(">E0\nGGGG\n>E1\nCCCCC\nAAAAA"), "E0\t4\t4\t4\t5\nE1\t10\t13\t5\t6\n")

	idx := bytes.Buffer{}
	assert.Regexp(t, fasta.GenerateIndex(&idx, strings.NewReader("")), "empty FASTA")
}

func TestOpen(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	write := func(path string, data []byte) {
		out, err := file.Create(ctx, path)
		assert.NoError(t, err)
		_, err = out.Writer(ctx).Write(data)
		assert.NoError(t, err)
		assert.NoError(t, out.Close(ctx))
	}
	plain := filepath.Join(tmpdir, "plain.fa")
	write(plain, []byte(fastaData))
	indexed := filepath.Join(tmpdir, "indexed.fa")
	write(indexed, []byte(fastaData))
	write(indexed+".fai", []byte(fastaIndex))
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	gzipped := filepath.Join(tmpdir, "gzipped.fa.gz")
	write(gzipped, gz.Bytes())

	for _, path := range []string{plain, indexed, gzipped} {
		h, err := fasta.Open(ctx, path)
		assert.NoError(t, err, path)
		seq, err := h.Get("seq1", 3, 9)
		expect.NoError(t, err)
		expect.EQ(t, seq, "TACGTA", path)
		assert.NoError(t, h.Close(ctx))
	}
	_, err = fasta.Open(ctx, filepath.Join(tmpdir, "missing.fa"))
	expect.NotNil(t, err)
}
