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
package candidate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/polish/candidate"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func testRegion() *candidate.RegionResult {
	return &candidate.RegionResult{
		Chrom: "3",
		Start: 100000,
		End:   200000,
		Windows: []candidate.WindowCandidateList{
			{
				Chrom: "3", Start: 120010, End: 120013, RefStart: 120010, Reference: "ACGTA",
				Candidates: []candidate.AlleleCandidate{
					{Start: 120010, End: 120013, Ref: "ACGT", Alt: "A", Support: 7, Frequency: 0.7},
					{Start: 120012, End: 120012, Ref: "G", Alt: "T", Support: 2, Frequency: 0.2},
				},
			},
			{
				Chrom: "3", Start: 150000, End: 150000, RefStart: 150000, Reference: "AC",
				Candidates: []candidate.AlleleCandidate{},
			},
		},
	}
}

func TestMarshalRegion(t *testing.T) {
	data, err := candidate.MarshalRegion(testRegion())
	assert.NoError(t, err)
	s := string(data)
	expect.True(t, strings.HasSuffix(s, "}\n"))
	expect.True(t, strings.Contains(s, "\n    \"all_candidates\": ["), s)

	// Keys come out sorted.
	last := -1
	for _, key := range []string{`"all_candidates"`, `"candidates"`, `"alt"`, `"end"`, `"frequency"`, `"ref"`, `"start"`, `"support"`} {
		i := strings.Index(s, key)
		expect.True(t, i > last, "%s out of order", key)
		last = i
	}
	tail := "\"chromosome_name\": \"3\",\n    \"end_position\": 200000,\n    \"start_position\": 100000\n}\n"
	expect.True(t, strings.HasSuffix(s, tail), s)
	expect.True(t, strings.Contains(s, `"candidates": []`), s)

	got, err := candidate.UnmarshalRegion(data)
	assert.NoError(t, err)
	expect.EQ(t, got, testRegion())

	_, err = candidate.UnmarshalRegion([]byte("{not json"))
	expect.NotNil(t, err)
}

func TestArtifactPath(t *testing.T) {
	expect.EQ(t, candidate.ArtifactPath("output/", "3", 0, 61000), "output/json_output/Candidates_3_0_61000.json")
	expect.EQ(t, candidate.ArtifactPath("s3://bucket/run", "chr20", 10, 20), "s3://bucket/run/json_output/Candidates_chr20_10_20.json")
	expect.True(t, candidate.ArtifactPath("o", "3", 0, 100) != candidate.ArtifactPath("o", "3", 100, 200))
}

func TestWriteReadJSON(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	assert.NoError(t, os.MkdirAll(filepath.Join(tmpdir, candidate.JSONDir), 0755))
	path := candidate.ArtifactPath(tmpdir, "3", 100000, 200000)
	assert.NoError(t, candidate.WriteJSON(ctx, path, testRegion()))
	got, err := candidate.ReadJSON(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, got, testRegion())

	_, err = candidate.ReadJSON(ctx, filepath.Join(tmpdir, "missing.json"))
	expect.NotNil(t, err)
}
