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
package main

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/polish/candidate"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestPrepareOutputDir(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	dir := filepath.Join(tmpdir, "a", "b")
	assert.NoError(t, prepareOutputDir(dir, false))
	_, err := os.Stat(dir)
	expect.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, candidate.JSONDir))
	expect.True(t, os.IsNotExist(err))

	assert.NoError(t, prepareOutputDir(dir+"/", true))
	_, err = os.Stat(filepath.Join(dir, candidate.JSONDir))
	expect.NoError(t, err)

	// Nothing to create on object stores.
	expect.NoError(t, prepareOutputDir("s3://bucket/out/", true))
}

func TestBuildOpts(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	params := filepath.Join(tmpdir, "params.yaml")
	assert.NoError(t, ioutil.WriteFile(params, []byte("max_gap: 8\nmin_support: 3\n"), 0644))
	assert.NoError(t, flag.Set("params", params))
	assert.NoError(t, flag.Set("min-support", "4"))
	assert.NoError(t, flag.Set("json", "true"))
	assert.NoError(t, flag.Set("output_dir", tmpdir))

	opts, err := buildOpts(ctx)
	assert.NoError(t, err)
	expect.EQ(t, opts.MaxGap, 8)
	expect.EQ(t, opts.MinSupport, 4)
	expect.EQ(t, opts.MinFrequency, candidate.DefaultOpts.MinFrequency)
	expect.EQ(t, opts.OutputDir, tmpdir)

	assert.NoError(t, flag.Set("min-frequency", "2"))
	_, err = buildOpts(ctx)
	expect.NotNil(t, err)
}
