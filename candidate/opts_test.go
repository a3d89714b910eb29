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
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/polish/candidate"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, opts().Validate())
	for _, mod := range []func(o *candidate.Opts){
		func(o *candidate.Opts) { o.MaxGap = -1 },
		func(o *candidate.Opts) { o.MinSupport = 0 },
		func(o *candidate.Opts) { o.MinFrequency = -0.1 },
		func(o *candidate.Opts) { o.MinFrequency = 1.5 },
		func(o *candidate.Opts) { o.MinMapQ = -1 },
		func(o *candidate.Opts) { o.ShardOverlap = -5 },
	} {
		o := opts()
		mod(o)
		err := o.Validate()
		expect.True(t, errors.Is(errors.Invalid, err), "%+v: %v", *o, err)
	}
}

func TestReadParams(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	write := func(name, data string) string {
		path := filepath.Join(tmpdir, name)
		assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
		return path
	}

	o := opts()
	assert.NoError(t, candidate.ReadParams(ctx, write("params.yaml", "max_gap: 10\nmin_frequency: 0.2\nflag_exclude: 1024\n"), o))
	want := candidate.DefaultOpts
	want.MaxGap = 10
	want.MinFrequency = 0.2
	want.FlagExclude = 1024
	expect.EQ(t, *o, want)

	o = opts()
	assert.NoError(t, candidate.ReadParams(ctx, write("empty.yaml", ""), o))
	expect.EQ(t, *o, candidate.DefaultOpts)

	err := candidate.ReadParams(ctx, write("unknown.yaml", "max_gapp: 10\n"), opts())
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)
	err = candidate.ReadParams(ctx, write("invalid.yaml", "min_support: 0\n"), opts())
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)
	err = candidate.ReadParams(ctx, filepath.Join(tmpdir, "missing.yaml"), opts())
	expect.NotNil(t, err)
}
