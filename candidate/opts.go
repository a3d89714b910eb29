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
package candidate

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/polish/pileup"
	"gopkg.in/yaml.v3"
)

// DefaultShardOverlap is the number of bases added to the end of every
// shard, so that evidence for a variant near a shard boundary is seen by
// both neighbors.
const DefaultShardOverlap = 1000

// Opts controls window detection and allele enumeration.
type Opts struct {
	// MaxGap is the largest distance between two divergent positions that
	// still places them in the same window.
	MaxGap int `yaml:"max_gap"`
	// MinSupport is the minimum number of reads supporting an allele.
	MinSupport int `yaml:"min_support"`
	// MinFrequency is the minimum fraction of the reads covering a position
	// that must support an allele.
	MinFrequency float64 `yaml:"min_frequency"`
	// MinMapQ drops reads with a lower mapping quality.
	MinMapQ int `yaml:"min_mapq"`
	// FlagExclude drops reads with any of these FLAG bits set.
	FlagExclude int `yaml:"flag_exclude"`
	// ShardOverlap is the trailing overlap of each shard.
	ShardOverlap int `yaml:"shard_overlap"`

	// OutputDir, when nonempty, makes ProcessRegion write one JSON artifact
	// per region under OutputDir/json_output.
	OutputDir string `yaml:"-"`
	// PrintWindows and PrintCandidates log every window / candidate list as
	// it is produced.
	PrintWindows    bool `yaml:"-"`
	PrintCandidates bool `yaml:"-"`

	// Filter, if set, replaces the filter derived from FlagExclude and
	// MinMapQ.
	Filter pileup.ReadFilter `yaml:"-"`
}

// DefaultOpts holds the default thresholds.
var DefaultOpts = Opts{
	MaxGap:       5,
	MinSupport:   1,
	MinFrequency: 0.05,
	MinMapQ:      0,
	FlagExclude:  int(pileup.DefaultFlagExclude),
	ShardOverlap: DefaultShardOverlap,
}

// Validate checks that the thresholds are usable.
func (o *Opts) Validate() error {
	switch {
	case o.MaxGap < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("max gap must be >= 0, got %d", o.MaxGap))
	case o.MinSupport < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("min support must be >= 1, got %d", o.MinSupport))
	case o.MinFrequency < 0 || o.MinFrequency > 1:
		return errors.E(errors.Invalid, fmt.Sprintf("min frequency must be in [0, 1], got %v", o.MinFrequency))
	case o.MinMapQ < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("min mapq must be >= 0, got %d", o.MinMapQ))
	case o.ShardOverlap < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("shard overlap must be >= 0, got %d", o.ShardOverlap))
	}
	return nil
}

func (o *Opts) readFilter() pileup.ReadFilter {
	if o.Filter != nil {
		return o.Filter
	}
	return pileup.NewReadFilter(pileup.FilterOpts{
		FlagExclude: sam.Flags(o.FlagExclude),
		MinMapQ:     o.MinMapQ,
	})
}

// ReadParams overlays the thresholds found in the YAML file at path onto
// opts. Keys not present in the file keep their current values; unknown
// keys are an error.
func ReadParams(ctx context.Context, path string, opts *Opts) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "candidate.ReadParams", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	dec := yaml.NewDecoder(in.Reader(ctx))
	dec.KnownFields(true)
	if err = dec.Decode(opts); err == io.EOF {
		err = nil
	} else if err != nil {
		return errors.E(errors.Invalid, err, "candidate.ReadParams", path)
	}
	return opts.Validate()
}
