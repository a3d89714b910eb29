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
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// JSONDir is the subdirectory of the output directory holding artifacts.
const JSONDir = "json_output"

// ArtifactPath returns the path of the artifact for chrom:[start,end) under
// outputDir. Distinct regions map to distinct paths.
func ArtifactPath(outputDir, chrom string, start, end int) string {
	return file.Join(outputDir, JSONDir, fmt.Sprintf("Candidates_%s_%d_%d.json", chrom, start, end))
}

// The json* types fix the artifact schema. Fields are declared in key order
// so that encoding/json emits sorted keys.

type jsonCandidate struct {
	Alt       string  `json:"alt"`
	End       int     `json:"end"`
	Frequency float64 `json:"frequency"`
	Ref       string  `json:"ref"`
	Start     int     `json:"start"`
	Support   int     `json:"support"`
}

type jsonWindow struct {
	Candidates []jsonCandidate `json:"candidates"`
	Chrom      string          `json:"chromosome_name"`
	End        int             `json:"end_position"`
	RefStart   int             `json:"ref_start"`
	Reference  string          `json:"reference"`
	Start      int             `json:"start_position"`
}

type jsonRegion struct {
	Windows []jsonWindow `json:"all_candidates"`
	Chrom   string       `json:"chromosome_name"`
	End     int          `json:"end_position"`
	Start   int          `json:"start_position"`
}

// MarshalRegion encodes r as an indented JSON artifact.
func MarshalRegion(r *RegionResult) ([]byte, error) {
	out := jsonRegion{
		Windows: make([]jsonWindow, len(r.Windows)),
		Chrom:   r.Chrom,
		End:     r.End,
		Start:   r.Start,
	}
	for i, w := range r.Windows {
		jw := jsonWindow{
			Candidates: make([]jsonCandidate, len(w.Candidates)),
			Chrom:      w.Chrom,
			End:        w.End,
			RefStart:   w.RefStart,
			Reference:  w.Reference,
			Start:      w.Start,
		}
		for j, c := range w.Candidates {
			jw.Candidates[j] = jsonCandidate{
				Alt:       c.Alt,
				End:       c.End,
				Frequency: c.Frequency,
				Ref:       c.Ref,
				Start:     c.Start,
				Support:   c.Support,
			}
		}
		out.Windows[i] = jw
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// UnmarshalRegion decodes an artifact produced by MarshalRegion. The
// diagnostics are not part of the artifact and come back zero.
func UnmarshalRegion(data []byte) (*RegionResult, error) {
	var in jsonRegion
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.E(errors.Invalid, err, "decoding candidate artifact")
	}
	r := &RegionResult{
		Chrom:   in.Chrom,
		Start:   in.Start,
		End:     in.End,
		Windows: make([]WindowCandidateList, len(in.Windows)),
	}
	for i, jw := range in.Windows {
		w := WindowCandidateList{
			Chrom:      jw.Chrom,
			Start:      jw.Start,
			End:        jw.End,
			RefStart:   jw.RefStart,
			Reference:  jw.Reference,
			Candidates: make([]AlleleCandidate, len(jw.Candidates)),
		}
		for j, c := range jw.Candidates {
			w.Candidates[j] = AlleleCandidate{
				Start:     c.Start,
				End:       c.End,
				Ref:       c.Ref,
				Alt:       c.Alt,
				Support:   c.Support,
				Frequency: c.Frequency,
			}
		}
		r.Windows[i] = w
	}
	return r, nil
}

// WriteJSON writes r to path. The artifact is encoded before the file is
// created, and removed again if writing fails, so a failed call leaves no
// partial artifact behind.
func WriteJSON(ctx context.Context, path string, r *RegionResult) (err error) {
	data, err := MarshalRegion(r)
	if err != nil {
		return errors.E(err, "encoding", path)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "candidate.WriteJSON", path)
	}
	_, err = out.Writer(ctx).Write(data)
	if e := out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		if e := file.Remove(ctx, path); e != nil {
			log.Error.Printf("removing partial artifact %s: %v", path, e)
		}
		return errors.E(err, "candidate.WriteJSON", path)
	}
	return nil
}

// ReadJSON reads an artifact written by WriteJSON.
func ReadJSON(ctx context.Context, path string) (r *RegionResult, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "candidate.ReadJSON", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "candidate.ReadJSON", path)
	}
	return UnmarshalRegion(data)
}
