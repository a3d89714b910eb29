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

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Shard is the half-open range [Start, End) processed by one task. End
// includes the trailing overlap and may extend past the chromosome.
type Shard struct {
	Start, End int
}

func (s Shard) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// PartitionShards splits a chromosome of the given length into n shards.
// Shard i is [i*s, (i+1)*s + overlap) with s = ceil(length/n), so
// consecutive shards overlap by exactly overlap bases.
func PartitionShards(length, n, overlap int) ([]Shard, error) {
	if n <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("shard count must be positive, got %d", n))
	}
	if length <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("chromosome length must be positive, got %d", length))
	}
	if overlap < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("negative shard overlap %d", overlap))
	}
	size := (length + n - 1) / n
	shards := make([]Shard, n)
	for i := range shards {
		shards[i] = Shard{Start: i * size, End: (i+1)*size + overlap}
	}
	return shards, nil
}

// ShardResult is the outcome of one shard.
type ShardResult struct {
	Shard Shard
	// Path is the artifact written for the shard, or "" if none.
	Path       string
	NumWindows int
	Err        error
}

// ShardTask tracks one dispatched shard.
type ShardTask struct {
	Shard  Shard
	done   chan struct{}
	result ShardResult
}

// Done is closed once the shard has finished.
func (t *ShardTask) Done() <-chan struct{} { return t.done }

// Result returns the shard outcome. It may only be called after Done is
// closed.
func (t *ShardTask) Result() ShardResult {
	select {
	case <-t.done:
	default:
		panic(fmt.Sprintf("shard %v: Result called before completion", t.Shard))
	}
	return t.result
}

// Wait blocks until the shard finishes or ctx is done.
func (t *ShardTask) Wait(ctx context.Context) (ShardResult, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return ShardResult{Shard: t.Shard}, ctx.Err()
	}
}

// DispatchShards splits chrom into n shards and starts one ProcessRegion run
// per shard, each on its own Sources from open. It returns as soon as every
// shard has been started; a nil error says nothing about whether the shards
// succeed. Shards share no mutable state, and a failing shard does not affect
// the others.
func DispatchShards(ctx context.Context, open SourceOpener, chrom string, n int, opts *Opts) ([]*ShardTask, error) {
	if n <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("shard count must be positive, got %d", n))
	}
	srcs, err := open(ctx)
	if err != nil {
		return nil, err
	}
	length, err := srcs.Reference.Length(ctx, chrom)
	if e := srcs.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, err
	}
	shards, err := PartitionShards(length, n, opts.ShardOverlap)
	if err != nil {
		return nil, err
	}
	log.Printf("%s: length %d, dispatching %d shards: %v", chrom, length, len(shards), shards)

	tasks := make([]*ShardTask, len(shards))
	for i, s := range shards {
		tasks[i] = &ShardTask{Shard: s, done: make(chan struct{})}
	}
	go func() {
		_ = traverse.Each(len(tasks), func(i int) error {
			t := tasks[i]
			t.result = runShard(ctx, open, chrom, t.Shard, opts)
			close(t.done)
			return nil
		})
	}()
	return tasks, nil
}

func runShard(ctx context.Context, open SourceOpener, chrom string, s Shard, opts *Opts) (result ShardResult) {
	result.Shard = s
	defer func() {
		if r := recover(); r != nil {
			result.Err = errors.E(fmt.Sprintf("shard %s:%v panicked: %v", chrom, s, r))
		}
		if result.Err != nil {
			log.Error.Printf("shard %s:%v failed: %v", chrom, s, result.Err)
		} else {
			log.Printf("shard %s:%v done: %d windows %s", chrom, s, result.NumWindows, result.Path)
		}
	}()
	srcs, err := open(ctx)
	if err != nil {
		result.Err = errors.E(err, fmt.Sprintf("shard %s:%v", chrom, s))
		return
	}
	defer func() {
		if e := srcs.Close(ctx); e != nil && result.Err == nil {
			result.Err = e
		}
	}()
	r, path, err := ProcessRegion(ctx, srcs, chrom, s.Start, s.End, opts)
	if err != nil {
		result.Err = errors.E(err, fmt.Sprintf("shard %s:%v", chrom, s))
		return
	}
	result.Path, result.NumWindows = path, len(r.Windows)
	return
}
