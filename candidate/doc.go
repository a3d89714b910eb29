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

// Package candidate finds windows of likely variation in aligned reads and
// enumerates the alternate alleles observed in each.
//
// A region is processed in three steps. DetectWindows walks the CIGAR of
// every read against the reference and flags each position where a read
// disagrees with it (mismatch, insertion anchor, or deleted base); flagged
// positions within Opts.MaxGap of each other are merged into a Window.
// EnumerateAlleles then builds a BaseFrequencyTable for every position of a
// window from its pileup columns and keeps the tokens that pass the
// Opts.MinSupport and Opts.MinFrequency thresholds as AlleleCandidates.
// ParseRegion drives both over a region and assembles a RegionResult, which
// WriteJSON serializes.
//
// For whole chromosomes, DispatchShards splits the chromosome into
// overlapping shards (see PartitionShards) and processes them concurrently,
// each with its own sources. Windows near shard boundaries may be reported
// by both neighbors; no deduplication is done across shards.
//
// Coordinates are 0-based. Regions and shards are half-open; windows and
// allele spans are closed.
package candidate
