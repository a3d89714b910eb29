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

/*
Given a BAM and its reference FASTA, bio-candidates finds the windows of one
chromosome where reads disagree with the reference, and lists the alternate
alleles observed in each window together with their read support.

The chromosome is split into -max_threads shards, each extended by 1000 bases
so that variants near a boundary are seen by both neighbors, and the shards
are processed concurrently. With -json, each shard writes
<output_dir>/json_output/Candidates_<chrom>_<start>_<end>.json. Windows near a
shard boundary can appear in two artifacts; they are not deduplicated.

With -test, only the region [100000, 200000) is processed, synchronously.

Thresholds can be given on the command line or in a YAML file passed with
-params, using the keys max_gap, min_support, min_frequency, min_mapq,
flag_exclude and shard_overlap. Flags given explicitly override the file.

Sample usage:
bio-candidates \
    -bam my.bam \
    -ref ref.fa \
    -chromosome_name chr3 \
    -max_threads 8 \
    -json \
    -output_dir s3://bucket/candidates/
*/
package main
