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
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/polish/candidate"
)

// The region processed by -test.
const (
	testStart = 100000
	testEnd   = 200000
)

var (
	refPath         = flag.String("ref", "", "Reference FASTA path (required); gzipped if it ends in .gz, indexed if path.fai exists")
	bamPath         = flag.String("bam", "", "Input BAM path (required)")
	bamIndexPath    = flag.String("index", "", "Input BAM index path. Defaults to bampath + .bai")
	chromosomeName  = flag.String("chromosome_name", "3", "Chromosome to process")
	maxThreads      = flag.Int("max_threads", 5, "Number of shards the chromosome is split into; all shards run concurrently")
	testMode        = flag.Bool("test", false, fmt.Sprintf("Only process [%d, %d) of the chromosome, without sharding", testStart, testEnd))
	jsonOut         = flag.Bool("json", false, "Write one JSON artifact per region under <output_dir>/json_output")
	outputDir       = flag.String("output_dir", "output/", "Output directory; created if missing")
	paramsPath      = flag.String("params", "", "Optional YAML file with thresholds; explicitly set flags take precedence")
	maxGap          = flag.Int("max-gap", candidate.DefaultOpts.MaxGap, "Divergent positions at most this far apart share a window")
	minSupport      = flag.Int("min-support", candidate.DefaultOpts.MinSupport, "Minimum number of reads supporting an allele candidate")
	minFrequency    = flag.Float64("min-frequency", candidate.DefaultOpts.MinFrequency, "Minimum fraction of covering reads supporting an allele candidate")
	mapq            = flag.Int("mapq", candidate.DefaultOpts.MinMapQ, "Reads with MAPQ below this level are skipped")
	flagExclude     = flag.Int("flag-exclude", candidate.DefaultOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are skipped")
	shardOverlap    = flag.Int("shard-overlap", candidate.DefaultOpts.ShardOverlap, "Number of bases each shard extends into the next one")
	printWindows    = flag.Bool("print-windows", false, "Log every window found")
	printCandidates = flag.Bool("print-candidates", false, "Log every candidate list")
)

func bioCandidatesUsage() {
	fmt.Printf("Usage: %s -bam bampath -ref fapath [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// buildOpts returns the options selected by the params file and the flags.
func buildOpts(ctx context.Context) (candidate.Opts, error) {
	opts := candidate.DefaultOpts
	if *paramsPath != "" {
		if err := candidate.ReadParams(ctx, *paramsPath, &opts); err != nil {
			return opts, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-gap":
			opts.MaxGap = *maxGap
		case "min-support":
			opts.MinSupport = *minSupport
		case "min-frequency":
			opts.MinFrequency = *minFrequency
		case "mapq":
			opts.MinMapQ = *mapq
		case "flag-exclude":
			opts.FlagExclude = *flagExclude
		case "shard-overlap":
			opts.ShardOverlap = *shardOverlap
		}
	})
	opts.PrintWindows = *printWindows
	opts.PrintCandidates = *printCandidates
	if *jsonOut {
		opts.OutputDir = *outputDir
	}
	return opts, opts.Validate()
}

// prepareOutputDir creates dir, and its json_output subdirectory if withJSON
// is set. Object stores need no directories, so only local paths are
// touched.
func prepareOutputDir(dir string, withJSON bool) error {
	scheme, _, err := file.ParsePath(dir)
	if err != nil {
		return errors.E(errors.Invalid, err, "output directory", dir)
	}
	if scheme != "" {
		return nil
	}
	if withJSON {
		dir = file.Join(dir, candidate.JSONDir)
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.E(err, "creating output directory", dir)
	}
	return nil
}

func main() {
	flag.Usage = bioCandidatesUsage
	shutdown := grail.Init()
	defer shutdown()

	if *refPath == "" || *bamPath == "" {
		bioCandidatesUsage()
		log.Fatalf("-ref and -bam are required")
	}
	if flag.NArg() > 0 {
		log.Fatalf("unexpected positional arguments %v; please check flag syntax", flag.Args())
	}
	if *maxThreads <= 0 {
		log.Fatalf("-max_threads must be positive, got %d", *maxThreads)
	}
	ctx := vcontext.Background()
	opts, err := buildOpts(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := prepareOutputDir(*outputDir, *jsonOut); err != nil {
		log.Fatalf("%v", err)
	}
	open := candidate.FileSources(*bamPath, *bamIndexPath, *refPath, &opts)

	if *testMode {
		srcs, err := open(ctx)
		if err != nil {
			log.Fatalf("%v", err)
		}
		result, path, err := candidate.ProcessRegion(ctx, srcs, *chromosomeName, testStart, testEnd, &opts)
		if e := srcs.Close(ctx); e != nil && err == nil {
			err = e
		}
		if err != nil {
			log.Fatalf("%s:%d-%d: %v", *chromosomeName, testStart, testEnd, err)
		}
		log.Printf("%s:%d-%d: %d windows %s", *chromosomeName, testStart, testEnd, len(result.Windows), path)
		return
	}

	tasks, err := candidate.DispatchShards(ctx, open, *chromosomeName, *maxThreads, &opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	// The shards run in background goroutines, which die with the process.
	nFailed := 0
	for _, t := range tasks {
		r, err := t.Wait(ctx)
		if err == nil {
			err = r.Err
		}
		if err != nil {
			nFailed++
		}
	}
	if nFailed > 0 {
		log.Fatalf("%s: %d of %d shards failed", *chromosomeName, nFailed, len(tasks))
	}
	log.Debug.Printf("exiting")
}
