// Command panseed-find is the §6 CLI surface over the panseed package: it
// loads a graph and an optional saved path-index prefix, scans a FASTQ file
// for seeds, and writes binary hit records to an output path.
//
// Flag parsing, the grail.Init/vcontext.Background bootstrap, and
// log.Panicf-on-fatal-argument-error style are grounded on
// cmd/bio-fusion/main.go's fusionFlags struct and main().
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/panseed"
	"github.com/grailbio/panseed/encoding/fastq"
	"github.com/grailbio/panseed/seeddriver"
)

// exit codes per spec §6.
const (
	exitSuccess = 0
	exitArgs    = 1
	exitIO      = 2
)

// findFlags mirrors fusionFlags's role: one struct owning every flag
// destination, populated by flag.*Var calls in main.
type findFlags struct {
	graphPath  string
	fastqPath  string
	outputPath string
	prefix     string

	k             int
	numPaths      int
	patched       bool
	context       int
	step          int
	chunkSize     int
	dmin, dmax    int
	goccThreshold int
	mismatches    int
	minMemLen     int
}

func usage() {
	fmt.Fprintln(os.Stderr, `
panseed-find finds hybrid seeds between a sequence graph and a set of reads.

Usage:
  panseed-find -graph g.gfa -fastq reads.fastq -k 20 -output hits.bin

Required flags: -graph, -fastq, -k, -output.`)
}

func parseFlags() findFlags {
	flag.Usage = usage
	f := findFlags{}
	opts := panseed.DefaultOpts
	flag.StringVar(&f.graphPath, "graph", "", "Path to the input graph, in a minimal GFA1 (S/L line) subset.")
	flag.StringVar(&f.fastqPath, "fastq", "", "Path to the input FASTQ file of reads to seed.")
	flag.StringVar(&f.outputPath, "output", "", "Path to write binary hit records to.")
	flag.StringVar(&f.prefix, "path-index-prefix", "", "Prefix for the on-disk path-index/loci/distance-matrix siblings. If set and the siblings exist, they are loaded instead of rebuilt; missing siblings are built and saved back to this prefix.")
	flag.IntVar(&f.k, "k", 0, "Seed length (required, > 0).")
	flag.IntVar(&f.numPaths, "num-paths", opts.NumPaths, "Number of reference paths selected per weakly-connected region. 0 disables path selection (pure on-graph traversal).")
	flag.BoolVar(&f.patched, "patched", opts.Patched, "Cover every starting locus with an additional short patch path.")
	flag.IntVar(&f.context, "context", opts.Context, "Patch-path extra context length; 0 with -patched defaults to k.")
	flag.IntVar(&f.step, "step", opts.Step, "Sub-sample starting-locus enumeration to every step-th uncovered offset.")
	flag.IntVar(&f.chunkSize, "chunk-size", opts.ChunkSize, "Number of reads processed per concurrent chunk.")
	flag.IntVar(&f.dmin, "dmin", opts.DMin, "Distance index minimum reachability bound.")
	flag.IntVar(&f.dmax, "dmax", opts.DMax, "Distance index maximum reachability bound; 0 defaults to -dmin.")
	flag.IntVar(&f.goccThreshold, "gocc-threshold", opts.GoccThreshold, "Maximum path-index occurrence count considered per k-mer; 0 means unlimited.")
	flag.IntVar(&f.mismatches, "mismatches", opts.Mismatches, "Mismatch budget for the exact-matching core; only 0 and 1 are supported.")
	flag.IntVar(&f.minMemLen, "min-mem-len", 0, "Minimum match length for MEM mode; 0 disables MEM mode.")
	flag.Parse()
	return f
}

func (f findFlags) validate() error {
	if f.graphPath == "" {
		return fmt.Errorf("-graph is required")
	}
	if f.fastqPath == "" {
		return fmt.Errorf("-fastq is required")
	}
	if f.outputPath == "" {
		return fmt.Errorf("-output is required")
	}
	if f.k <= 0 {
		return fmt.Errorf("-k must be > 0")
	}
	return nil
}

func main() {
	f := parseFlags()
	if err := f.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(exitArgs)
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	gf, err := file.Open(ctx, f.graphPath)
	if err != nil {
		log.Printf("open %s: %v", f.graphPath, err)
		os.Exit(exitIO)
	}
	g, err := loadGFA(gf.Reader(ctx))
	if cerr := gf.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		log.Printf("load graph %s: %v", f.graphPath, err)
		os.Exit(exitIO)
	}

	finder, err := panseed.New(g, f.k, f.goccThreshold, f.mismatches)
	if err != nil {
		log.Printf("panseed.New: %v", err)
		os.Exit(exitArgs)
	}

	if f.prefix != "" {
		err = finder.LoadPathIndex(ctx, f.prefix, f.numPaths, f.patched, f.context, f.step, f.dmin, f.dmax)
	} else {
		err = finder.CreatePathIndex(f.numPaths, f.patched, f.context, f.step, f.dmin, f.dmax)
	}
	if err != nil {
		log.Printf("build path index: %v", err)
		os.Exit(exitIO)
	}
	finder.SetChunkSize(f.chunkSize)

	qf, err := file.Open(ctx, f.fastqPath)
	if err != nil {
		log.Printf("open %s: %v", f.fastqPath, err)
		os.Exit(exitIO)
	}
	reads, err := readFASTQ(qf.Reader(ctx))
	if cerr := qf.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		log.Printf("read %s: %v", f.fastqPath, err)
		os.Exit(exitIO)
	}

	out, err := file.Create(ctx, f.outputPath)
	if err != nil {
		log.Printf("create %s: %v", f.outputPath, err)
		os.Exit(exitIO)
	}
	bw := bufio.NewWriter(out.Writer(ctx))

	nHits := 0
	emit := func(h seeddriver.Hit) {
		var rec [32]byte
		binary.LittleEndian.PutUint64(rec[0:8], uint64(h.NodeID))
		binary.LittleEndian.PutUint64(rec[8:16], uint64(h.NodeOffset))
		binary.LittleEndian.PutUint64(rec[16:24], uint64(h.ReadID))
		binary.LittleEndian.PutUint64(rec[24:32], uint64(h.ReadOffset))
		if _, werr := bw.Write(rec[:]); werr != nil {
			log.Panicf("write hit record: %v", werr)
		}
		nHits++
	}

	if f.minMemLen > 0 {
		for _, r := range reads {
			for _, occ := range finder.MEM(r.Seq, f.minMemLen) {
				nodeID, nodeOffset := finder.Locate(occ)
				emit(seeddriver.Hit{NodeID: nodeID, NodeOffset: nodeOffset, ReadID: r.ID, MatchLen: f.minMemLen})
			}
		}
	} else if err = finder.SeedsAll(reads, emit); err != nil {
		log.Printf("SeedsAll: %v", err)
		_ = bw.Flush()
		_ = out.Close(ctx)
		os.Exit(exitIO)
	}

	if err := bw.Flush(); err != nil {
		log.Printf("flush %s: %v", f.outputPath, err)
		os.Exit(exitIO)
	}
	if err := out.Close(ctx); err != nil {
		log.Printf("close %s: %v", f.outputPath, err)
		os.Exit(exitIO)
	}

	log.Printf("wrote %d hits to %s", nHits, f.outputPath)
	os.Exit(exitSuccess)
}

// readFASTQ slurps a FASTQ file into seeddriver.Read values, assigning read
// ids by appearance order. Reads the whole file into memory, matching
// SeedsAll's own whole-slice input contract (spec §4.K).
func readFASTQ(r io.Reader) ([]seeddriver.Read, error) {
	sc := fastq.NewScanner(r, fastq.ID|fastq.Seq)
	var reads []seeddriver.Read
	var rec fastq.Read
	var id int64
	for sc.Scan(&rec) {
		reads = append(reads, seeddriver.Read{ID: id, Seq: rec.Seq})
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return reads, nil
}
