// Package panseed implements component K, spec §4.K: the orchestration
// layer that wires the Range-CRS kernels (crs), hierarchical bitvector
// (bitvec), graph traversal iterators (gwalk), path set (pathset), path
// index (pathindex), starting-loci selector (loci), distance index
// (distidx), traverser (traverser), and dual seed driver (seeddriver) into
// the public "find seeds" operation: New, CreatePathIndex,
// SerializePathIndex/LoadPathIndex, SeedsAll.
//
// The Opts/DefaultOpts shape and CreatePathIndex's parameter-normalization
// rules are grounded on fusion/opts.go's Opts/DefaultOpts pair and
// fusion/gene_db.go's single struct owning every sub-index with a New...
// constructor delegating to private sharded state.
package panseed

import "github.com/grailbio/base/log"

// Opts holds the per-finder seeding and path-selection parameters named
// across spec §4.F, §4.G, §4.I and §4.K, plus ChunkSize (promoted from
// original_source/src/options.hpp's chunk_size field, spec.md §C of
// SPEC_FULL.md's supplemented features).
type Opts struct {
	// NumPaths is spec §4.K create_path_index's "n": the maximum number of
	// reference paths selected per weakly-connected region (spec §4.D/§4.C's
	// Haplotyper). 0 means no paths are selected; the finder falls back
	// entirely to on-graph traversal (spec §4.F's empty-path-set case).
	NumPaths int

	// Patched and Context realize spec's "patched path" (GLOSSARY): when
	// Patched, every starting locus enumerated against the initial path set
	// is additionally covered by a short patch path of Context extra
	// characters, then the path set and starting loci are rebuilt, reducing
	// starting-locus density at the cost of a slightly larger path index.
	Patched bool
	Context int

	// Step sub-samples starting-locus enumeration (spec §4.F): only every
	// Step-th uncovered offset per node is kept. Step <= 1 keeps all of them.
	Step int

	// DMin and DMax bound the distance index's reachability window (spec
	// §4.G), matching original_source's dindex_min_ris/dindex_max_ris.
	DMin, DMax int

	// GoccThreshold caps path-index occurrence counts considered by the dual
	// seed driver (spec §4.I); 0 means unlimited, matching both spec's
	// literal "gocc_threshold = 0 -> unlimited" rule and its "∞" default.
	GoccThreshold int

	// Mismatches is the exact-matching core's budget (spec §4.H); only 0 and
	// 1 are supported (spec §9's Open Question, resolved in DESIGN.md).
	Mismatches int

	// ChunkSize is the number of reads processed together by one call to
	// seeddriver.Driver.RunChunk (spec §4.I's "per read chunk" framing,
	// made an explicit knob per SPEC_FULL.md §C).
	ChunkSize int

	// Distance is the seed-extraction stride within a chunk (spec §4.I step
	// 1); 0 means Distance = K.
	Distance int

	// MinMemLen is the MEM-mode minimum match length (spec §4.I's MEM mode).
	MinMemLen int
}

// DefaultOpts mirrors fusion.DefaultOpts's role: every flag in
// cmd/panseed-find copies from here unless overridden.
var DefaultOpts = Opts{
	NumPaths:      1,
	Patched:       false,
	Context:       0,
	Step:          1,
	DMin:          1,
	DMax:          0, // normalized to DMin
	GoccThreshold: 0, // unlimited
	Mismatches:    0,
	ChunkSize:     4096,
	Distance:      0, // normalized to K
	MinMemLen:     0,
}

// normalized is Opts after spec §4.K's parameter-relationship rules have
// been applied.
type normalized struct {
	numPaths      int
	patched       bool
	context       int
	step          int
	dmin, dmax    int
	goccThreshold int
	mismatches    int
	chunkSize     int
	distance      int
	minMemLen     int
}

// normalize applies every relationship spec §4.K enforces:
//
//	context = 0 && patched = true  => context = k, warn
//	patched = false                => context = 0
//	dmax = 0                       => dmax = dmin
//	gocc_threshold = 0             => unlimited (already panseed's convention)
//	distance = 0                   => distance = k
func normalize(k int, o Opts) (normalized, error) {
	n := normalized{
		numPaths:      o.NumPaths,
		patched:       o.Patched,
		context:       o.Context,
		step:          o.Step,
		dmin:          o.DMin,
		dmax:          o.DMax,
		goccThreshold: o.GoccThreshold,
		mismatches:    o.Mismatches,
		chunkSize:     o.ChunkSize,
		distance:      o.Distance,
		minMemLen:     o.MinMemLen,
	}
	if !n.patched {
		n.context = 0
	} else if n.context == 0 {
		log.Printf("panseed: patched path selected with context=0; defaulting context to k=%d", k)
		n.context = k
	} else if n.context < k {
		return normalized{}, wrapInvalidf("patched context %d must be >= k %d", n.context, k)
	}
	if n.dmax == 0 {
		n.dmax = n.dmin
	}
	if n.step < 1 {
		n.step = 1
	}
	if n.distance <= 0 {
		n.distance = k
	}
	if n.chunkSize <= 0 {
		n.chunkSize = k
	}
	return n, nil
}
