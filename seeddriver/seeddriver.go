// Package seeddriver implements the dual seed driver of spec §4.I: the
// paired tree walk that jointly descends the path index and a per-chunk
// read index, plus the MEM-mode walk and the combined per-chunk run that
// also drives traverser over the starting loci for off-path hits.
//
// The top-level entry point's shape is grounded on fusion/fusion.go's
// DetectFusion; de-duplicating emitted hits with a highwayhash digest is
// grounded on fusion/postprocess.go's groupCandidatesByGenePair.
package seeddriver

import (
	"encoding/binary"

	"github.com/minio/highwayhash"

	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/pathindex"
	"github.com/grailbio/panseed/pathset"
	"github.com/grailbio/panseed/readindex"
	"github.com/grailbio/panseed/seedstats"
	"github.com/grailbio/panseed/traverser"
)

// Hit is one emitted seed: the length-k string at (NodeID, NodeOffset) in
// the graph equals the read substring at (ReadID, ReadOffset) (spec §3).
// Gocc is the genome-occurrence count in the path index; off-path hits
// (found only by traversal, with no path-index probe) report Gocc 0.
type Hit struct {
	NodeID     graph.ID
	NodeOffset int
	ReadID     int64
	ReadOffset int
	MatchLen   int
	Gocc       int
}

// Read is one input read of a chunk.
type Read struct {
	ID  int64
	Seq string
}

// Config holds the per-finder seeding parameters of spec §4.K, normalized by
// the caller (panseed applies the parameter-relationship rules); New only
// fills in a missing Distance.
type Config struct {
	K             int
	GoccThreshold int // 0 means unlimited
	Distance      int // seed extraction stride; New replaces 0 or less with K
	MinMemLen     int // MEM-mode minimum match length
}

// Driver coordinates path-index probing, locus traversal, and
// de-duplication for one finder (spec §4.I). It borrows its graph, path
// set, path index, and starting loci from the caller (panseed.Finder) and
// is safe to reuse across chunks, provided callers don't call RunChunk
// concurrently on the same Driver (its per-chunk read index is not shared,
// spec §5).
type Driver struct {
	ps     *pathset.Set
	pidx   *pathindex.Index // nil if no paths were selected
	trav   *traverser.Traverser
	starts []loci.Locus
	cfg    Config
}

// New builds a Driver. pidx may be nil (empty path set): in that case
// RunChunk skips the dual walker and relies entirely on traversal.
func New(ps *pathset.Set, pidx *pathindex.Index, trav *traverser.Traverser, starts []loci.Locus, cfg Config) *Driver {
	if cfg.Distance <= 0 {
		cfg.Distance = cfg.K
	}
	return &Driver{ps: ps, pidx: pidx, trav: trav, starts: starts, cfg: cfg}
}

const seedIDShift = 24 // supports reads up to 2^24 (16Mi) characters long

func encodeSeedID(readID int64, offset int) int64 { return readID<<seedIDShift | int64(offset) }
func decodeSeedID(id int64) (int64, int)          { return id >> seedIDShift, int(id & (1<<seedIDShift - 1)) }

// extractSeeds realizes spec §4.I step 1: length-k substrings at stride
// Distance from each read.
func extractSeeds(reads []Read, k, distance int) []readindex.Read {
	var out []readindex.Read
	for _, r := range reads {
		for i := 0; i+k <= len(r.Seq); i += distance {
			out = append(out, readindex.Read{ID: encodeSeedID(r.ID, i), Seq: r.Seq[i : i+k]})
		}
	}
	return out
}

var bases = [4]byte{'A', 'C', 'G', 'T'}

// dualWalk is the joint tree walk of spec §4.I: it jointly descends pc and
// rc one character at a time, emitting an occurrence cross-product whenever
// both reach a shared length-k string (the "plen == k" case), and skipping
// (but counting) k-mers whose path-index occurrence count exceeds the gocc
// threshold.
func (d *Driver) dualWalk(pc *pathindex.Cursor, rc *readindex.Cursor, depth int, stats *seedstats.Stats, emit func(Hit)) {
	if depth == d.cfg.K {
		occCount := pc.OccurrenceCount()
		if d.cfg.GoccThreshold > 0 && occCount > d.cfg.GoccThreshold {
			stats.IncSkipped()
			return
		}
		pOccs := pc.Occurrences()
		rOccs := rc.GetOccurrences()
		for _, po := range pOccs {
			nodeID, nodeOffset := d.ps.Select(po.PathIndex, po.Offset)
			for _, ro := range rOccs {
				readID, seedOff := decodeSeedID(ro.ReadID)
				emit(Hit{
					NodeID:     nodeID,
					NodeOffset: nodeOffset,
					ReadID:     readID,
					ReadOffset: seedOff + ro.Offset,
					MatchLen:   d.cfg.K,
					Gocc:       occCount,
				})
			}
		}
		return
	}
	for _, ch := range bases {
		if !pc.ExtendDown(ch) {
			continue
		}
		if rc.GoDownChar(ch) {
			d.dualWalk(pc, rc, depth+1, stats, emit)
			rc.GoUp()
		}
		pc.GoUp()
	}
}

// MEM runs maximal-exact-match search directly against the path index over
// pattern, with no read-index involved (spec §4.I's MEM mode): walk
// left-to-right, descend as far as possible, emit occurrences once
// plen >= minLen and the gocc threshold passes, then restart past the
// matched span.
func (d *Driver) MEM(pattern string) []pathindex.Occurrence {
	if d.pidx == nil {
		return nil
	}
	var out []pathindex.Occurrence
	for start := 0; start < len(pattern); {
		c := d.pidx.Root()
		plen := 0
		for start+plen < len(pattern) && c.ExtendDown(pattern[start+plen]) {
			plen++
		}
		if plen >= d.cfg.MinMemLen && (d.cfg.GoccThreshold == 0 || c.OccurrenceCount() <= d.cfg.GoccThreshold) {
			out = append(out, c.Occurrences()...)
		}
		start += plen + 1
	}
	return out
}

// hashKey is the de-duplication digest of one Hit's identity fields,
// following fusion/postprocess.go's highwayhash-keyed grouping idiom.
type hashKey = [highwayhash.Size]uint8

var zeroSeed = hashKey{}

func hitKey(h Hit) hashKey {
	var buf [28]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.NodeID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.NodeOffset))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.ReadID))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.ReadOffset))
	return highwayhash.Sum(buf[:], zeroSeed[:])
}

// RunChunk drives spec §4.I's combined per-chunk run: seed extraction,
// read-index build, the dual walker against the path index (on-path hits),
// and traversal from the starting loci (off-path hits), de-duplicated
// before reaching emit.
func (d *Driver) RunChunk(reads []Read, stats *seedstats.Stats, emit func(Hit)) error {
	seeds := extractSeeds(reads, d.cfg.K, d.cfg.Distance)
	if len(seeds) == 0 {
		return nil
	}
	rix, err := readindex.Build(seeds)
	if err != nil {
		return err
	}

	seen := map[hashKey]bool{}
	dedup := func(h Hit) {
		k := hitKey(h)
		if seen[k] {
			return
		}
		seen[k] = true
		emit(h)
	}

	if d.pidx != nil {
		d.dualWalk(d.pidx.Root(), rix.Root(), 0, stats, dedup)
	}
	d.trav.RunBFS(d.starts, rix, func(th traverser.Hit) {
		readID, seedOff := decodeSeedID(th.ReadID)
		dedup(Hit{
			NodeID:     th.NodeID,
			NodeOffset: th.NodeOffset,
			ReadID:     readID,
			ReadOffset: seedOff + th.ReadOffset,
			MatchLen:   th.MatchLen,
		})
	})
	return nil
}
