package panseed

import (
	"context"

	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/base/traverse"

	"github.com/grailbio/panseed/distidx"
	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/gwalk"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/pathindex"
	"github.com/grailbio/panseed/pathset"
	"github.com/grailbio/panseed/perr"
	"github.com/grailbio/panseed/persist"
	"github.com/grailbio/panseed/seeddriver"
	"github.com/grailbio/panseed/seedstats"
	"github.com/grailbio/panseed/traverser"
)

// Finder is the public seed-finder handle of spec §4.K. It owns the path
// set, path index, starting loci, distance index, traverser, and stats for
// its whole lifetime, and borrows its graph and reads from callers (spec
// §5's ownership tree).
type Finder struct {
	g             graph.Graph
	k             int
	goccThreshold int
	mismatches    int

	params normalized

	ps     *pathset.Set     // nil until CreatePathIndex/LoadPathIndex runs
	pidx   *pathindex.Index // nil: either not yet built, or NumPaths == 0
	starts []loci.Locus
	dist   *distidx.Index
	trav   *traverser.Traverser
	stats  *seedstats.Stats // nil is the valid NoStats variant (spec §4.J)
}

// New builds a Finder over g. gocc_threshold == 0 means unlimited; mismatches
// must be 0 or 1 (spec §9's Open Question: the exact-matching core's only
// supported budgets; see DESIGN.md).
func New(g graph.Graph, k, goccThreshold, mismatches int) (*Finder, error) {
	if k <= 0 {
		return nil, wrapInvalid("k must be > 0")
	}
	if goccThreshold < 0 {
		return nil, wrapInvalid("gocc threshold must be >= 0")
	}
	if mismatches < 0 || mismatches > 1 {
		return nil, perr.Wrapf(perr.ErrNotImplemented,
			"panseed: mismatch budget %d unsupported; exact-matching core only handles 0 or 1", mismatches)
	}
	return &Finder{
		g:             g,
		k:             k,
		goccThreshold: goccThreshold,
		mismatches:    mismatches,
		trav:          traverser.New(g, k, mismatches),
	}, nil
}

// EnableStats turns on spec §4.J's opt-in stats handle, returning it for
// callers that want to inspect progress or print a snapshot. Calling it more
// than once is a no-op; the first handle wins.
func (f *Finder) EnableStats() *seedstats.Stats {
	if f.stats == nil {
		f.stats = seedstats.New()
	}
	return f.stats
}

// Stats returns the finder's stats handle, or nil if EnableStats was never
// called (spec §4.J's zero-cost NoStats default).
func (f *Finder) Stats() *seedstats.Stats { return f.stats }

// K returns the configured seed length.
func (f *Finder) K() int { return f.k }

// SetChunkSize overrides the per-call SeedsAll read-chunk size (SPEC_FULL.md
// §C's ChunkSize knob, promoted from original_source/src/options.hpp). Call
// after CreatePathIndex/LoadPathIndex, which otherwise default it to K. n <=
// 0 is a no-op.
func (f *Finder) SetChunkSize(n int) {
	if n > 0 {
		f.params.chunkSize = n
	}
}

// SetDistance overrides the dual seed driver's seed-extraction stride
// (spec §4.I step 1); 0 or negative is a no-op and leaves it at K.
func (f *Finder) SetDistance(d int) {
	if d > 0 {
		f.params.distance = d
	}
}

// maxPathSteps bounds a single selected or patch path's length in nodes, so
// that a Haplotyper or greedy walk through a cyclic region terminates; the
// graph's own node count is a safe, spec-agnostic upper bound (a reference
// path that revisited every node would already cover the whole region).
func maxPathSteps(g graph.Graph) int {
	n := g.NodeCount()
	if n < 1 {
		return 1
	}
	return n
}

// CreatePathIndex realizes spec §4.K's create_path_index(n, patched,
// context, step, dmin, dmax): select up to n reference paths per
// weakly-connected region (§4.D + §4.C's Haplotyper), build the path index
// over them (§4.E), enumerate starting loci against it (§4.F), optionally
// patch the path set to reduce starting-locus density, and build the
// distance index (§4.G).
func (f *Finder) CreatePathIndex(n int, patched bool, context, step, dmin, dmax int) error {
	p, err := normalize(f.k, Opts{
		NumPaths: n, Patched: patched, Context: context, Step: step, DMin: dmin, DMax: dmax,
	})
	if err != nil {
		return err
	}
	f.params = p

	ps := selectPaths(f.g, p.numPaths)
	ps.Build()

	pidx, err := buildPathIndex(f.g, ps)
	if err != nil {
		return err
	}

	starts := loci.New(f.g, pidx, f.k).Enumerate(p.step)

	if p.patched {
		ps, pidx, starts, err = patchPathSet(f.g, ps, f.k, p.context, p.step)
		if err != nil {
			return err
		}
	}

	dist, err := distidx.Build(f.g, p.dmin, p.dmax)
	if err != nil {
		return err
	}

	f.ps, f.pidx, f.starts, f.dist = ps, pidx, starts, dist
	return nil
}

// buildPathIndex builds a path index over ps's paths, returning a nil index
// (not an error) for an empty path set -- spec §4.F's "path set is empty"
// case, which callers (loci.New, seeddriver.New) already treat as a nil
// pidx meaning "no paths selected".
func buildPathIndex(g graph.Graph, ps *pathset.Set) (*pathindex.Index, error) {
	if ps.Len() == 0 {
		return nil, nil
	}
	return pathindex.BuildFromSet(g, ps)
}

// selectPaths implements spec §4.D/§4.C's path selection: up to n paths per
// weakly-connected region, the first chosen by gwalk.Random (nothing is
// covered yet) and the rest by gwalk.Global (minimize coverage by
// already-chosen paths), starting from each region's lowest-rank node.
func selectPaths(g graph.Graph, n int) *pathset.Set {
	ps := pathset.New(g)
	if n <= 0 {
		return ps
	}
	bound := maxPathSteps(g)
	for _, region := range weaklyConnectedComponents(g) {
		start := region[0]
		for i := 0; i < n; i++ {
			mode := gwalk.Random
			var cov *pathset.Set
			if i > 0 {
				mode, cov = gwalk.Global, ps
			}
			ht := gwalk.NewHaplotyper(g, mode, cov)
			ht.Reset(start, int64(i))
			path := graph.Path{Nodes: []graph.ID{start}, Orientations: []bool{true}}
			for steps := 0; steps < bound && ht.Advance(); steps++ {
				path.Nodes = append(path.Nodes, ht.Current())
				path.Orientations = append(path.Orientations, true)
			}
			ps.Add(path)
			ps.Build() // so the next iteration's Global coverage sees this path
		}
	}
	return ps
}

// walkChars greedily extends a walk from (start, offset) along each node's
// first out-edge until at least need characters have been consumed or a
// dead end is reached, returning the resulting path. It backs patchPathSet's
// short context extension; unlike Haplotyper it isn't trying to diversify
// coverage, only to reach a fixed character budget.
func walkChars(g graph.Graph, start graph.ID, offset, need int) graph.Path {
	path := graph.Path{Nodes: []graph.ID{start}, Orientations: []bool{true}}
	chars := g.NodeLength(start) - offset
	cur := start
	bound := maxPathSteps(g)
	for steps := 0; chars < need && steps < bound; steps++ {
		var next graph.ID
		found := false
		g.ForEachEdgesOut(cur, func(e graph.Edge) bool {
			next, found = e.To, true
			return false // first out-edge only
		})
		if !found {
			break
		}
		path.Nodes = append(path.Nodes, next)
		path.Orientations = append(path.Orientations, true)
		chars += g.NodeLength(next)
		cur = next
	}
	return path
}

// patchPathSet implements the GLOSSARY's "patched path": every starting
// locus against the unpatched path set is covered by a fresh patch path of
// k+context characters rooted at that locus, the path set and path index
// are rebuilt over the enlarged set, and starting loci are recomputed
// (necessarily a subset of the input, since every original locus is now
// on some path).
func patchPathSet(g graph.Graph, ps *pathset.Set, k, context, step int) (*pathset.Set, *pathindex.Index, []loci.Locus, error) {
	starts := loci.New(g, buildOrNil(g, ps), k).Enumerate(step)
	for _, l := range starts {
		ps.Add(walkChars(g, l.Node, l.Offset, k+context))
	}
	ps.Build()
	pidx, err := buildPathIndex(g, ps)
	if err != nil {
		return nil, nil, nil, err
	}
	newStarts := loci.New(g, pidx, k).Enumerate(step)
	log.Printf("panseed: patched path set reduced starting loci from %d to %d", len(starts), len(newStarts))
	return ps, pidx, newStarts, nil
}

func buildOrNil(g graph.Graph, ps *pathset.Set) *pathindex.Index {
	ix, err := buildPathIndex(g, ps)
	if err != nil {
		log.Panicf("panseed: unexpected path-index build failure over an already-built set: %v", err)
	}
	return ix
}

// regionUnionFind groups nodes by weak connectivity for selectPaths; it is a
// plain union-find, independent of distidx's region-hashing variant (that
// one exists to assign a farm-hash region id per node for the distance
// index, not to pick a representative start node for path selection).
type regionUnionFind struct {
	parent map[graph.ID]graph.ID
}

func newRegionUnionFind() *regionUnionFind {
	return &regionUnionFind{parent: map[graph.ID]graph.ID{}}
}

func (u *regionUnionFind) find(x graph.ID) graph.ID {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *regionUnionFind) union(a, b graph.ID) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// weaklyConnectedComponents partitions g into weakly-connected components,
// each returned as its member node ids in rank order (so region[0] is the
// component's lowest-rank node, spec §4.G's "starting node of the region's
// reference path").
func weaklyConnectedComponents(g graph.Graph) [][]graph.ID {
	uf := newRegionUnionFind()
	var order []graph.ID
	g.ForEachNode(1, func(id graph.ID) bool {
		uf.find(id)
		order = append(order, id)
		return true
	})
	g.ForEachNode(1, func(id graph.ID) bool {
		g.ForEachEdgesOut(id, func(e graph.Edge) bool {
			uf.union(id, e.To)
			return true
		})
		return true
	})
	groups := map[graph.ID][]graph.ID{}
	var repOrder []graph.ID
	for _, id := range order {
		r := uf.find(id)
		if _, ok := groups[r]; !ok {
			repOrder = append(repOrder, r)
		}
		groups[r] = append(groups[r], id)
	}
	comps := make([][]graph.ID, len(repOrder))
	for i, r := range repOrder {
		comps[i] = groups[r]
	}
	return comps
}

// SerializePathIndex implements spec §4.K's serialize_path_index(prefix):
// an atomic save of {path index, starts, distance matrix} under prefix.
// CreatePathIndex or LoadPathIndex must have run first.
func (f *Finder) SerializePathIndex(ctx context.Context, prefix string) error {
	if f.ps == nil {
		return wrapInvalid("SerializePathIndex: no path index built; call CreatePathIndex or LoadPathIndex first")
	}
	if f.pidx != nil {
		if err := persist.SavePathIndex(ctx, prefix, f.pidx); err != nil {
			return err
		}
	}
	if err := persist.SaveLoci(ctx, prefix, f.params.step, f.k, f.starts); err != nil {
		return err
	}
	return persist.SaveDistanceMatrix(ctx, prefix, f.params.dmin, f.params.dmax, f.dist)
}

// LoadPathIndex implements spec §4.K's load_path_index(prefix, ...):
// idempotent load of the three siblings saved by SerializePathIndex, each
// independently rebuilt from the graph and re-saved if its sibling file is
// missing or fails its consistency check (persist's checksum).
func (f *Finder) LoadPathIndex(ctx context.Context, prefix string, n int, patched bool, context_, step, dmin, dmax int) error {
	p, err := normalize(f.k, Opts{
		NumPaths: n, Patched: patched, Context: context_, Step: step, DMin: dmin, DMax: dmax,
	})
	if err != nil {
		return err
	}
	f.params = p

	pidx, needSavePidx, err := loadOrBuildPathIndex(ctx, prefix, f.g, f.k, p.numPaths, p.patched, p.context, p.step)
	if err != nil {
		return err
	}
	ps, err := rebuildSetFromIndex(f.g, pidx, p.numPaths)
	if err != nil {
		return err
	}

	starts, needSaveLoci, err := loadOrBuildLoci(ctx, prefix, f.g, pidx, f.k, p.step)
	if err != nil {
		return err
	}

	dist, needSaveDist, err := loadOrBuildDist(ctx, prefix, f.g, p.dmin, p.dmax)
	if err != nil {
		return err
	}

	f.ps, f.pidx, f.starts, f.dist = ps, pidx, starts, dist

	if needSavePidx && pidx != nil {
		if err := persist.SavePathIndex(ctx, prefix, pidx); err != nil {
			return err
		}
	}
	if needSaveLoci {
		if err := persist.SaveLoci(ctx, prefix, p.step, f.k, starts); err != nil {
			return err
		}
	}
	if needSaveDist {
		if err := persist.SaveDistanceMatrix(ctx, prefix, p.dmin, p.dmax, dist); err != nil {
			return err
		}
	}
	return nil
}

// loadOrBuildPathIndex tries persist.LoadPathIndex first; a missing or
// corrupt sibling falls back to rebuilding via selectPaths (and, if
// patched, patchPathSet), matching spec §6's "missing sibling is rebuilt
// and saved before returning".
func loadOrBuildPathIndex(ctx context.Context, prefix string, g graph.Graph, k, n int, patched bool, context, step int) (*pathindex.Index, bool, error) {
	if ix, err := persist.LoadPathIndex(ctx, prefix); err == nil {
		return ix, false, nil
	}
	ps := selectPaths(g, n)
	ps.Build()
	pidx, err := buildPathIndex(g, ps)
	if err != nil {
		return nil, false, err
	}
	if patched {
		_, pidx, _, err = patchPathSet(g, ps, k, context, step)
		if err != nil {
			return nil, false, err
		}
	}
	return pidx, true, nil
}

// rebuildSetFromIndex re-derives a pathset.Set over pidx's forward
// sequences, needed because persist only serializes the path index itself
// (pathindex.Serialize re-derives deterministically from forward
// sequences), not the pathset.Set wrapper seeddriver.New needs for
// Select/CoveredBy.
func rebuildSetFromIndex(g graph.Graph, pidx *pathindex.Index, n int) (*pathset.Set, error) {
	ps := pathset.New(g)
	if pidx == nil {
		ps.Build()
		return ps, nil
	}
	for _, seq := range pidx.Paths() {
		path, err := pathFromSequence(g, seq)
		if err != nil {
			return nil, err
		}
		ps.Add(path)
	}
	ps.Build()
	return ps, nil
}

// pathFromSequence recovers a node path from a persisted path sequence by a
// greedy character walk along out-edges, with no backtracking. Where node
// sequences do not disambiguate the walk it may pick the wrong branch or
// fail with perr.ErrIndexCorruption; LoadPathIndex's rebuilt path set is
// exact only for graphs whose node sequences make the walk unambiguous.
func pathFromSequence(g graph.Graph, seq string) (graph.Path, error) {
	// Greedy character-walk reconstruction: starting from every node whose
	// sequence is a prefix of seq, follow out-edges consuming seq
	// character-by-character. Ambiguous graphs may pick the wrong branch;
	// see the doc comment above for the accepted limitation.
	var path graph.Path
	found := false
	g.ForEachNode(1, func(id graph.ID) bool {
		if tryWalk(g, id, seq, &path) {
			found = true
			return false
		}
		return true
	})
	if !found {
		return graph.Path{}, perr.Wrap(perr.ErrIndexCorruption, "panseed: could not reconstruct a graph path for a loaded path-index sequence")
	}
	return path, nil
}

func tryWalk(g graph.Graph, start graph.ID, seq string, out *graph.Path) bool {
	nodes := []graph.ID{start}
	consumed := g.NodeLength(start)
	if consumed > len(seq) || g.NodeSequence(start) != seq[:consumed] {
		return false
	}
	cur := start
	for consumed < len(seq) {
		advanced := false
		g.ForEachEdgesOut(cur, func(e graph.Edge) bool {
			l := g.NodeLength(e.To)
			if consumed+l <= len(seq) && g.NodeSequence(e.To) == seq[consumed:consumed+l] {
				nodes = append(nodes, e.To)
				consumed += l
				cur = e.To
				advanced = true
				return false
			}
			return true
		})
		if !advanced {
			return false
		}
	}
	orientations := make([]bool, len(nodes))
	for i := range orientations {
		orientations[i] = true
	}
	*out = graph.Path{Nodes: nodes, Orientations: orientations}
	return true
}

func loadOrBuildLoci(ctx context.Context, prefix string, g graph.Graph, pidx *pathindex.Index, k, step int) ([]loci.Locus, bool, error) {
	if locs, err := persist.LoadLoci(ctx, prefix, step, k); err == nil {
		return locs, false, nil
	}
	return loci.New(g, pidx, k).Enumerate(step), true, nil
}

func loadOrBuildDist(ctx context.Context, prefix string, g graph.Graph, dmin, dmax int) (*distidx.Index, bool, error) {
	if m, err := persist.LoadDistanceMatrix(ctx, prefix, dmin, dmax); err == nil {
		return distidx.FromMatrix(g, dmin, dmax, m), false, nil
	}
	ix, err := distidx.Build(g, dmin, dmax)
	if err != nil {
		return nil, false, err
	}
	return ix, true, nil
}

// SeedsAll implements spec §4.K's seeds_all(reads, read_index, traverser,
// callback): it fans reads out into ChunkSize chunks, runs one
// seeddriver.Driver per chunk with bounded parallelism
// (github.com/grailbio/base/traverse.Each, spec §5's one-thread-per-chunk
// model), and delivers hits to emit in chunk order (spec §5: "chunks are
// processed in input order ... preserves chunk order but interleaves
// intra-chunk seeds"), using a syncqueue.OrderedQueue the same way
// cmd/bio-pamtool/cmd/view.go restores shard order across a worker pool.
func (f *Finder) SeedsAll(reads []seeddriver.Read, emit func(seeddriver.Hit)) error {
	if f.ps == nil {
		return wrapInvalid("SeedsAll: no path index built; call CreatePathIndex or LoadPathIndex first")
	}
	cfg := seeddriver.Config{
		K:             f.k,
		GoccThreshold: f.goccThreshold,
		Distance:      f.params.distance,
		MinMemLen:     f.params.minMemLen,
	}
	chunks := chunkReads(reads, f.params.chunkSize)
	if len(chunks) == 0 {
		return nil
	}

	oq := syncqueue.NewOrderedQueue(len(chunks))
	var once baseerrors.Once
	runErr := traverse.Each(len(chunks), func(i int) error {
		drv := seeddriver.New(f.ps, f.pidx, f.trav, f.starts, cfg)
		var hits []seeddriver.Hit
		if err := drv.RunChunk(chunks[i], f.stats, func(h seeddriver.Hit) { hits = append(hits, h) }); err != nil {
			return err
		}
		return oq.Insert(i, hits)
	})
	if runErr != nil {
		return runErr
	}

	for range chunks {
		val, ok, err := oq.Next()
		if err != nil {
			once.Set(err)
			break
		}
		if !ok {
			break
		}
		for _, h := range val.([]seeddriver.Hit) {
			emit(h)
		}
	}
	return once.Err()
}

// MEM implements spec §4.K's MEM-mode surface: a direct path-index walk
// over pattern with no read-index involved (spec §4.I's MEM mode).
func (f *Finder) MEM(pattern string, minLen int) []pathindex.Occurrence {
	if f.pidx == nil {
		return nil
	}
	drv := seeddriver.New(f.ps, f.pidx, f.trav, f.starts, seeddriver.Config{
		K: f.k, GoccThreshold: f.goccThreshold, Distance: f.params.distance, MinMemLen: minLen,
	})
	return drv.MEM(pattern)
}

// Locate resolves a path-index occurrence (as returned by MEM) to its
// graph position, via the same pathset.Set.Select lookup the dual seed
// driver uses internally to fill in Hit.NodeID/NodeOffset.
func (f *Finder) Locate(occ pathindex.Occurrence) (graph.ID, int) {
	return f.ps.Select(occ.PathIndex, occ.Offset)
}

// DistanceIndex exposes the built distance index for paired-end verify
// callers (spec §4.G's query surface).
func (f *Finder) DistanceIndex() *distidx.Index { return f.dist }

// StartingLoci returns the enumerated starting loci (spec §4.F).
func (f *Finder) StartingLoci() []loci.Locus { return append([]loci.Locus(nil), f.starts...) }

func chunkReads(reads []seeddriver.Read, size int) [][]seeddriver.Read {
	if size <= 0 {
		size = len(reads)
	}
	var out [][]seeddriver.Read
	for i := 0; i < len(reads); i += size {
		end := i + size
		if end > len(reads) {
			end = len(reads)
		}
		out = append(out, reads[i:end])
	}
	return out
}
