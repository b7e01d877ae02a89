// Package distidx implements the distance index of spec §4.G: a per-region
// bounded reachability matrix answering "is there a walk of length in
// [dmin, dmax] between two character positions" used to validate
// paired-end seed hits. It is built once over the whole graph's adjacency,
// expressed as Range-CRS (package crs), via repeated squaring/SpAdd as spec
// §4.A's Power prescribes.
//
// Region identification (spec §4.G's "for each weakly-connected region")
// is tracked alongside the matrix via a union-find over the graph's
// (undirected) connectivity, with a farm-hashed representative id as the
// region identifier -- the same region-id-by-hashing discipline
// fusion/kmer_index.go uses to shard a kmer index -- but the reachability
// matrix itself is assembled as one Range-CRS matrix over global char-order
// coordinates, since cross-region entries are structurally zero and a
// single matrix-power computation is simpler than per-region block algebra
// while remaining bit-identical.
package distidx

import (
	farm "github.com/dgryski/go-farm"

	"github.com/grailbio/panseed/crs"
	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/perr"
)

// Index is the built distance index: the compressed reachability matrix
// plus the [dmin, dmax] bounds it was built for. Immutable after Build;
// safe for concurrent read-only use (spec §5).
type Index struct {
	g          graph.Graph
	dmin, dmax int
	n          int
	m          *crs.Matrix
	regionOf   map[graph.ID]int64
}

// Build constructs the distance index for walks of character length in
// [dmin, dmax] over g's full adjacency.
func Build(g graph.Graph, dmin, dmax int) (*Index, error) {
	if dmin < 1 {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "distidx.Build: dmin must be >= 1")
	}
	if dmax < dmin {
		return nil, perr.Wrapf(perr.ErrInvalidArgument, "distidx.Build: dmax %d < dmin %d", dmax, dmin)
	}

	n := totalChars(g)
	rows := make([]crs.Row, n)
	g.ForEachNode(1, func(id graph.ID) bool {
		base := int(g.CoordinateID(id))
		length := g.NodeLength(id)
		for o := 0; o < length-1; o++ {
			rows[base+o] = crs.Row{{Lo: base + o + 1, Hi: base + o + 2}}
		}
		lastRow := base + length - 1
		g.ForEachEdgesOut(id, func(e graph.Edge) bool {
			c := int(g.CoordinateID(e.To))
			rows[lastRow] = append(rows[lastRow], crs.Range{Lo: c, Hi: c + 1})
			return true
		})
		return true
	})
	a, err := crs.Build(n, n, &crs.SliceProvider{Rows: rows})
	if err != nil {
		return nil, err
	}
	aPlusI, err := a.Add(crs.Identity(n))
	if err != nil {
		return nil, err
	}
	upper, err := crs.Power(aPlusI, dmax)
	if err != nil {
		return nil, err
	}
	result := upper
	if dmin > 1 {
		lower, err := crs.Power(aPlusI, dmin-1)
		if err != nil {
			return nil, err
		}
		result, err = upper.Sub(lower)
		if err != nil {
			return nil, err
		}
	}
	g.ForEachNode(1, func(id graph.ID) bool {
		cloc := int(g.CoordinateID(id))
		result.CompressIntraNode(cloc, cloc+g.NodeLength(id))
		return true
	})

	return &Index{
		g:        g,
		dmin:     dmin,
		dmax:     dmax,
		n:        n,
		m:        result,
		regionOf: computeRegions(g),
	}, nil
}

// totalChars sums node lengths over the whole graph, i.e. the matrix
// dimension in char-order coordinates (spec §3).
func totalChars(g graph.Graph) int {
	n := 0
	g.ForEachNode(1, func(id graph.ID) bool {
		n += g.NodeLength(id)
		return true
	})
	return n
}

// Verify answers spec §4.G's query: is there a walk from (v,o) to (u,p)
// whose character length (not counting the starting character) lies in
// [dmin, dmax]? Same-node queries are answered from offsets alone, since
// intra-node ranges were compressed out of the matrix at Build time.
func (ix *Index) Verify(v graph.ID, o int, u graph.ID, p int) bool {
	if v == u {
		return o <= p && ix.dmin <= p-o && p-o <= ix.dmax
	}
	row := int(ix.g.CoordinateID(v)) + o
	col := int(ix.g.CoordinateID(u)) + p
	if row < 0 || row >= ix.n || col < 0 || col >= ix.n {
		return false
	}
	return ix.m.Has(row, col)
}

// DMin and DMax return the bounds the index was built for.
func (ix *Index) DMin() int { return ix.dmin }
func (ix *Index) DMax() int { return ix.dmax }

// Matrix returns the index's underlying Range-CRS reachability matrix, for
// package persist's §6 serialization.
func (ix *Index) Matrix() *crs.Matrix { return ix.m }

// FromMatrix rewraps a matrix loaded by persist.LoadDistanceMatrix into an
// Index over g, recomputing the region map (cheap relative to the matrix
// itself, and not part of the distance-matrix sibling's framing).
func FromMatrix(g graph.Graph, dmin, dmax int, m *crs.Matrix) *Index {
	return &Index{
		g:        g,
		dmin:     dmin,
		dmax:     dmax,
		n:        totalChars(g),
		m:        m,
		regionOf: computeRegions(g),
	}
}

// RegionOf returns the region identifier of node id: a farm hash of the
// representative node of id's weakly-connected component.
func (ix *Index) RegionOf(id graph.ID) int64 { return ix.regionOf[id] }

// computeRegions partitions the graph into weakly-connected components via
// union-find over its (direction-agnostic) edges and hashes each
// component's representative id into a region identifier, matching
// fusion/kmer_index.go's farm-hash sharding idiom.
func computeRegions(g graph.Graph) map[graph.ID]int64 {
	uf := newUnionFind()
	g.ForEachNode(1, func(id graph.ID) bool {
		uf.find(id)
		g.ForEachEdgesOut(id, func(e graph.Edge) bool {
			uf.union(id, e.To)
			return true
		})
		return true
	})
	out := make(map[graph.ID]int64)
	g.ForEachNode(1, func(id graph.ID) bool {
		rep := uf.find(id)
		out[id] = int64(farm.Hash64WithSeed([]byte{}, uint64(rep)))
		return true
	})
	return out
}

type unionFind struct {
	parent map[graph.ID]graph.ID
}

func newUnionFind() *unionFind { return &unionFind{parent: map[graph.ID]graph.ID{}} }

func (u *unionFind) find(x graph.ID) graph.ID {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b graph.ID) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
