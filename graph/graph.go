// Package graph defines the external graph contract that every other
// panseed component consumes (spec §6) and provides an in-memory
// implementation used by tests, the CLI, and anywhere a real succinct graph
// library isn't wired in. The container itself is explicitly out of scope
// per spec §1 ("the underlying succinct graph container (assumed present;
// contract below)"); Graph exists only as the seam other components are
// built against, modeled on katalvlaran-lvlath/core's adjacency-list shape.
package graph

// ID is a stable external node identifier, independent of rank.
type ID int64

// Rank is a topological rank in [1, N].
type Rank int64

// Kind tags whether a Graph is backed by a succinct (immutable, compact) or
// dynamic (mutable) representation, letting algorithms choose strategies
// (spec §6's "succinct/dynamic specialization tag").
type Kind int

const (
	Succinct Kind = iota
	Dynamic
)

// Edge is a directed edge between two node ids.
type Edge struct {
	From, To ID
}

// Path is an ordered walk, as node ids, with an orientation flag per node
// (true = forward).
type Path struct {
	Nodes        []ID
	Orientations []bool
}

// Graph is the read contract every component is built against.
type Graph interface {
	Kind() Kind

	NodeCount() int
	EdgeCount() int
	PathCount() int

	RankToID(r Rank) ID
	IDToRank(id ID) Rank
	CoordinateID(id ID) int64
	IDByCoordinate(coord int64) ID

	NodeLength(id ID) int
	NodeSequence(id ID) string

	// ForEachNode calls fn for every node whose rank is >= lower, in rank
	// order, stopping early if fn returns false.
	ForEachNode(lower Rank, fn func(id ID) bool)
	ForEachPath(fn func(p Path) bool)
	ForEachEdgesOut(id ID, fn func(e Edge) bool)

	HasEdgesOut(id ID) bool
	Outdegree(id ID) int
}

// Memory is a simple in-memory Graph, built once and read-only thereafter
// (spec §5: "graph ... shared immutable after build; any thread may read").
type Memory struct {
	kind     Kind
	ids      []ID // rank (1-based) -> id
	rankOf   map[ID]Rank
	seq      map[ID]string
	outEdges map[ID][]ID
	paths    []Path
	coordOf  map[ID]int64
	idByCoor map[int64]ID
}

// NewMemory builds an in-memory Graph from nodes (in rank order, rank 1..N)
// and directed edges. Node ids must be distinct; an edge referencing an
// unknown id panics, matching the teacher's "malformed input is a
// programmer error" posture (grailbio/base/log.Panicf call sites).
func NewMemory(nodeSeqs map[ID]string, order []ID, edges []Edge) *Memory {
	m := &Memory{
		kind:     Succinct,
		ids:      append([]ID{0}, order...), // index 0 unused, ranks are 1-based
		rankOf:   make(map[ID]Rank, len(order)),
		seq:      make(map[ID]string, len(order)),
		outEdges: make(map[ID][]ID),
		coordOf:  make(map[ID]int64, len(order)),
		idByCoor: make(map[int64]ID, len(order)),
	}
	var coord int64
	for i, id := range order {
		m.rankOf[id] = Rank(i + 1)
		seq, ok := nodeSeqs[id]
		if !ok {
			panic("graph.NewMemory: missing sequence for node id")
		}
		m.seq[id] = seq
		m.coordOf[id] = coord
		m.idByCoor[coord] = id
		coord += int64(len(seq))
	}
	for _, e := range edges {
		if _, ok := m.rankOf[e.From]; !ok {
			panic("graph.NewMemory: edge references unknown node")
		}
		if _, ok := m.rankOf[e.To]; !ok {
			panic("graph.NewMemory: edge references unknown node")
		}
		m.outEdges[e.From] = append(m.outEdges[e.From], e.To)
	}
	return m
}

// AddPath registers a reference path. Paths are immutable once the graph is
// built; this is only used while constructing a Memory graph for tests.
func (m *Memory) AddPath(p Path) { m.paths = append(m.paths, p) }

func (m *Memory) Kind() Kind     { return m.kind }
func (m *Memory) NodeCount() int { return len(m.ids) - 1 }

func (m *Memory) EdgeCount() int {
	n := 0
	for _, es := range m.outEdges {
		n += len(es)
	}
	return n
}

func (m *Memory) PathCount() int { return len(m.paths) }

func (m *Memory) RankToID(r Rank) ID { return m.ids[r] }
func (m *Memory) IDToRank(id ID) Rank { return m.rankOf[id] }
func (m *Memory) CoordinateID(id ID) int64 { return m.coordOf[id] }
func (m *Memory) IDByCoordinate(coord int64) ID {
	// Locate the node whose [coord, coord+len) interval contains coord by
	// walking ranks; fine for the in-memory stand-in, which is only used in
	// tests and the CLI, not at pan-genome scale.
	for r := Rank(1); int(r) <= m.NodeCount(); r++ {
		id := m.ids[r]
		start := m.coordOf[id]
		if coord >= start && coord < start+int64(len(m.seq[id])) {
			return id
		}
	}
	return -1
}

func (m *Memory) NodeLength(id ID) int      { return len(m.seq[id]) }
func (m *Memory) NodeSequence(id ID) string { return m.seq[id] }

func (m *Memory) ForEachNode(lower Rank, fn func(id ID) bool) {
	for r := lower; int(r) <= m.NodeCount(); r++ {
		if !fn(m.ids[r]) {
			return
		}
	}
}

func (m *Memory) ForEachPath(fn func(p Path) bool) {
	for _, p := range m.paths {
		if !fn(p) {
			return
		}
	}
}

func (m *Memory) ForEachEdgesOut(id ID, fn func(e Edge) bool) {
	for _, to := range m.outEdges[id] {
		if !fn(Edge{From: id, To: to}) {
			return
		}
	}
}

func (m *Memory) HasEdgesOut(id ID) bool { return len(m.outEdges[id]) > 0 }
func (m *Memory) Outdegree(id ID) int    { return len(m.outEdges[id]) }
