package main

// loadGFA reads a minimal subset of GFA1 (S and L lines only, spec §6's
// "graph path" input) into a graph.Memory: segment names become node ids in
// first-appearance order, and CIGAR/overlap fields on L lines are ignored
// since panseed's Graph contract has no use for them. Unsupported line
// types (H, C, P, comments) are skipped rather than rejected, matching
// downsample.go's scanRead tolerance for fields it doesn't need.
import (
	"bufio"
	"io"
	"strings"

	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/perr"
)

func loadGFA(r io.Reader) (*graph.Memory, error) {
	seqs := map[graph.ID]string{}
	var order []graph.ID
	ids := map[string]graph.ID{}
	var edges []graph.Edge
	nextID := graph.ID(1)

	idFor := func(name string) graph.ID {
		if id, ok := ids[name]; ok {
			return id
		}
		id := nextID
		nextID++
		ids[name] = id
		return id
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		switch fields[0] {
		case "S":
			if len(fields) < 3 {
				return nil, perr.Wrapf(perr.ErrInvalidArgument, "gfa: malformed S line: %q", line)
			}
			id := idFor(fields[1])
			seqs[id] = fields[2]
			order = append(order, id)
		case "L":
			if len(fields) < 5 {
				return nil, perr.Wrapf(perr.ErrInvalidArgument, "gfa: malformed L line: %q", line)
			}
			from, to := idFor(fields[1]), idFor(fields[3])
			edges = append(edges, graph.Edge{From: from, To: to})
		default:
			continue
		}
	}
	if err := sc.Err(); err != nil {
		return nil, perr.Wrap(err, "gfa: scan")
	}
	if len(order) == 0 {
		return nil, perr.Wrap(perr.ErrInvalidArgument, "gfa: no segment (S) lines found")
	}
	return graph.NewMemory(seqs, order, edges), nil
}
