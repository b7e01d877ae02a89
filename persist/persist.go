// Package persist implements the §6 on-disk persistence layout: three
// sibling files next to a caller-chosen prefix P --
//
//	P_pindex                    the path index's forward path sequences
//	P_loci_e{step}l{k}           the starting-loci stream
//	P_dist_mat_m{dmin}M{dmax}    the distance index's Range-CRS matrix
//
// Every sibling is framed the same way: a seahash checksum of the
// (flate-compressed) body, then the body itself. Load recomputes the
// checksum and returns perr.ErrIndexCorruption on mismatch rather than
// silently trusting a truncated or bit-rotted file, mirroring
// cmd/bio-pamtool/checksum.go's use of seahash for record-level integrity
// checks.
//
// Sibling naming follows encoding/pam/pamutil's convention of encoding the
// parameters that select a variant directly into the file name, so a
// directory of siblings for several (step, k, dmin, dmax) combinations never
// collides.
package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/flate"
	"github.com/grailbio/panseed/crs"
	"github.com/grailbio/panseed/distidx"
	"github.com/grailbio/panseed/graph"
	"github.com/grailbio/panseed/loci"
	"github.com/grailbio/panseed/pathindex"
	"github.com/grailbio/panseed/perr"
)

func nodeID(v int64) graph.ID { return graph.ID(v) }

// PathIndexSuffix, LociSuffix and DistMatSuffix return the sibling file
// names for a given prefix and parameter set.
func PathIndexSuffix(prefix string) string { return prefix + "_pindex" }

func LociSuffix(prefix string, step, k int) string {
	return fmt.Sprintf("%s_loci_e%dl%d", prefix, step, k)
}

func DistMatSuffix(prefix string, dmin, dmax int) string {
	return fmt.Sprintf("%s_dist_mat_m%dM%d", prefix, dmin, dmax)
}

// frame compresses body with flate and prepends an 8-byte little-endian
// seahash checksum of the compressed bytes.
func frame(body []byte) ([]byte, error) {
	var compressed bytes.Buffer
	zw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, perr.Wrap(err, "persist.frame: new flate writer")
	}
	if _, err := zw.Write(body); err != nil {
		return nil, perr.Wrap(err, "persist.frame: write")
	}
	if err := zw.Close(); err != nil {
		return nil, perr.Wrap(err, "persist.frame: close")
	}
	sum := seahash.Sum64(compressed.Bytes())
	out := make([]byte, 8+compressed.Len())
	putUint64(out, sum)
	copy(out[8:], compressed.Bytes())
	return out, nil
}

// unframe verifies the checksum and flate-decompresses the body written by
// frame.
func unframe(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, perr.Wrap(perr.ErrIndexCorruption, "persist.unframe: truncated header")
	}
	want := getUint64(raw)
	compressed := raw[8:]
	if got := seahash.Sum64(compressed); got != want {
		return nil, perr.Wrapf(perr.ErrIndexCorruption, "persist.unframe: checksum mismatch: want %x got %x", want, got)
	}
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	body, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, perr.Wrap(err, "persist.unframe: inflate")
	}
	return body, nil
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

// writeFile frames body and writes it to path via grailbio/base/file, the
// same cloud-aware file abstraction the teacher uses for sibling outputs.
func writeFile(ctx context.Context, path string, body []byte) (err error) {
	framed, err := frame(body)
	if err != nil {
		return err
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return perr.Wrap(err, "persist: create "+path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if _, err := out.Writer(ctx).Write(framed); err != nil {
		return perr.Wrap(err, "persist: write "+path)
	}
	return nil
}

func readFile(ctx context.Context, path string) (body []byte, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, perr.Wrap(err, "persist: open "+path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	raw, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, perr.Wrap(err, "persist: read "+path)
	}
	return unframe(raw)
}

// SavePathIndex writes pidx to prefix's path-index sibling.
func SavePathIndex(ctx context.Context, prefix string, pidx *pathindex.Index) error {
	var buf bytes.Buffer
	if err := pidx.Serialize(&buf); err != nil {
		return err
	}
	return writeFile(ctx, PathIndexSuffix(prefix), buf.Bytes())
}

// LoadPathIndex reads back a path index saved by SavePathIndex.
func LoadPathIndex(ctx context.Context, prefix string) (*pathindex.Index, error) {
	body, err := readFile(ctx, PathIndexSuffix(prefix))
	if err != nil {
		return nil, err
	}
	return pathindex.Load(bytes.NewReader(body))
}

// SaveLoci writes the starting-loci stream produced with the given (step, k)
// parameters.
func SaveLoci(ctx context.Context, prefix string, step, k int, locs []loci.Locus) error {
	var buf bytes.Buffer
	if err := writeLoci(&buf, locs); err != nil {
		return err
	}
	return writeFile(ctx, LociSuffix(prefix, step, k), buf.Bytes())
}

// LoadLoci reads back a starting-loci stream saved by SaveLoci.
func LoadLoci(ctx context.Context, prefix string, step, k int) ([]loci.Locus, error) {
	body, err := readFile(ctx, LociSuffix(prefix, step, k))
	if err != nil {
		return nil, err
	}
	return readLoci(bytes.NewReader(body))
}

func writeLoci(w io.Writer, locs []loci.Locus) error {
	if err := writeInt64(w, int64(len(locs))); err != nil {
		return err
	}
	for _, l := range locs {
		if err := writeInt64(w, int64(l.Node)); err != nil {
			return err
		}
		if err := writeInt64(w, int64(l.Offset)); err != nil {
			return err
		}
	}
	return nil
}

func readLoci(r io.Reader) ([]loci.Locus, error) {
	n, err := readInt64(r)
	if err != nil {
		return nil, perr.Wrap(err, "persist.readLoci: count")
	}
	if n < 0 {
		return nil, perr.Wrap(perr.ErrIndexCorruption, "persist.readLoci: negative count")
	}
	out := make([]loci.Locus, n)
	for i := range out {
		node, err := readInt64(r)
		if err != nil {
			return nil, perr.Wrap(err, "persist.readLoci: node")
		}
		off, err := readInt64(r)
		if err != nil {
			return nil, perr.Wrap(err, "persist.readLoci: offset")
		}
		out[i] = loci.Locus{Node: nodeID(node), Offset: int(off)}
	}
	return out, nil
}

// SaveDistanceMatrix writes a distance index's Range-CRS matrix.
func SaveDistanceMatrix(ctx context.Context, prefix string, dmin, dmax int, ix *distidx.Index) error {
	var buf bytes.Buffer
	if err := ix.Matrix().Serialize(&buf); err != nil {
		return err
	}
	return writeFile(ctx, DistMatSuffix(prefix, dmin, dmax), buf.Bytes())
}

// LoadDistanceMatrix reads back a matrix saved by SaveDistanceMatrix. The
// caller re-wraps it into a distidx.Index with distidx.FromMatrix, since the
// region map is cheap to recompute from the same graph and isn't part of
// this file's framing.
func LoadDistanceMatrix(ctx context.Context, prefix string, dmin, dmax int) (*crs.Matrix, error) {
	body, err := readFile(ctx, DistMatSuffix(prefix, dmin, dmax))
	if err != nil {
		return nil, err
	}
	return crs.Load(bytes.NewReader(body))
}

func writeInt64(w io.Writer, v int64) error {
	var b [8]byte
	putUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

func readInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(getUint64(b[:])), nil
}
