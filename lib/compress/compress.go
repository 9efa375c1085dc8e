package compress

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/codec"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/library"
	"github.com/fine-structures/graphlet/lib/motif"
	"github.com/fine-structures/graphlet/lib/partition"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"
)

// Opts control a Compressor.
type Opts struct {
	Partition partition.Opts
	Workers   int // max pieces matched at once; <= 0 means GOMAXPROCS
}

func DefaultOpts() Opts {
	return Opts{
		Partition: partition.DefaultOpts(),
	}
}

// Compressor turns graphs into compressed graph files using a fixed pattern library.
type Compressor struct {
	Opts    Opts
	Metrics *Metrics // optional

	matcher *motif.Matcher
}

// NewCompressor prepares lib for matching.  metrics may be nil.
func NewCompressor(lib *library.Library, opts Opts, metrics *Metrics) *Compressor {
	c := &Compressor{
		Opts:    opts,
		Metrics: metrics,
		matcher: motif.NewMatcher(lib),
	}
	if metrics != nil {
		c.matcher.OnMatch = func(P *graphlet.Pattern, covered int) {
			metrics.onMatch(P.ID, covered)
		}
	}
	return c
}

func (c *Compressor) Library() *library.Library {
	return c.matcher.Library()
}

type pieceResult struct {
	instances []graphlet.Instance
	leftovers []graphlet.Edge
}

// CompressGraph compresses G into its in-memory file form.  G is not modified.
//
// Instances are ordered by piece, then by pattern, then by match order.  Literals are each piece's leftovers
// in piece order followed by the edges that fell outside every piece.  Pieces are matched concurrently but the
// result does not depend on the number of workers.
func (c *Compressor) CompressGraph(ctx context.Context, G *digraph.Graph) (*codec.File, error) {
	if G == nil {
		return nil, graphlet.ErrNilGraph
	}
	startTime := time.Now()

	pieces := partition.Decompose(G, c.Opts.Partition)
	results := make([]pieceResult, len(pieces))

	workers := c.Opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i, piece := range pieces {
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				return err
			}
			instances, leftovers := c.matcher.CompressPiece(piece)
			results[i] = pieceResult{instances, leftovers}
			klog.V(1).Infof("piece %d/%d: %d edges, %d instances, %d leftover", i+1, len(pieces), piece.NumEdges(), len(instances), len(leftovers))
			if c.Metrics != nil {
				c.Metrics.Pieces.Inc()
				c.Metrics.PieceEdges.Observe(float64(piece.NumEdges()))
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	f := &codec.File{
		NodeCount: G.NumNodes(),
	}

	remainder := G.Copy()
	for i, piece := range pieces {
		f.Instances = append(f.Instances, results[i].instances...)
		f.Literals = append(f.Literals, results[i].leftovers...)
		remainder.RemoveEdges(piece.Edges())
	}
	f.Literals = append(f.Literals, remainder.Edges()...)

	if c.Metrics != nil {
		c.Metrics.Graphs.Inc()
		c.Metrics.LiteralEdges.Add(float64(len(f.Literals)))
		c.Metrics.CompressDur.Observe(time.Since(startTime).Seconds())
	}
	klog.V(1).Infof("compressed %d edges into %d instances and %d literals", G.NumEdges(), len(f.Instances), len(f.Literals))

	return f, nil
}

// Compress compresses G and writes it to <outputName>_compressed.graph, returning the pathname written.
func (c *Compressor) Compress(ctx context.Context, G *digraph.Graph, outputName string) (string, error) {
	f, err := c.CompressGraph(ctx, G)
	if err != nil {
		return "", err
	}

	pathname := outputName + graphlet.CompressedSuffix
	if err = WriteFile(pathname, f); err != nil {
		return "", err
	}
	return pathname, nil
}

// WriteFile writes f to pathname, replacing any existing file only once the write has fully succeeded.
func WriteFile(pathname string, f *codec.File) error {
	tmpPath := pathname + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	err = codec.Write(file, f)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpPath, pathname)
	}
	if err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "writing %q", pathname)
	}
	return nil
}
