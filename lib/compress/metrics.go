package compress

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts compression work.  All fields are safe for concurrent use.
type Metrics struct {
	Graphs        prometheus.Counter
	Pieces        prometheus.Counter
	PieceEdges    prometheus.Histogram
	Instances     *prometheus.CounterVec // by pattern ID
	MatchedEdges  prometheus.Counter
	LiteralEdges  prometheus.Counter
	CompressDur   prometheus.Histogram
	DecompressDur prometheus.Histogram
}

// NewMetrics creates compression metrics and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	const namespace = "graphlet"

	m := &Metrics{
		Graphs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphs_compressed_total",
			Help:      "Total number of graphs compressed",
		}),
		Pieces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pieces_total",
			Help:      "Total number of partition pieces matched",
		}),
		PieceEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "piece_edges",
			Help:      "Number of edges per partition piece",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		Instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_total",
			Help:      "Total number of pattern instances found",
		}, []string{"pattern"}),
		MatchedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matched_edges_total",
			Help:      "Total number of edges covered by pattern instances",
		}),
		LiteralEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "literal_edges_total",
			Help:      "Total number of edges written as literals",
		}),
		CompressDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compress_duration_seconds",
			Help:      "Time to compress a graph",
			Buckets:   prometheus.DefBuckets,
		}),
		DecompressDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decompress_duration_seconds",
			Help:      "Time to decompress a graph",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Graphs,
			m.Pieces,
			m.PieceEdges,
			m.Instances,
			m.MatchedEdges,
			m.LiteralEdges,
			m.CompressDur,
			m.DecompressDur,
		)
	}
	return m
}

func (m *Metrics) onMatch(patternID int, covered int) {
	m.Instances.WithLabelValues(strconv.Itoa(patternID)).Inc()
	m.MatchedEdges.Add(float64(covered))
}
