package config

import (
	"os"
	"runtime"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/compress"
	"github.com/fine-structures/graphlet/lib/partition"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of the graphlet tool.
type Config struct {
	Library       string  `yaml:"library"`         // pattern library file
	Catalog       string  `yaml:"catalog"`         // pattern catalog db dir; used instead of Library if set
	EdgeCutoff    int     `yaml:"edge_cutoff"`     // graphs with more edges are partitioned
	MinPieceNodes int     `yaml:"min_piece_nodes"` // communities need strictly more nodes to be kept
	MinPieceEdges int     `yaml:"min_piece_edges"` // and strictly more edges
	Resolution    float64 `yaml:"resolution"`
	Seed          uint64  `yaml:"seed"`
	Workers       int     `yaml:"workers"`
	StartingNode  int64   `yaml:"starting_node"`
}

func Default() Config {
	popts := partition.DefaultOpts()
	return Config{
		EdgeCutoff:    popts.EdgeCutoff,
		MinPieceNodes: popts.MinNodes,
		MinPieceEdges: popts.MinEdges,
		Resolution:    popts.Resolution,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

// Load reads a YAML config file.  Fields absent from the file keep their Default() values.
func Load(pathname string) (Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(pathname)
	if err != nil {
		return cfg, err
	}
	if err = yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %q", pathname)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %q", pathname)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch {
	case cfg.EdgeCutoff <= 0:
		return errors.Wrap(graphlet.ErrBadConfig, "edge_cutoff must be > 0")
	case cfg.MinPieceNodes < 0:
		return errors.Wrap(graphlet.ErrBadConfig, "min_piece_nodes must be >= 0")
	case cfg.MinPieceEdges < 0:
		return errors.Wrap(graphlet.ErrBadConfig, "min_piece_edges must be >= 0")
	case cfg.Resolution <= 0:
		return errors.Wrap(graphlet.ErrBadConfig, "resolution must be > 0")
	case cfg.StartingNode < 0:
		return errors.Wrap(graphlet.ErrBadConfig, "starting_node must be >= 0")
	}
	return nil
}

// CompressOpts returns the pipeline options this config describes.
func (cfg *Config) CompressOpts() compress.Opts {
	return compress.Opts{
		Partition: partition.Opts{
			EdgeCutoff: cfg.EdgeCutoff,
			MinNodes:   cfg.MinPieceNodes,
			MinEdges:   cfg.MinPieceEdges,
			Resolution: cfg.Resolution,
			Seed:       cfg.Seed,
		},
		Workers: cfg.Workers,
	}
}

func (cfg *Config) StartNode() graphlet.NodeID {
	return graphlet.NodeID(cfg.StartingNode)
}
