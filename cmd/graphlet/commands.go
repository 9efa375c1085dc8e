package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/compress"
	"github.com/fine-structures/graphlet/lib/config"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/library"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// session holds what every command needs after flags and the config file are resolved.
type session struct {
	configPath  string
	metricsPath string
	flags       config.Config

	cfg      config.Config
	registry *prometheus.Registry
	metrics  *compress.Metrics
}

func newRootCmd(klogFlags *flag.FlagSet) *cobra.Command {
	sess := &session{
		flags: config.Default(),
	}

	rootCmd := &cobra.Command{
		Use:           "graphlet",
		Short:         "Lossless directed graph compression by motif substitution",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return sess.resolve(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return sess.writeMetrics()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&sess.configPath, "config", "", "YAML config file")
	pf.StringVar(&sess.flags.Library, "library", "", "pattern library file")
	pf.StringVar(&sess.flags.Catalog, "catalog", "", "pattern catalog db dir")
	pf.IntVar(&sess.flags.Workers, "workers", sess.flags.Workers, "number of pieces matched concurrently")
	pf.IntVar(&sess.flags.EdgeCutoff, "cutoff", sess.flags.EdgeCutoff, "graphs with more edges than this are partitioned")
	pf.Uint64Var(&sess.flags.Seed, "seed", 0, "community detection seed")
	pf.StringVar(&sess.metricsPath, "metrics-out", "", "write prometheus metrics to this file on exit")
	pf.AddGoFlagSet(klogFlags)

	rootCmd.AddCommand(
		newCompressCmd(sess),
		newDecompressCmd(sess),
		newDecompressAdjCmd(sess),
		newVerifyLibraryCmd(sess),
		newImportCatalogCmd(sess),
		newRunCmd(),
	)
	return rootCmd
}

// resolve loads the config file (if any) and then applies explicitly set flags over it.
func (sess *session) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if sess.configPath != "" {
		var err error
		if cfg, err = config.Load(sess.configPath); err != nil {
			return err
		}
	}

	pf := cmd.Flags()
	if pf.Changed("library") {
		cfg.Library = sess.flags.Library
	}
	if pf.Changed("catalog") {
		cfg.Catalog = sess.flags.Catalog
	}
	if pf.Changed("workers") {
		cfg.Workers = sess.flags.Workers
	}
	if pf.Changed("cutoff") {
		cfg.EdgeCutoff = sess.flags.EdgeCutoff
	}
	if pf.Changed("seed") {
		cfg.Seed = sess.flags.Seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sess.cfg = cfg

	sess.registry = prometheus.NewRegistry()
	sess.metrics = compress.NewMetrics(sess.registry)
	return nil
}

func (sess *session) writeMetrics() error {
	if sess.metricsPath == "" || sess.registry == nil {
		return nil
	}
	return prometheus.WriteToTextfile(sess.metricsPath, sess.registry)
}

// loadLibrary prefers the catalog when one is configured.
func (sess *session) loadLibrary() (*library.Library, error) {
	if sess.cfg.Catalog != "" {
		cat, err := library.OpenCatalog(library.CatalogOpts{
			DbPathName: sess.cfg.Catalog,
			ReadOnly:   true,
		})
		if err != nil {
			return nil, err
		}
		defer cat.Close()
		return cat.Library()
	}
	if sess.cfg.Library == "" {
		return nil, errors.Wrap(graphlet.ErrBadConfig, "no --library or --catalog given")
	}
	return library.Load(sess.cfg.Library)
}

func newCompressCmd(sess *session) *cobra.Command {
	var outputName string

	cmd := &cobra.Command{
		Use:   "compress <edge-list>",
		Short: "Compress an edge list file into <name>" + graphlet.CompressedSuffix,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := sess.loadLibrary()
			if err != nil {
				return err
			}
			G, err := digraph.LoadEdgeList(args[0])
			if err != nil {
				return err
			}
			if outputName == "" {
				outputName = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			startTime := time.Now()
			c := compress.NewCompressor(lib, sess.cfg.CompressOpts(), sess.metrics)
			pathname, err := c.Compress(ctx, G, outputName)
			if err != nil {
				return err
			}

			fi, err := os.Stat(pathname)
			if err != nil {
				return err
			}
			klog.Infof("compressed %s nodes, %s edges into %q (%s) in %v",
				humanize.Comma(int64(G.NumNodes())),
				humanize.Comma(int64(G.NumEdges())),
				pathname,
				humanize.Bytes(uint64(fi.Size())),
				time.Since(startTime).Round(time.Millisecond))
			if G.NumEdges() > 0 {
				klog.Infof("%.3f bytes per edge", float64(fi.Size())/float64(G.NumEdges()))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputName, "output", "o", "", "output name; defaults to the input path without its extension")
	return cmd
}

func newDecompressCmd(sess *session) *cobra.Command {
	var (
		start      int64
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "decompress <compressed-graph>",
		Short: "Rebuild an edge list from a compressed graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") {
				start = int64(sess.cfg.StartNode())
			}
			if start < 0 {
				return errors.Wrap(graphlet.ErrBadNodeID, "--start must be >= 0")
			}
			G, tokens, err := compress.Decompress(args[0], graphlet.NodeID(start), sess.metrics)
			if err != nil {
				return err
			}
			return writeDecompressed(G, tokens, outputPath)
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "ID of the first node")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "edge list output file; stdout if not set")
	return cmd
}

func newDecompressAdjCmd(sess *session) *cobra.Command {
	var (
		start      int64
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "decompress-adj <patterns> <edges>",
		Short: "Rebuild an edge list from an adjacency-form pattern file and literal edge file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") {
				start = int64(sess.cfg.StartNode())
			}
			if start < 0 {
				return errors.Wrap(graphlet.ErrBadNodeID, "--start must be >= 0")
			}
			G, tokens, err := compress.DecompressAdj(args[0], args[1], graphlet.NodeID(start), sess.metrics)
			if err != nil {
				return err
			}
			return writeDecompressed(G, tokens, outputPath)
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "ID of the first node")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "edge list output file; stdout if not set")
	return cmd
}

func writeDecompressed(G *digraph.Graph, tokens int, outputPath string) error {
	klog.Infof("decompressed %s nodes, %s edges from %s tokens",
		humanize.Comma(int64(G.NumNodes())),
		humanize.Comma(int64(G.NumEdges())),
		humanize.Comma(int64(tokens)))

	if outputPath == "" {
		return digraph.WriteEdgeList(os.Stdout, G)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	err = digraph.WriteEdgeList(file, G)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

func newVerifyLibraryCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-library",
		Short: "Check that every pattern's generators reproduce its edges from its residual",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := sess.loadLibrary()
			if err != nil {
				return err
			}
			issues := library.Validate(lib)
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue.String())
			}
			if len(issues) > 0 {
				return errors.Errorf("%d of %d patterns are inconsistent", len(issues), lib.Len())
			}
			klog.Infof("%s patterns OK", humanize.Comma(int64(lib.Len())))
			return nil
		},
	}
}

func newImportCatalogCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog",
		Short: "Store the --library patterns in the --catalog db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sess.cfg.Library == "" || sess.cfg.Catalog == "" {
				return errors.Wrap(graphlet.ErrBadConfig, "import-catalog needs both --library and --catalog")
			}
			lib, err := library.Load(sess.cfg.Library)
			if err != nil {
				return err
			}
			cat, err := library.OpenCatalog(library.CatalogOpts{
				DbPathName: sess.cfg.Catalog,
			})
			if err != nil {
				return err
			}
			defer cat.Close()

			if err = cat.Import(lib); err != nil {
				return err
			}
			klog.Infof("imported %s patterns into %q", humanize.Comma(int64(cat.NumPatterns())), sess.cfg.Catalog)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [script.py]",
		Short: "Run a gpython script with the _graphlet module, or start a REPL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathname := ""
			if len(args) > 0 {
				pathname = args[0]
			}
			return runScript(pathname)
		},
	}
}
