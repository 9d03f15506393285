package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xtxerr/tierstat/internal/analysis"
	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/export"
	"github.com/xtxerr/tierstat/internal/fsbench"
	"github.com/xtxerr/tierstat/internal/logging"
	"github.com/xtxerr/tierstat/internal/report"
	"github.com/xtxerr/tierstat/internal/telemetry"
	"github.com/xtxerr/tierstat/internal/wire"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	var flags struct {
		exportDir   string
		compression string
		frames      bool
		quiet       bool
	}

	cmd := &cobra.Command{
		Use:   "analyze <run-dir>",
		Short: "Computes cohort, latency and capacity series of a benchmark run",
		Long: `Reads tier_state.jsonl and betree-metrics.jsonl from the run directory and
prints a summary of every series. tier_state.jsonl is optional; runs without
object tracing only yield capacity series. Benchmark CSVs found next to them
are summarized as well.`,
		Args: dirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("export") {
				cfg.Export.Dir = flags.exportDir
			}
			if cmd.Flags().Changed("compression") {
				cfg.Export.Compression = flags.compression
			}
			if cmd.Flags().Changed("frames") {
				cfg.Export.Frames = flags.frames
			}
			if err := cfg.Export.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			dir := args[0]
			ctx = logging.ContextWithRun(ctx, filepath.Base(dir))

			engine, err := analysis.NewEngine(cfg)
			if err != nil {
				return err
			}

			snaps, closeSnaps, err := openStream(filepath.Join(dir, constants.TierStateFile), telemetry.NewSnapshotReader)
			if err != nil {
				return err
			}
			defer closeSnaps()
			usage, closeUsage, err := openStream(filepath.Join(dir, constants.MetricsFile), telemetry.NewUsageReader)
			if err != nil {
				return err
			}
			defer closeUsage()

			if snaps == nil && usage == nil {
				return fmt.Errorf("neither %s nor %s in %s: %w", constants.TierStateFile, constants.MetricsFile, dir, errors.ErrNotFound)
			}
			if snaps != nil {
				snaps.SetMaxRecordSize(cfg.Input.MaxRecordSize)
			}
			if usage != nil {
				usage.SetMaxRecordSize(cfg.Input.MaxRecordSize)
			}

			rep, err := engine.RunStream(ctx, snaps, usage)
			if err != nil {
				return err
			}

			bench, err := fsbench.Load(dir, cfg)
			if err != nil {
				return err
			}

			if !flags.quiet {
				report.Write(cmd.OutOrStdout(), rep, bench)
			}

			if cfg.Export.Dir == "" {
				return nil
			}
			return writeOutputs(cmd.OutOrStdout(), rep, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.exportDir, "export", "", "write Parquet series into this directory")
	f.StringVar(&flags.compression, "compression", "", "Parquet compression: none, snappy, zstd, lz4 or gzip")
	f.BoolVar(&flags.frames, "frames", false, "also write the protobuf frame stream into the export directory")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "do not print the summary")
	return cmd
}

// openStream opens a JSONL stream. A missing file yields a nil reader.
func openStream[T any](path string, newReader func(io.Reader) *telemetry.Reader[T]) (*telemetry.Reader[T], func(), error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		logging.Component("cli").Info("input not present, skipping", "path", path)
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return newReader(f), func() { f.Close() }, nil
}

func writeOutputs(out io.Writer, rep *analysis.Report, opts *options) error {
	cfg := opts.cfg
	if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
		return err
	}

	exportOpts := export.DefaultOptions()
	exportOpts.Compression = export.ParseCompressionType(cfg.Export.Compression)
	paths, err := export.WriteReport(cfg.Export.Dir, rep, exportOpts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		info, err := export.GetFileInfo(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%d rows, %s)\n", p, info.NumRows, humanize.IBytes(uint64(info.Size)))
	}

	if cfg.Export.Frames {
		path := filepath.Join(cfg.Export.Dir, constants.FramesFile)
		if err := writeFrames(path, rep); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func writeFrames(path string, rep *analysis.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	if err := wire.NewWriter(buf).WriteReport(rep); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return f.Close()
}
