package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/errors"
	"github.com/xtxerr/tierstat/internal/fsbench"
	"github.com/xtxerr/tierstat/internal/report"
)

func newFSBenchCmd(opts *options) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "fsbench <run-dir>",
		Short: "Summarizes filesystem and evaluation benchmark latencies",
		Args:  dirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("rows") {
				cfg.FSBench.EvaluationRows = rows
			}

			sum, err := fsbench.Load(args[0], cfg)
			if err != nil {
				return err
			}
			if sum.IsEmpty() {
				return fmt.Errorf("no %s or evaluation CSVs in %s: %w", constants.FilesystemMeasurementsFile, args[0], errors.ErrNotFound)
			}
			report.WriteFSBench(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "evaluation rows to read, 0 for all (overrides config)")
	return cmd
}
