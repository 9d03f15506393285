package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/xtxerr/tierstat/internal/constants"
	"github.com/xtxerr/tierstat/internal/export"
	"github.com/xtxerr/tierstat/internal/report"
	"github.com/xtxerr/tierstat/internal/series"
	"github.com/xtxerr/tierstat/internal/wire"
)

func newFramesCmd(opts *options) *cobra.Command {
	var analysisName string

	cmd := &cobra.Command{
		Use:   "frames <frames.pb | export-dir>",
		Short: "Dumps a renderer frame stream, or the frames of an export directory",
		Args:  dirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := loadFrames(args[0], opts.cfg.Export.MaxFrameSize)
			if err != nil {
				return err
			}

			columns := []string{"timestep", "analysis", "series", "value"}
			var rows []map[string]interface{}
			for _, fr := range frames {
				for _, a := range sortedKeys(fr.Values) {
					if analysisName != "" && a != analysisName {
						continue
					}
					format := report.FormatterFor(a)
					for _, name := range sortedKeys(fr.Values[a]) {
						rows = append(rows, map[string]interface{}{
							"timestep": fr.Timestep,
							"analysis": a,
							"series":   name,
							"value":    format(fr.Values[a][name]),
						})
					}
				}
			}
			report.WriteRows(cmd.OutOrStdout(), columns, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d frames\n", len(frames))
			return nil
		},
	}
	cmd.Flags().StringVar(&analysisName, "analysis", "", "only this analysis")
	return cmd
}

// loadFrames reads a frame stream, or cuts frames from the Parquet
// series of an export directory.
func loadFrames(path string, maxSize int) ([]*wire.Frame, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return wire.NewReader(bufio.NewReader(f), maxSize).ReadAll()
	}

	var all []*series.Series
	for _, name := range []string{constants.CohortLevelsFile, constants.TierLatencyFile, constants.TierCapacityFile} {
		ss, err := export.ReadSeriesFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		all = append(all, ss...)
	}

	steps := 0
	for _, s := range all {
		steps = max(steps, s.Len())
	}
	return wire.BuildFrames(all, steps), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
