package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xtxerr/tierstat/internal/query"
	"github.com/xtxerr/tierstat/internal/report"
)

var shellKeywords = []prompt.Suggest{
	{Text: "SELECT", Description: "query rows"},
	{Text: "FROM", Description: "source view"},
	{Text: "WHERE", Description: "filter rows"},
	{Text: "GROUP BY", Description: "aggregate rows"},
	{Text: "ORDER BY", Description: "sort rows"},
	{Text: "LIMIT", Description: "cap rows"},
	{Text: query.SeriesView, Description: "analysis, series, tier, timestep, value"},
	{Text: query.LatencyStatsView, Description: "run-wide latency percentiles per tier"},
	{Text: "analysis", Description: "column of series"},
	{Text: "timestep", Description: "column of series"},
	{Text: "value", Description: "column of series, NULL for no data"},
	{Text: "exit", Description: "leave the shell"},
}

func newShellCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <export-dir>",
		Short: "Interactive SQL shell over exported series",
		Long: `Opens a SQL prompt over the views "series" and "latency_stats". When stdin
is not a terminal, statements are read one per line.`,
		Args: dirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := query.New(args[0], opts.cfg.Query)
			if err != nil {
				return err
			}
			defer svc.Close()

			sh := &shell{svc: svc, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return sh.runScript(cmd.InOrStdin())
			}
			sh.runInteractive(args[0])
			return nil
		},
	}
}

type shell struct {
	svc    *query.Service
	out    io.Writer
	errOut io.Writer
	failed int
}

// execute runs one statement. Errors are reported and counted so the
// session continues.
func (s *shell) execute(line string) {
	stmt := strings.TrimSuffix(strings.TrimSpace(line), ";")
	if stmt == "" || isExit(stmt) {
		return
	}

	columns, rows, err := s.svc.ExecuteSQL(context.Background(), stmt)
	if err != nil {
		s.failed++
		fmt.Fprintf(s.errOut, "error: %v\n", err)
		return
	}
	report.WriteRows(s.out, columns, rows)
}

func (s *shell) runScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if isExit(strings.TrimSpace(line)) {
			break
		}
		s.execute(line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if s.failed > 0 {
		return fmt.Errorf("%d statements failed", s.failed)
	}
	return nil
}

func (s *shell) runInteractive(dir string) {
	fmt.Fprintf(s.out, "tierstat %s shell over %s. Type exit to leave.\n", Version, dir)
	p := prompt.New(
		s.execute,
		complete,
		prompt.OptionPrefix("tierstat> "),
		prompt.OptionTitle("tierstat shell"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && isExit(strings.TrimSpace(in))
		}),
	)
	p.Run()
}

func complete(d prompt.Document) []prompt.Suggest {
	word := d.GetWordBeforeCursor()
	if word == "" {
		return nil
	}
	return prompt.FilterHasPrefix(shellKeywords, word, true)
}

func isExit(s string) bool {
	switch strings.ToLower(s) {
	case "exit", "quit", `\q`:
		return true
	}
	return false
}
