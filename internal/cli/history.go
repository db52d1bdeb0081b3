package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dshills/criticat/internal/output"
	"github.com/dshills/criticat/internal/store"
)

var (
	flagHistoryLimit int
	flagHistoryJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded review runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := historyRepo()
		if err != nil {
			return fail(cmd, err)
		}
		defer closeDB()

		runs, err := repo.List(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return fail(cmd, fmt.Errorf("listing runs: %w", err))
		}
		if flagHistoryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		writeRunsTable(cmd.OutOrStdout(), runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := historyRepo()
		if err != nil {
			return fail(cmd, err)
		}
		defer closeDB()

		run, err := repo.Get(cmd.Context(), args[0])
		if err != nil {
			return fail(cmd, err)
		}
		if run == nil {
			return fmt.Errorf("no run with id %s", args[0])
		}
		out := cmd.OutOrStdout()
		writeRunsTable(out, []store.Run{*run})
		if run.Error != "" {
			fmt.Fprintf(out, "\nError: %s\n", run.Error)
		}
		if run.ReportPath == "" {
			return nil
		}
		report, err := output.LoadReport(run.ReportPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Report unavailable: %v\n", err)
			return nil
		}
		fmt.Fprintln(out)
		return (&output.TextWriter{}).Write(out, report)
	},
}

func historyRepo() (*store.RunRepo, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Store.Enabled {
		return nil, nil, errors.New("run history is disabled (store.enabled=false)")
	}
	db := openHistory(cfg, newLogger(cfg))
	if db == nil {
		return nil, nil, errors.New("run history database could not be opened")
	}
	return store.NewRunRepo(db), func() { db.Close() }, nil
}

func writeRunsTable(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Run", "Started", "PDF", "Providers", "Issues", "Jokes", "Notified", "Status", "Duration"})
	for _, r := range runs {
		status := string(r.Status)
		if r.Status == store.RunCompleted && r.HasIssues {
			status = "completed (issues)"
		}
		tw.AppendRow(table.Row{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.PDFPath,
			strings.Join(r.Providers, ","),
			r.IssueCount,
			r.JokeCount,
			yesNo(r.Notified),
			status,
			r.Duration().Round(time.Millisecond),
		})
	}
	tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "Print runs as JSON")
}
