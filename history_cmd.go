package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"image-collage/internal/history"
	"image-collage/internal/startup"

	"github.com/spf13/pflag"
)

func runHistory(args []string, stdout, stderr io.Writer) int {
	cfg := startup.LoadConfig()

	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.DatabaseDir, "database-dir", cfg.DatabaseDir, "directory holding "+startup.HistoryFile)
	limit := fs.IntP("limit", "n", history.DefaultLimit, "number of runs to show")
	asJSON := fs.Bool("json", false, "print runs as JSON")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if cfg.DatabaseDir == "" {
		fmt.Fprintln(stderr, "Error: no history database; set DATABASE_DIR or --database-dir")
		return exitUsage
	}
	if *limit <= 0 {
		fmt.Fprintln(stderr, "Error: --limit must be positive")
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := history.Open(ctx, filepath.Join(cfg.DatabaseDir, startup.HistoryFile))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	runs, err := store.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if *asJSON {
		if runs == nil {
			runs = []history.Run{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	printRuns(stdout, runs)
	return exitOK
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tIMAGES\tDUPES\tGRID\tDURATION\tRESULT")
	for _, r := range runs {
		grid := "-"
		if r.Cols > 0 {
			grid = fmt.Sprintf("%dx%d", r.Cols, r.Rows)
		}
		result := r.OutputPath
		if r.Status != history.StatusSuccess {
			result = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.Survivors, r.Inputs,
			r.Duplicates,
			grid,
			r.Duration.Round(time.Millisecond),
			result,
		)
	}
	tw.Flush()
}
