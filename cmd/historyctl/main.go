package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"image-collage/internal/history"
	"image-collage/internal/startup"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default retention for prune
	defaultKeepDays = 30
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		fmt.Fprintln(os.Stderr, "Error: DATABASE_DIR is not set")
		os.Exit(1)
	}
	dbPath := filepath.Join(databaseDir, startup.HistoryFile)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: no history database at %s: %v\n", dbPath, err)
		os.Exit(1)
	}

	store, err := history.Open(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open history database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ok := true
	switch command {
	case "status":
		ok = showStatus(ctx, store, os.Stdout)
	case "prune":
		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		ok = prune(ctx, store, os.Args[2:], os.Stdin, os.Stdout, interactive, time.Now())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(os.Stdout)
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
}

// sanitizeCommand replaces anything outside [a-zA-Z0-9_-] with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Image Collage History Maintenance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: historyctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status  - Show run counts by status")
	fmt.Fprintf(w, "  prune   - Delete runs older than --keep-days (default: %d)\n", defaultKeepDays)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  DATABASE_DIR - Directory containing "+startup.HistoryFile)
}

func showStatus(ctx context.Context, store *history.Store, w io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Fprintf(w, "Database: %s\n", store.Path())
	if len(counts) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return true
	}

	statuses := make([]string, 0, len(counts))
	total := 0
	for status, n := range counts {
		statuses = append(statuses, status)
		total += n
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(w, "  %-8s %d\n", status, counts[status])
	}
	fmt.Fprintf(w, "  %-8s %d\n", "total", total)
	return true
}

// prune deletes old runs. Without --yes it asks for confirmation, and
// refuses outright when stdin is not a terminal.
func prune(ctx context.Context, store *history.Store, args []string, in io.Reader, w io.Writer, interactive bool, now time.Time) bool {
	fs := pflag.NewFlagSet("prune", pflag.ContinueOnError)
	fs.SetOutput(w)
	keepDays := fs.Int("keep-days", defaultKeepDays, "keep runs started within this many days")
	yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return false
	}
	if *keepDays < 0 {
		fmt.Fprintln(w, "Error: --keep-days must not be negative")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := now.AddDate(0, 0, -*keepDays)
	n, err := store.CountBefore(ctx, cutoff)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}
	if n == 0 {
		fmt.Fprintf(w, "No runs older than %d days.\n", *keepDays)
		return true
	}

	if !*yes {
		if !interactive {
			fmt.Fprintln(w, "Error: refusing to prune without a terminal; pass --yes")
			return false
		}
		fmt.Fprintf(w, "Delete %d runs started before %s? [y/N] ", n, cutoff.Format("2006-01-02 15:04"))
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(w, "Aborted.")
			return true
		}
	}

	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "Deleted %d runs.\n", removed)
	return true
}
