package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"image-collage/internal/startup"

	"github.com/spf13/pflag"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitStopped = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "build":
		return runBuild(rest, stdout, stderr)
	case "serve":
		return runServe(rest, stderr)
	case "history":
		return runHistory(rest, stdout, stderr)
	case "version", "--version":
		info := startup.GetBuildInfo()
		fmt.Fprintf(stdout, "image-collage %s (commit %s, built %s, %s %s/%s)\n",
			info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		return exitOK
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %q\n\n", command)
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: image-collage <command> [flags] [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build <image|dir>...  Build one collage from images and directories")
	fmt.Fprintln(w, "  serve                 Run the HTTP API")
	fmt.Fprintln(w, "  history               List recent runs (requires DATABASE_DIR)")
	fmt.Fprintln(w, "  version               Print build information")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'image-collage <command> --help' for command flags.")
}

// parseFlags parses args and maps --help to a clean exit.
func parseFlags(fs *pflag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}
