// Command p2p-log is a tool for viewing and analyzing P2P protocol log files.
//
// Log files are written by p2pd when it runs with -plog.
//
// Usage:
//
//	p2p-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON lines or CSV
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View only parsed adapter events
//	p2p-log view -layer driver p2pd.plog
//
//	# View everything about one peer
//	p2p-log view -peer 02:00:00:00:00:01 p2pd.plog
//
//	# Export to JSONL
//	p2p-log export -format jsonl p2pd.plog
//
//	# Keep one run's requests
//	p2p-log filter -run 3f2a9c1e-... -category request -o requests.plog p2pd.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/p2pcoord/p2pcoord-go/cmd/p2p-log/commands"
)

const usage = `p2p-log - P2P Protocol Log Analyzer

Usage:
  p2p-log <command> [flags] <file.plog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON lines or CSV
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "p2p-log <command> -help" for more information about a command.
`

var subcommands = map[string]func([]string) error{
	"view":   runView,
	"export": runExport,
	"filter": runFilter,
	"stats":  runStats,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	}

	run, ok := subcommands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "p2p-log %s - %s\n\nUsage:\n  p2p-log %s [flags] <file.plog>\n\nFlags:\n", name, synopsis, name)
		fs.PrintDefaults()
	}
	return fs
}

// logPath parses args and returns the single positional argument.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) error {
	fs := newFlagSet("view", "View log file in human-readable format")
	layer := fs.String("layer", "", "Filter by layer (transport, driver, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, request, state, error)")
	peer := fs.String("peer", "", "Filter by peer device address")
	path := logPath(fs, args)

	filter := commands.ViewFilter{Peer: *peer}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Export log file to JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := logPath(fs, args)

	return commands.RunExport(path, *format, *output, os.Stdout)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Filter log file and write to new file")
	output := fs.String("o", "", "Output file (required)")
	runID := fs.String("run", "", "Filter by run or connection ID")
	sessionID := fs.String("session", "", "Filter by session ID")
	peer := fs.String("peer", "", "Filter by peer device address")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, driver, service)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, request, state, error)")
	path := logPath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	return commands.RunFilter(path, commands.FilterOptions{
		Output:    *output,
		RunID:     *runID,
		SessionID: *sessionID,
		Peer:      *peer,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	}, os.Stdout)
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Show statistics about the log file")
	path := logPath(fs, args)
	return commands.RunStats(path, os.Stdout)
}
