// Command homewire-log inspects protocol capture files written by homewire
// with -capture.
//
// Usage:
//
//	homewire-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     Print events in human-readable form
//	export   Export events as JSON lines or CSV
//	filter   Copy selected events into a new capture file
//	stats    Summarize a capture file
//
// Examples:
//
//	# View service-layer events only
//	homewire-log view -layer service hub.cbor
//
//	# Everything one endpoint dropped
//	homewire-log view -endpoint door -category drop hub.cbor
//
//	# Export to CSV
//	homewire-log export -format csv -o hub.csv hub.cbor
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/homewire/homewire-go/cmd/homewire-log/commands"
)

const usage = `homewire-log - homewire capture file viewer

Usage:
  homewire-log <command> [flags] <file.cbor>

Commands:
  view     Print events in human-readable form
  export   Export events as JSON lines or CSV
  filter   Copy selected events into a new capture file
  stats    Summarize a capture file

Use "homewire-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set with the selection flags registered.
func newFlagSet(name, summary string, sel *commands.Selection) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "homewire-log %s - %s\n\nUsage:\n  homewire-log %s [flags] <file.cbor>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	if sel != nil {
		fs.StringVar(&sel.Transport, "transport", "", "Filter by transport ID")
		fs.StringVar(&sel.Endpoint, "endpoint", "", "Filter by endpoint name")
		fs.StringVar(&sel.Layer, "layer", "", "Filter by layer (transport, device, service)")
		fs.StringVar(&sel.Direction, "direction", "", "Filter by direction (in, out)")
		fs.StringVar(&sel.Category, "category", "", "Filter by category (frame, call, state, drop, error)")
		fs.StringVar(&sel.TimeStart, "time-start", "", "Keep events at or after this time (RFC3339)")
		fs.StringVar(&sel.TimeEnd, "time-end", "", "Keep events before this time (RFC3339)")
	}
	return fs
}

func inputPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) error {
	var sel commands.Selection
	fs := newFlagSet("view", "Print events in human-readable form", &sel)
	path := inputPath(fs, args)
	return commands.RunView(path, sel, os.Stdout)
}

func runExport(args []string) error {
	var sel commands.Selection
	fs := newFlagSet("export", "Export events as JSON lines or CSV", &sel)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := inputPath(fs, args)

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return commands.RunExport(path, *format, sel, w)
}

func runFilter(args []string) error {
	var sel commands.Selection
	fs := newFlagSet("filter", "Copy selected events into a new capture file", &sel)
	output := fs.String("o", "", "Output file (required)")
	path := inputPath(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *output, sel)
	if err != nil {
		return err
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
	return nil
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Summarize a capture file", nil)
	path := inputPath(fs, args)
	return commands.RunStats(path, os.Stdout)
}
