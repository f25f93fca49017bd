package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/homewire/homewire-go/pkg/log"
)

// RunView prints every selected event in human-readable form.
func RunView(path string, sel Selection, w io.Writer) error {
	return eachSelected(path, sel, func(ev log.Event) error {
		formatEvent(w, ev)
		return nil
	})
}

// timeLayout is the microsecond UTC layout used in view and csv output.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes one event followed by a blank line.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timeLayout)

	target := event.Endpoint
	if event.Address != "" {
		if target != "" {
			target += "@"
		}
		target += event.Address
	}
	if target == "" {
		target = "-"
	}

	fmt.Fprintf(w, "%s [tr:%s] %-3s %s %s %s\n", ts, shortID(event.TransportID),
		event.Direction, event.Layer, event.Category, target)

	switch {
	case event.Frame != nil:
		formatFrame(w, event.Frame)
	case event.Call != nil:
		formatCall(w, event.Call)
	case event.StateChange != nil:
		formatStateChange(w, event.StateChange)
	case event.Drop != nil:
		fmt.Fprintf(w, "  Reason: %s (%d bytes)\n", event.Drop.Reason, event.Drop.Size)
		if event.Drop.Detail != "" {
			fmt.Fprintf(w, "  Detail: %s\n", event.Drop.Detail)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}
	fmt.Fprintln(w)
}

func formatFrame(w io.Writer, f *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes", f.Size)
	if f.Repeat > 0 {
		fmt.Fprintf(w, " (repeat %d)", f.Repeat)
	}
	fmt.Fprintln(w)
	if len(f.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(f.Data))
		if f.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatCall(w io.Writer, c *log.CallEvent) {
	fmt.Fprintf(w, "  %s #%d %s", c.Service, c.SeqID, c.Outcome)
	if c.RoundTrip != nil {
		fmt.Fprintf(w, " in %s", formatDuration(*c.RoundTrip))
	}
	fmt.Fprintln(w)
	if c.Cause != "" {
		fmt.Fprintf(w, "  Cause: %s\n", c.Cause)
	}
}

func formatStateChange(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
