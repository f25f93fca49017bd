package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/homewire/homewire-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Drops             map[log.DropReason]int
	Calls             map[log.CallOutcome]int
	Transports        map[string]*TransportStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// TransportStats holds statistics for one transport.
type TransportStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	FramesIn  int
	FramesOut int
	Endpoints map[string]bool
}

// Collect reads every event of path into a Stats.
func Collect(path string) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Drops:             make(map[log.DropReason]int),
		Calls:             make(map[log.CallOutcome]int),
		Transports:        make(map[string]*TransportStats),
	}

	err := eachEvent(path, log.Filter{}, func(ev log.Event) error {
		stats.add(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	tr, ok := s.Transports[event.TransportID]
	if !ok {
		tr = &TransportStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
			Endpoints: make(map[string]bool),
		}
		s.Transports[event.TransportID] = tr
	}
	tr.Events++
	if event.Timestamp.After(tr.LastSeen) {
		tr.LastSeen = event.Timestamp
	}
	if event.Endpoint != "" {
		tr.Endpoints[event.Endpoint] = true
	}

	switch {
	case event.Frame != nil:
		s.EventsByDirection[event.Direction]++
		if event.Direction == log.DirectionIn {
			tr.FramesIn++
		} else {
			tr.FramesOut++
		}
	case event.Drop != nil:
		s.Drops[event.Drop.Reason]++
	case event.Call != nil:
		s.Calls[event.Call.Outcome]++
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats prints statistics about path.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, s *Stats) {
	fmt.Fprintln(w, "=== homewire Capture Statistics ===")
	fmt.Fprintln(w)

	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			s.TimeRange.Start.Format(time.RFC3339),
			s.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", s.TimeRange.End.Sub(s.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerDevice, log.LayerService} {
		if n := s.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", l.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryFrame, log.CategoryCall, log.CategoryState, log.CategoryDrop, log.CategoryError} {
		if n := s.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Frames by Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := s.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", d.String()+":", n)
		}
	}

	if len(s.Calls) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Calls:")
		for _, o := range []log.CallOutcome{log.CallSent, log.CallResolved, log.CallTimedOut, log.CallRejected} {
			if n := s.Calls[o]; n > 0 {
				fmt.Fprintf(w, "  %-20s %d\n", o.String()+":", n)
			}
		}
	}

	if len(s.Drops) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Drops:")
		reasons := make([]log.DropReason, 0, len(s.Drops))
		for r := range s.Drops {
			reasons = append(reasons, r)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-20s %d\n", r.String()+":", s.Drops[r])
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Transports: %d\n", len(s.Transports))
	ids := make([]string, 0, len(s.Transports))
	for id := range s.Transports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.Transports[ids[i]].FirstSeen.Before(s.Transports[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		tr := s.Transports[id]
		fmt.Fprintf(w, "  [%s] %d events, %d in / %d out, duration %s\n", shortID(id),
			tr.Events, tr.FramesIn, tr.FramesOut, tr.LastSeen.Sub(tr.FirstSeen).Round(time.Millisecond))
		if len(tr.Endpoints) > 0 {
			names := make([]string, 0, len(tr.Endpoints))
			for n := range tr.Endpoints {
				names = append(names, n)
			}
			sort.Strings(names)
			fmt.Fprintf(w, "           Endpoints: %v\n", names)
		}
	}

	if s.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	}
}
