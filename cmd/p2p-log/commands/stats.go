package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/p2pcoord/p2pcoord-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	DriverEvents      map[string]int
	Requests          map[string]*RequestStats
	Runs              map[string]*RunSummary
	Peers             map[string]int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// RunSummary holds statistics for one coordinator run or control connection.
type RunSummary struct {
	FirstSeen   time.Time
	LastSeen    time.Time
	Events      int
	Transitions int
	LastState   string
}

// RequestStats counts the replies to one application operation.
type RequestStats struct {
	Replies   int
	Failed    int
	TotalTime time.Duration
}

// Collect reads the file at path into Stats.
func Collect(path string) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		DriverEvents:      make(map[string]int),
		Requests:          make(map[string]*RequestStats),
		Runs:              make(map[string]*RunSummary),
		Peers:             make(map[string]int),
	}
	err := readEvents(path, func(event log.Event) error {
		stats.add(event)
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
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	run, ok := s.Runs[event.ConnectionID]
	if !ok {
		run = &RunSummary{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Runs[event.ConnectionID] = run
	}
	run.Events++
	if event.Timestamp.After(run.LastSeen) {
		run.LastSeen = event.Timestamp
	}

	if event.PeerAddress != "" {
		s.Peers[event.PeerAddress]++
	}

	switch {
	case event.Driver != nil:
		s.DriverEvents[event.Driver.Type]++
	case event.StateChange != nil && event.StateChange.Entity == log.StateEntityMachine:
		run.Transitions++
		run.LastState = event.StateChange.NewState
	case event.Request != nil && event.Direction == log.DirectionOut:
		rs, ok := s.Requests[event.Request.Op]
		if !ok {
			rs = &RequestStats{}
			s.Requests[event.Request.Op] = rs
		}
		rs.Replies++
		if event.Request.Status == "FAILED" {
			rs.Failed++
		}
		if event.Request.ProcessingTime != nil {
			rs.TotalTime += *event.Request.ProcessingTime
		}
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== P2P Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerDriver, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryRequest, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}

	if len(stats.DriverEvents) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Adapter Events:")
		for _, typ := range sortedKeys(stats.DriverEvents) {
			fmt.Fprintf(w, "  %-28s %d\n", typ+":", stats.DriverEvents[typ])
		}
	}

	if len(stats.Requests) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Requests:")
		for _, op := range sortedKeys(stats.Requests) {
			rs := stats.Requests[op]
			avg := rs.TotalTime / time.Duration(rs.Replies)
			fmt.Fprintf(w, "  %-24s %d replies, %d failed, avg %s\n", op+":", rs.Replies, rs.Failed, formatDuration(avg))
		}
	}

	if len(stats.Peers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Peers: %d\n", len(stats.Peers))
		for _, addr := range sortedKeys(stats.Peers) {
			fmt.Fprintf(w, "  %s  %d events\n", addr, stats.Peers[addr])
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		type runInfo struct {
			id    string
			stats *RunSummary
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		for _, r := range runs {
			duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(r.id), r.stats.Events, duration)
			if r.stats.Transitions > 0 {
				fmt.Fprintf(w, "           Transitions: %d (last: %s)\n", r.stats.Transitions, r.stats.LastState)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
