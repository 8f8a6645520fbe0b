package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/snamp-platform/snamp-go/pkg/log"
)

func traceCmd() *cli.Command {
	return &cli.Command{
		Name:      "trace",
		Usage:     "Inspect a trace file written by run --trace-file",
		ArgsUsage: "FILE",
		Commands: []*cli.Command{
			{
				Name:      "view",
				Usage:     "Print events as text",
				ArgsUsage: "FILE",
				Flags:     filterFlags(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					r, err := openTrace(cmd)
					if err != nil {
						return err
					}
					defer r.Close()
					return viewTrace(r, cmd.Root().Writer)
				},
			},
			{
				Name:      "stats",
				Usage:     "Summarize events per resource and kind",
				ArgsUsage: "FILE",
				Flags:     filterFlags(),
				Action: func(_ context.Context, cmd *cli.Command) error {
					r, err := openTrace(cmd)
					if err != nil {
						return err
					}
					defer r.Close()
					s, err := collectStats(r)
					if err != nil {
						return err
					}
					return s.write(cmd.Root().Writer)
				},
			},
			{
				Name:      "export",
				Usage:     "Export events as JSON lines or CSV",
				ArgsUsage: "FILE",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "format", Value: "jsonl", Usage: "jsonl or csv"},
				}, filterFlags()...),
				Action: func(_ context.Context, cmd *cli.Command) error {
					r, err := openTrace(cmd)
					if err != nil {
						return err
					}
					defer r.Close()
					switch cmd.String("format") {
					case "jsonl":
						return exportJSONL(r, cmd.Root().Writer)
					case "csv":
						return exportCSV(r, cmd.Root().Writer)
					default:
						return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", cmd.String("format"))
					}
				},
			},
		},
	}
}

// filterFlags returns fresh flag instances for each subcommand.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "resource", Usage: "only events of this resource"},
		&cli.StringFlag{Name: "feature", Usage: "only events of this attribute ID or category"},
		&cli.StringFlag{Name: "category", Usage: "only events of this kind (attribute, notification, state, error)"},
	}
}

func parseCategory(s string) (log.Category, error) {
	for _, c := range []log.Category{log.CategoryAttribute, log.CategoryNotification, log.CategoryState, log.CategoryError} {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown event category %q", s)
}

func openTrace(cmd *cli.Command) (*log.Reader, error) {
	path := cmd.Args().First()
	if path == "" {
		return nil, errors.New("missing trace file argument")
	}
	filter := log.Filter{
		Resource: cmd.String("resource"),
		Feature:  cmd.String("feature"),
	}
	if s := cmd.String("category"); s != "" {
		c, err := parseCategory(s)
		if err != nil {
			return nil, err
		}
		filter.Category = &c
	}
	r, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return r, nil
}

// each calls fn for every event of r.
func each(r *log.Reader, fn func(log.Event) error) error {
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// describe renders the payload of ev.
func describe(ev log.Event) string {
	switch {
	case ev.Attribute != nil:
		a := ev.Attribute
		s := fmt.Sprintf("%s %s (%v)", a.Op, a.Value, a.Duration)
		if a.TimedOut {
			s += " timed out"
		}
		return s
	case ev.Notification != nil:
		n := ev.Notification
		if n.Dropped {
			return fmt.Sprintf("seq=%d dropped", n.Sequence)
		}
		return fmt.Sprintf("seq=%d listeners=%d %q", n.Sequence, n.Listeners, n.Message)
	case ev.StateChange != nil:
		sc := ev.StateChange
		s := fmt.Sprintf("%s %s -> %s", sc.Entity, sc.OldState, sc.NewState)
		if sc.Reason != "" {
			s += " (" + sc.Reason + ")"
		}
		return s
	case ev.Error != nil:
		if ev.Error.Context != "" {
			return ev.Error.Context + ": " + ev.Error.Message
		}
		return ev.Error.Message
	}
	return ""
}

func viewTrace(r *log.Reader, w io.Writer) error {
	return each(r, func(ev log.Event) error {
		_, err := fmt.Fprintf(w, "%s %-12s %-12s %s/%s %s\n",
			ev.Timestamp.Format(time.RFC3339Nano), ev.Category, ev.Component, ev.Resource, ev.Feature, describe(ev))
		return err
	})
}

func exportJSONL(r *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	return each(r, func(ev log.Event) error {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

func exportCSV(r *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "category", "component", "resource", "feature", "subscription", "detail"}); err != nil {
		return err
	}
	err := each(r, func(ev log.Event) error {
		return cw.Write([]string{
			ev.Timestamp.Format(time.RFC3339Nano),
			ev.Category.String(),
			ev.Component.String(),
			ev.Resource,
			ev.Feature,
			ev.SubscriptionID,
			describe(ev),
		})
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// traceStats aggregates a trace file.
type traceStats struct {
	Total      int
	ByCategory map[log.Category]int
	ByResource map[string]int
	Timeouts   int
	Dropped    int
	Start, End time.Time
}

func collectStats(r *log.Reader) (*traceStats, error) {
	s := &traceStats{
		ByCategory: make(map[log.Category]int),
		ByResource: make(map[string]int),
	}
	err := each(r, func(ev log.Event) error {
		s.Total++
		s.ByCategory[ev.Category]++
		if ev.Resource != "" {
			s.ByResource[ev.Resource]++
		}
		if ev.Attribute != nil && ev.Attribute.TimedOut {
			s.Timeouts++
		}
		if ev.Notification != nil && ev.Notification.Dropped {
			s.Dropped++
		}
		if s.Start.IsZero() || ev.Timestamp.Before(s.Start) {
			s.Start = ev.Timestamp
		}
		if ev.Timestamp.After(s.End) {
			s.End = ev.Timestamp
		}
		return nil
	})
	return s, err
}

func (s *traceStats) write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Events:   %d\n", s.Total)
	if s.Total > 0 {
		fmt.Fprintf(&b, "Span:     %s .. %s (%v)\n",
			s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339), s.End.Sub(s.Start).Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "Timeouts: %d\n", s.Timeouts)
	fmt.Fprintf(&b, "Dropped:  %d\n", s.Dropped)

	b.WriteString("\nBy kind:\n")
	cats := make([]log.Category, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		cats = append(cats, c)
	}
	slices.Sort(cats)
	for _, c := range cats {
		fmt.Fprintf(&b, "  %-14s %d\n", c, s.ByCategory[c])
	}

	b.WriteString("\nBy resource:\n")
	names := make([]string, 0, len(s.ByResource))
	for n := range s.ByResource {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		fmt.Fprintf(&b, "  %-14s %s\n", n, strconv.Itoa(s.ByResource[n]))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
