// Command validate checks an event data file before it is served: the
// document must be a JSON array, displayable events must carry the text the
// sidebar shows, and coordinates must fall on the globe. Rejected records are
// reported with their reasons. With -kafka-brokers it also checks that the
// topic snapshot matches the file.
//
// Usage:
//
//	go run ./cmd/validate -file data/events.json
//	go run ./cmd/validate -file data/events.json -min-displayable 10 \
//	  -kafka-brokers localhost:9092 -kafka-topic road-events
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/road-event-map/internal/adapter/file"
	kafkaadapter "github.com/couchcryptid/road-event-map/internal/adapter/kafka"
	"github.com/couchcryptid/road-event-map/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	path           string
	minDisplayable int
	brokers        string
	topic          string
	timeout        time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.path, "file", "", "event data file (empty: the bundled snapshot)")
	flag.IntVar(&opts.minDisplayable, "min-displayable", 1, "fail when fewer records are displayable")
	flag.StringVar(&opts.brokers, "kafka-brokers", "", "comma-separated brokers; enables the topic parity check")
	flag.StringVar(&opts.topic, "kafka-topic", "road-events", "topic to compare against the file")
	flag.DurationVar(&opts.timeout, "kafka-timeout", 30*time.Second, "timeout for reading the topic")
	flag.Parse()

	os.Exit(run(context.Background(), opts, os.Stdout))
}

func run(ctx context.Context, opts options, out io.Writer) int {
	fmt.Fprintln(out, "=== Road Event Data Validation ===")
	fmt.Fprintln(out)

	records, err := file.NewSource(opts.path).Load(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	events, rejected := domain.ParseRecords(records)

	phases := []*phase{
		validateDisplayable(events, opts.minDisplayable),
		validateFields(events),
		validateRanges(events),
	}
	if opts.brokers != "" {
		source := kafkaadapter.NewSnapshotSource(sharedcfg.ParseBrokers(opts.brokers), opts.topic, opts.timeout,
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		phases = append(phases, validateTopicParity(ctx, source, records))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d total, %d displayable, %d rejected\n", len(records), len(events), len(rejected))
	reportRejections(out, rejected)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// reportRejections prints a count per reason followed by each rejected record.
func reportRejections(out io.Writer, rejected []*domain.ParseError) {
	if len(rejected) == 0 {
		return
	}
	counts := map[string]int{}
	for _, r := range rejected {
		counts[r.Reason]++
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	fmt.Fprintln(out, "\nRejected records (not shown on the map):")
	for _, reason := range reasons {
		fmt.Fprintf(out, "  %-14s %d\n", reason, counts[reason])
	}
	for _, r := range rejected {
		fmt.Fprintf(out, "  - %v\n", r)
	}
}

// ── Phase 1: Displayable count ──

func validateDisplayable(events []domain.Event, minimum int) *phase {
	p := &phase{name: "Phase 1: Displayable records"}
	if len(events) < minimum {
		p.errorf("%d displayable records, want at least %d", len(events), minimum)
	}
	return p
}

// ── Phase 2: Sidebar fields ──
// A displayable event with no title renders as an empty list entry.

func validateFields(events []domain.Event) *phase {
	p := &phase{name: "Phase 2: Sidebar fields"}
	for _, ev := range events {
		if ev.Title == "" {
			p.errorf("%s: missing title", ev.ID)
		}
		if ev.Description == "" {
			p.errorf("%s (%s): missing Description", ev.ID, ev.Title)
		}
		if ev.Location == "" {
			p.errorf("%s (%s): missing Location", ev.ID, ev.Title)
		}
	}
	return p
}

// ── Phase 3: Coordinate ranges ──

func validateRanges(events []domain.Event) *phase {
	p := &phase{name: "Phase 3: Coordinate ranges"}
	for _, ev := range events {
		if ev.Lat < -90 || ev.Lat > 90 {
			p.errorf("%s (%s): latitude %v out of range", ev.ID, ev.Title, ev.Lat)
		}
		if ev.Lon < -180 || ev.Lon > 180 {
			p.errorf("%s (%s): longitude %v out of range", ev.ID, ev.Title, ev.Lon)
		}
	}
	return p
}

// ── Phase 4: Topic parity ──

type snapshotLoader interface {
	Load(ctx context.Context) ([]domain.RawEventRecord, error)
}

func validateTopicParity(ctx context.Context, source snapshotLoader, want []domain.RawEventRecord) *phase {
	p := &phase{name: "Phase 4: Kafka topic parity"}

	got, err := source.Load(ctx)
	if err != nil {
		p.errorf("read topic: %v", err)
		return p
	}
	if len(got) != len(want) {
		p.errorf("topic has %d records, file has %d", len(got), len(want))
	}

	wantEvents := domain.FilterDisplayable(want)
	gotEvents := domain.FilterDisplayable(got)
	if len(gotEvents) != len(wantEvents) {
		p.errorf("topic has %d displayable records, file has %d", len(gotEvents), len(wantEvents))
		return p
	}
	for i := range wantEvents {
		w, g := wantEvents[i], gotEvents[i]
		if w.ID != g.ID || w.Title != g.Title || w.Lat != g.Lat || w.Lon != g.Lon {
			p.errorf("%s: file %q (%v, %v), topic %s %q (%v, %v)", w.ID, w.Title, w.Lat, w.Lon, g.ID, g.Title, g.Lat, g.Lon)
		}
	}
	return p
}
