// Command genmock writes a synthetic event data file for load and layout
// testing. Records are spread across British Columbia, and a share of them
// carry unusable coordinates so the file exercises the displayability filter.
// The same -seed always produces the same file.
//
// Usage:
//
//	go run ./cmd/genmock -n 500 -invalid 0.1 -out data/mock/events_500.json
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/road-event-map/internal/domain"
)

// BC bounding box.
const (
	minLat, maxLat = 48.3, 59.9
	minLon, maxLon = -139.0, -114.1
)

var (
	highways = []string{"1", "3", "5", "16", "17", "19", "95", "97", "99"}

	incidents = []string{
		"Road closed due to a vehicle incident. Detour available.",
		"Single lane alternating traffic. Expect delays.",
		"CLOSED in both directions for avalanche control.",
		"Full CLOSURE overnight for bridge maintenance.",
		"Paving operations. No stopping in the work zone.",
		"Debris on road. Use caution.",
		"Utility work. Minor delays up to 20 minutes.",
	}

	places = []string{"Hope", "Merritt", "Kamloops", "Revelstoke", "Golden", "Terrace", "Prince George", "Squamish", "Nanaimo", "Osoyoos"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 100, "number of records")
	invalid := flag.Float64("invalid", 0.1, "share of records with unusable coordinates (0..1)")
	seed := flag.Uint64("seed", 42, "random seed")
	out := flag.String("out", "", "output path for the JSON array")
	flag.Parse()

	if *out == "" || *n <= 0 || *invalid < 0 || *invalid > 1 {
		flag.Usage()
		return fmt.Errorf("need -out, -n > 0 and -invalid in [0,1]")
	}

	base := time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC)
	records := generate(rand.New(rand.NewPCG(*seed, 2024)), *n, *invalid, base)

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d records: %s", len(records), *out)

	printStats(records)
	return nil
}

func generate(r *rand.Rand, n int, invalidShare float64, base time.Time) []domain.RawEventRecord {
	records := make([]domain.RawEventRecord, n)
	for i := range records {
		hwy := highways[r.IntN(len(highways))]
		place := places[r.IntN(len(places))]
		last := base.Add(time.Duration(r.IntN(12*60)) * time.Minute)
		next := last.Add(time.Duration(1+r.IntN(6)) * time.Hour)

		rec := domain.RawEventRecord{
			Title:          "Highway " + hwy,
			Description:    incidents[r.IntN(len(incidents))],
			Location:       fmt.Sprintf("Highway %s near %s", hwy, place),
			NextUpdateTime: next.Format("Mon Jan 2 at 3:04 PM MST"),
			LastUpdateTime: last.Format("Mon Jan 2 at 3:04 PM MST"),
			Link:           fmt.Sprintf("https://www.drivebc.ca/mobile/pub/events/id/DBC-%05d.html", 50000+i),
			Latitude:       domain.NumberCoordinate(minLat + r.Float64()*(maxLat-minLat)),
			Longitude:      domain.NumberCoordinate(minLon + r.Float64()*(maxLon-minLon)),
		}
		if r.Float64() < invalidShare {
			// Geocoding failures upstream show up as NaN or a missing pair.
			if r.IntN(2) == 0 {
				rec.Latitude = domain.NumberCoordinate(math.NaN())
			} else {
				rec.Latitude = domain.Coordinate{}
				rec.Longitude = domain.Coordinate{}
			}
		}
		records[i] = rec
	}
	return records
}

func writeJSON(path string, records []domain.RawEventRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, rec := range records {
		data, err := domain.EncodeRecord(rec)
		if err != nil {
			return err
		}
		buf.WriteString("  ")
		buf.Write(data)
		if i < len(records)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

type termCount struct {
	term  string
	count int
}

func printStats(records []domain.RawEventRecord) {
	events, rejected := domain.ParseRecords(records)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("Displayable: %d, rejected: %d\n", len(events), len(rejected))

	terms := map[string]int{}
	for _, ev := range events {
		for _, t := range domain.EmphasizedTerms(domain.Highlight(ev.Description)) {
			terms[t]++
		}
	}
	tc := make([]termCount, 0, len(terms))
	for t, c := range terms {
		tc = append(tc, termCount{t, c})
	}
	sort.Slice(tc, func(i, j int) bool {
		if tc[i].count != tc[j].count {
			return tc[i].count > tc[j].count
		}
		return tc[i].term < tc[j].term
	})
	fmt.Printf("Highlighted terms (%d): ", len(tc))
	for _, t := range tc {
		fmt.Printf("%s=%d ", t.term, t.count)
	}
	fmt.Println()
}
