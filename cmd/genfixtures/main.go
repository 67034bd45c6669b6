// Command genfixtures generates deterministic emissions CSV fixtures for the
// test suites. It runs the actual normalization and aggregation code so the
// golden outputs match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genfixtures \
//	  -out-dir testdata \
//	  -rows 200
package main

import (
	"archive/zip"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/ingest"
)

var sectors = []string{"power", "transport", "agriculture", "waste", "manufacturing"}

var years = []int{2021, 2022, 2023}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for generated fixtures")
	rows := flag.Int("rows", 200, "number of source rows to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	// Fix the clock so timestamped outputs are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.January, 15, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	records := generateRows(rand.New(rand.NewSource(*seed)), *rows)

	csvPath := filepath.Join(*outDir, "emissions_sources_power.csv")
	if err := writeSourcesCSV(csvPath, records); err != nil {
		return fmt.Errorf("writing sources fixture: %w", err)
	}
	log.Printf("wrote sources fixture: %s (%d rows)", csvPath, len(records))

	zipPath := filepath.Join(*outDir, "country_archive.zip")
	if err := writeArchive(zipPath, csvPath); err != nil {
		return fmt.Errorf("writing archive fixture: %w", err)
	}
	log.Printf("wrote archive fixture: %s", zipPath)

	goldenPath := filepath.Join(*outDir, "dataset_golden.csv")
	aggs, err := buildGolden(records)
	if err != nil {
		return fmt.Errorf("building golden aggregates: %w", err)
	}
	if err := writeGolden(goldenPath, aggs); err != nil {
		return fmt.Errorf("writing golden fixture: %w", err)
	}
	log.Printf("wrote golden fixture: %s (%d groups)", goldenPath, len(aggs))

	printStats(records, aggs)
	return nil
}

type sourceRow struct {
	region    string
	year      int
	sector    string
	emissions float64
	lat, lng  float64
	hasCoords bool
}

func generateRows(rng *rand.Rand, n int) []sourceRow {
	anchors := domain.SpainAnchors().Anchors()
	rows := make([]sourceRow, 0, n)
	for i := 0; i < n; i++ {
		a := anchors[rng.Intn(len(anchors))]
		row := sourceRow{
			region:    a.Name,
			year:      years[rng.Intn(len(years))],
			sector:    sectors[rng.Intn(len(sectors))],
			emissions: float64(rng.Intn(100_000)) / 10,
		}
		// Roughly half the rows carry point coordinates near their anchor.
		if rng.Intn(2) == 0 {
			row.hasCoords = true
			row.lat = a.Centroid.Lat + rng.Float64() - 0.5
			row.lng = a.Centroid.Lng + rng.Float64() - 0.5
		}
		rows = append(rows, row)
	}
	return rows
}

func writeSourcesCSV(path string, rows []sourceRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"region", "year", "sector", "emissions_quantity", "lat", "lon"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.region,
			strconv.Itoa(r.year),
			r.sector,
			strconv.FormatFloat(r.emissions, 'f', 1, 64),
			"",
			"",
		}
		if r.hasCoords {
			rec[4] = strconv.FormatFloat(r.lat, 'f', 4, 64)
			rec[5] = strconv.FormatFloat(r.lng, 'f', 4, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeArchive(path, csvPath string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entry, err := zw.Create("ES/" + filepath.Base(csvPath))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// buildGolden runs the generated rows through the actual normalization and
// batch aggregation path.
func buildGolden(rows []sourceRow) ([]*aggregate.Aggregate, error) {
	headers := []string{"region", "year", "sector", "emissions_quantity", "lat", "lon"}
	engine := aggregate.New(aggregate.BatchKey(domain.SpainAnchors()), nil)

	for i, r := range rows {
		values := []string{
			r.region,
			strconv.Itoa(r.year),
			r.sector,
			strconv.FormatFloat(r.emissions, 'f', 1, 64),
			"",
			"",
		}
		if r.hasCoords {
			values[4] = strconv.FormatFloat(r.lat, 'f', 4, 64)
			values[5] = strconv.FormatFloat(r.lng, 'f', 4, 64)
		}
		rec, err := domain.NormalizeRow(headers, values, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := domain.Validate(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		engine.Add(rec)
	}
	return engine.SortedAggregates(), nil
}

func writeGolden(path string, aggs []*aggregate.Aggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ingest.WriteDataset(f, aggs)
}

func printStats(rows []sourceRow, aggs []*aggregate.Aggregate) {
	regionCounts := map[string]int{}
	sectorCounts := map[string]int{}
	var withCoords int
	var total float64
	for _, r := range rows {
		regionCounts[r.region]++
		sectorCounts[r.sector]++
		total += r.emissions
		if r.hasCoords {
			withCoords++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total rows: %d\n", len(rows))
	fmt.Printf("With coordinates: %d\n", withCoords)
	fmt.Printf("Distinct regions: %d\n", len(regionCounts))
	fmt.Printf("Total emissions: %g\n", total)
	fmt.Printf("Aggregate groups: %d\n", len(aggs))
	fmt.Print("By sector:")
	for _, s := range sectors {
		fmt.Printf(" %s=%d", s, sectorCounts[s])
	}
	fmt.Println()

	if len(aggs) > 0 {
		a := aggs[0]
		fmt.Printf("\nFirst group:\n")
		fmt.Printf("  Key: %s\n", a.Key)
		fmt.Printf("  Region: %s, Year: %d, Sector: %s\n", a.Region, a.Year, a.Sector)
		fmt.Printf("  Emissions: %g over %d records\n", a.Metrics[domain.MetricEmissions], a.Count)
	}
}
