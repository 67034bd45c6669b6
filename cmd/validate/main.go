// Command validate performs integrity checks on a built emissions dataset:
// header shape, field parseability, anchor membership, key ordering, and
// optional cross-checking against the source archive it was built from.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset data/dataset.csv \
//	  -archive data/country_archive.zip
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/ingest"
	"github.com/luis-ma-m/eco-spain-mapper/internal/observability"
)

var datasetHeader = []string{"region", "year", "sector", "emissions"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataset := flag.String("dataset", "", "path to the built dataset CSV")
	archive := flag.String("archive", "", "optional source archive to cross-check against")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "missing required flag: -dataset")
		os.Exit(2)
	}

	rows, phases := validateDataset(*dataset)
	if *archive != "" {
		phases = append(phases, crossCheckArchive(*archive, rows))
	}

	var failed bool
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

type datasetRow struct {
	region    string
	year      int
	sector    string
	emissions float64
	key       string
}

func validateDataset(path string) ([]datasetRow, []phase) {
	shape := phase{name: "dataset shape"}
	fields := phase{name: "field values"}
	anchors := phase{name: "anchor membership"}
	ordering := phase{name: "key ordering"}

	f, err := os.Open(path)
	if err != nil {
		shape.errorf("open dataset: %v", err)
		return nil, []phase{shape}
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		shape.errorf("read header: %v", err)
		return nil, []phase{shape}
	}
	if !equalStrings(header, datasetHeader) {
		shape.errorf("header is %v, want %v", header, datasetHeader)
	}

	table := domain.SpainAnchors()
	var rows []datasetRow
	var prevKey string

	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			shape.errorf("line %d: %v", line, err)
			continue
		}
		if len(rec) != len(datasetHeader) {
			shape.errorf("line %d: %d columns, want %d", line, len(rec), len(datasetHeader))
			continue
		}

		row := datasetRow{region: rec[0], sector: rec[2]}
		row.year, err = strconv.Atoi(rec[1])
		if err != nil {
			fields.errorf("line %d: year %q is not an integer", line, rec[1])
		}
		row.emissions, err = strconv.ParseFloat(rec[3], 64)
		if err != nil || math.IsNaN(row.emissions) || math.IsInf(row.emissions, 0) {
			fields.errorf("line %d: emissions %q is not finite", line, rec[3])
		}
		if row.year < domain.MinYear || row.year > domain.MaxYear {
			fields.errorf("line %d: year %d out of range", line, row.year)
		}
		if row.sector == "" {
			fields.errorf("line %d: empty sector", line)
		}
		if _, ok := table.ByName(row.region); !ok {
			anchors.errorf("line %d: region %q is not a known anchor", line, row.region)
		}

		row.key = strings.Join([]string{row.region, rec[1], row.sector}, "|")
		if prevKey != "" && row.key <= prevKey {
			ordering.errorf("line %d: key %q not strictly after %q", line, row.key, prevKey)
		}
		prevKey = row.key
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		shape.errorf("dataset has no data rows")
	}
	return rows, []phase{shape, fields, anchors, ordering}
}

// crossCheckArchive rebuilds the aggregation from the source archive and
// compares group count and total emissions against the dataset rows.
func crossCheckArchive(path string, rows []datasetRow) phase {
	p := phase{name: "archive cross-check"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := ingest.NewBuilder(domain.SpainAnchors(), ingest.DefaultLimits(), logger, observability.NewMetricsForTesting())
	result, err := builder.Build(context.Background(), path)
	if err != nil {
		p.errorf("rebuild from archive: %v", err)
		return p
	}

	if len(result.Aggregates) != len(rows) {
		p.errorf("archive yields %d groups, dataset has %d rows", len(result.Aggregates), len(rows))
	}

	var rebuilt, written float64
	for _, a := range result.Aggregates {
		rebuilt += a.Metrics[domain.MetricEmissions]
	}
	for _, r := range rows {
		written += r.emissions
	}
	if math.Abs(rebuilt-written) > 1e-6 {
		p.errorf("total emissions differ: archive %g, dataset %g", rebuilt, written)
	}
	return p
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
