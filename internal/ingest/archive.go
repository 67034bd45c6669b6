package ingest

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/observability"
)

// sourceEntryRe matches the naming convention for point-source emissions
// files inside a country archive, e.g. "ES/emissions_sources_power.csv".
var sourceEntryRe = regexp.MustCompile(`(?i)emissions?[_-]sources?[^/]*\.csv$`)

// Fetcher downloads remote datasets over HTTP.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Download fetches a country archive to destDir and returns the local path.
// Failures are *domain.FetchError: fatal for the batch driver, retryable for
// callers that can re-request.
func (f *Fetcher) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	body, err := f.open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	name := path.Base(mustPath(rawURL))
	if name == "." || name == "/" {
		name = "archive.zip"
	}
	dest := filepath.Join(destDir, name)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	n, err := io.Copy(out, body)
	if err != nil {
		return "", &domain.FetchError{URL: rawURL, Err: err}
	}
	f.logger.Info("archive downloaded", "url", rawURL, "path", dest, "bytes", n)
	return dest, nil
}

// FetchCSV opens a remote CSV for the runtime auto-load path. The caller owns
// the returned body; cancelling ctx aborts the transfer, which is how a
// superseded load loses to a newer one.
func (f *Fetcher) FetchCSV(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f.open(ctx, rawURL)
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &domain.FetchError{URL: rawURL, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

func mustPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

// Builder runs the offline batch preparation over a downloaded archive.
type Builder struct {
	anchors domain.AnchorTable
	limits  Limits
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBuilder creates a Builder around the fixed anchor table.
func NewBuilder(anchors domain.AnchorTable, limits Limits, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{anchors: anchors, limits: limits, logger: logger, metrics: metrics}
}

// BuildResult is the outcome of one archive pass.
type BuildResult struct {
	Aggregates []*aggregate.Aggregate
	Stats      ParseStats
	Entries    int // matching entries processed
	Failed     int // matching entries aborted by their own errors
}

// Build streams every emissions-sources entry of the archive through one
// shared aggregation engine, so duplicates of a composite key across files
// sum correctly. A malformed entry aborts only that entry's parse; the run
// continues. Returns domain.ErrEmptyResult when no entry produced a valid
// record.
func (b *Builder) Build(ctx context.Context, archivePath string) (*BuildResult, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	engine := aggregate.New(aggregate.BatchKey(b.anchors), nil)
	result := &BuildResult{}

	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !sourceEntryRe.MatchString(entry.Name) {
			continue
		}
		result.Entries++

		stats, err := b.processEntry(ctx, entry, engine)
		result.Stats.add(stats)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			result.Failed++
			b.metrics.ArchiveEntries.WithLabelValues("failed").Inc()
			b.logger.Warn("archive entry aborted", "entry", entry.Name, "error", err)
			continue
		}
		b.metrics.ArchiveEntries.WithLabelValues("ok").Inc()
		b.logger.Info("archive entry processed",
			"entry", entry.Name,
			"rows", stats.Rows,
			"valid", stats.Valid,
			"dropped", stats.Dropped(),
		)
	}

	b.metrics.RowsParsed.Add(float64(result.Stats.Rows))
	b.metrics.RowsDropped.WithLabelValues("schema").Add(float64(result.Stats.SchemaErrors))
	b.metrics.RowsDropped.WithLabelValues("validation").Add(float64(result.Stats.ValidationErrors))

	result.Aggregates = engine.SortedAggregates()
	if len(result.Aggregates) == 0 {
		return result, domain.ErrEmptyResult
	}
	return result, nil
}

func (b *Builder) processEntry(ctx context.Context, entry *zip.File, engine *aggregate.Engine) (ParseStats, error) {
	rc, err := entry.Open()
	if err != nil {
		return ParseStats{}, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	return ParseCSV(ctx, rc, b.limits, b.logger, engine.Add)
}

// WriteDataset serializes aggregates as the flat output CSV with the fixed
// header. Pass SortedAggregates for reproducible ordering; the on-disk order
// is whatever the caller supplies.
func WriteDataset(w io.Writer, aggs []*aggregate.Aggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"region", "year", "sector", "emissions"}); err != nil {
		return err
	}
	for _, a := range aggs {
		row := []string{
			a.Region,
			strconv.Itoa(a.Year),
			a.Sector,
			strconv.FormatFloat(a.Metrics[domain.MetricEmissions], 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
