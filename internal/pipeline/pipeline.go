// Package pipeline orchestrates the runtime aggregation pass: parse an
// uploaded or fetched CSV, filter by the caller's selection, reduce into
// spatial aggregates, and encode a render payload. Every pass rebuilds its
// aggregates and ranges from scratch; there is no shared mutable state
// between runs, and cancelling the pass context is how a superseded request
// loses to a newer one.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/encode"
	"github.com/luis-ma-m/eco-spain-mapper/internal/ingest"
	"github.com/luis-ma-m/eco-spain-mapper/internal/observability"
)

// Selection is the caller's filter and metric choice. Zero values mean "any".
type Selection struct {
	Region  string   `json:"region,omitempty"`
	Year    int      `json:"year,omitempty"`
	Sector  string   `json:"sector,omitempty"`
	Metrics []string `json:"metrics,omitempty"` // first metric drives color and size
}

// matches reports whether a record survives the filter.
func (s Selection) matches(rec domain.Record) bool {
	if s.Region != "" && !strings.EqualFold(s.Region, rec.Region) {
		return false
	}
	if s.Year != 0 && s.Year != rec.Year {
		return false
	}
	if s.Sector != "" && !strings.EqualFold(s.Sector, rec.Sector) {
		return false
	}
	return true
}

// Result is the render payload plus the per-row accounting callers must
// surface. A result with dropped rows is not full success.
type Result struct {
	Markers     []encode.Marker   `json:"markers"`
	Ranges      []encode.Range    `json:"ranges"`
	Stats       ingest.ParseStats `json:"stats"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Pipeline runs render passes against the fixed anchor table.
type Pipeline struct {
	anchors domain.AnchorTable
	limits  ingest.Limits
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline.
func New(anchors domain.AnchorTable, limits ingest.Limits, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		anchors: anchors,
		limits:  limits,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed at least one
// render pass.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not served a render pass yet")
	}
	return nil
}

// Render executes one complete pass over a CSV input. Selection filtering
// happens between validation and aggregation, so dropped-row counts reflect
// data quality, not filter choices. On domain.ErrEmptyResult the returned
// Result still carries the parse stats so callers can report what was
// dropped.
func (p *Pipeline) Render(ctx context.Context, r io.Reader, sel Selection) (*Result, error) {
	start := time.Now()
	engine := aggregate.New(aggregate.SpatialKey(p.anchors), sel.Metrics)

	stats, err := ingest.ParseCSV(ctx, r, p.limits, p.logger, func(rec domain.Record) {
		if sel.matches(rec) {
			engine.Add(rec)
		}
	})
	result := &Result{Stats: stats, GeneratedAt: domain.Now()}

	// Row accounting covers aborted parses too: rows consumed before a limit
	// breach still show up in the metrics.
	p.metrics.RowsParsed.Add(float64(stats.Rows))
	p.metrics.RowsDropped.WithLabelValues("schema").Add(float64(stats.SchemaErrors))
	p.metrics.RowsDropped.WithLabelValues("validation").Add(float64(stats.ValidationErrors))

	if err != nil {
		return result, err
	}

	if stats.Valid == 0 {
		return result, domain.ErrEmptyResult
	}

	result.Markers, result.Ranges = encode.Render(engine.Aggregates(), engine.Metrics())

	p.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	p.metrics.AggregateGroups.Observe(float64(engine.Len()))
	p.ready.Store(true)
	p.metrics.PipelineReady.Set(1)

	p.logger.Info("render pass complete",
		"rows", stats.Rows,
		"valid", stats.Valid,
		"dropped", stats.Dropped(),
		"markers", len(result.Markers),
	)
	return result, nil
}
