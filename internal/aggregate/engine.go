// Package aggregate reduces streams of normalized emission records into
// grouped metric sums. The engine is mode-agnostic: the caller supplies the
// grouping key function, which is where the batch path (composite
// region|year|sector keys) and the runtime path (spatial keys) diverge.
package aggregate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
)

// Key is one grouping key: a unique ID plus the resolved region label and
// map position used for serialization and rendering.
type Key struct {
	ID     string
	Region string
	Coords *domain.Coordinates
}

// KeyFunc computes the grouping key for one record.
type KeyFunc func(domain.Record) Key

// Aggregate is the running sum of the requested metrics for all records
// sharing a grouping key. Created fresh per run and owned by the engine
// during the reduction pass; callers only read it afterwards.
type Aggregate struct {
	Key     string             `json:"key"`
	Metrics map[string]float64 `json:"metrics"`
	Count   int                `json:"count"`

	// Region/Year/Sector are first-seen values. Under BatchKey they are
	// constant within a group; under SpatialKey a merged marker spans years
	// and sectors, so treat them as labels only.
	Region string              `json:"region,omitempty"`
	Year   int                 `json:"year,omitempty"`
	Sector string              `json:"sector,omitempty"`
	Coords *domain.Coordinates `json:"coords,omitempty"`
}

// Engine performs a single streaming grouped-reduce pass.
type Engine struct {
	key     KeyFunc
	metrics []string
	groups  map[string]*Aggregate
	order   []string
}

// New creates an engine grouping by key and summing the named metrics.
// An empty metric list defaults to the canonical emissions metric.
func New(key KeyFunc, metrics []string) *Engine {
	if len(metrics) == 0 {
		metrics = []string{domain.MetricEmissions}
	}
	return &Engine{
		key:     key,
		metrics: metrics,
		groups:  make(map[string]*Aggregate),
	}
}

// Add folds one record into its group. For each requested metric present and
// numeric on the record, the value is added to the running sum. Addition is
// commutative, so input order never changes the sums.
func (e *Engine) Add(rec domain.Record) {
	k := e.key(rec)
	agg, ok := e.groups[k.ID]
	if !ok {
		agg = &Aggregate{
			Key:     k.ID,
			Metrics: make(map[string]float64, len(e.metrics)),
			Region:  k.Region,
			Year:    rec.Year,
			Sector:  rec.Sector,
			Coords:  k.Coords,
		}
		e.groups[k.ID] = agg
		e.order = append(e.order, k.ID)
	}
	for _, m := range e.metrics {
		if v, present := rec.Metric(m); present {
			agg.Metrics[m] += v
		}
	}
	agg.Count++
}

// Len returns the number of groups so far.
func (e *Engine) Len() int { return len(e.groups) }

// Metrics returns the metric names the engine sums.
func (e *Engine) Metrics() []string { return e.metrics }

// Aggregates returns the groups in insertion order of first-seen key.
func (e *Engine) Aggregates() []*Aggregate {
	out := make([]*Aggregate, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, e.groups[k])
	}
	return out
}

// SortedAggregates returns the groups sorted by key. The batch driver uses
// this for reproducible output ordering across runs; insertion order depends
// on archive entry order, which golden-file diffing cannot rely on.
func (e *Engine) SortedAggregates() []*Aggregate {
	out := e.Aggregates()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// BatchKey builds the composite-key grouping function for the offline path.
// Semantically distinct emissions (same place, different year or sector) must
// never merge, so the key joins anchor, year, and sector.
func BatchKey(table domain.AnchorTable) KeyFunc {
	return func(rec domain.Record) Key {
		anchor := table.ResolveAnchor(rec)
		centroid := anchor.Centroid
		return Key{
			ID:     strings.Join([]string{anchor.Name, strconv.Itoa(rec.Year), rec.Sector}, "|"),
			Region: anchor.Name,
			Coords: &centroid,
		}
	}
}

// SpatialKey builds the runtime grouping function: records sharing a resolved
// position merge even across sectors and years, because the map's purpose
// there is spatial density, not temporal or sectoral breakdown.
func SpatialKey(table domain.AnchorTable) KeyFunc {
	return func(rec domain.Record) Key {
		gk := table.ResolveSpatial(rec)
		return Key{
			ID:     gk.String(),
			Region: rec.Region,
			Coords: gk.Coords,
		}
	}
}
