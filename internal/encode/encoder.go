// Package encode maps aggregated magnitudes onto the discrete color buckets
// and continuous marker radii the map layer renders. Encoding is pure and
// deterministic: the same aggregate set and metric always produce the same
// buckets and radii, independent of render order.
package encode

import (
	"math"

	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
)

// Bucket is a discrete color class for a marker.
type Bucket string

const (
	BucketHigh    Bucket = "high"
	BucketMedium  Bucket = "medium"
	BucketLow     Bucket = "low"
	BucketNeutral Bucket = "neutral" // degenerate range or non-finite value
)

// Normalized-value cutoffs. The high boundary is inclusive: a value landing
// exactly on 0.7 is "high".
const (
	highCutoff   = 0.7
	mediumCutoff = 0.4
)

// Marker radius bounds in pixels.
const (
	MinRadius = 6.0
	MaxRadius = 24.0
)

// Range is the min/max of one metric across the current aggregate set,
// computed over finite values only. Recomputed on every encoding pass,
// never persisted.
type Range struct {
	Metric string  `json:"metric"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// degenerate reports whether the range cannot discriminate values.
func (r Range) degenerate() bool {
	return r.Min == r.Max || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0)
}

// Marker is one render-ready map marker.
type Marker struct {
	Key     string              `json:"key"`
	Region  string              `json:"region,omitempty"`
	Coords  *domain.Coordinates `json:"coords,omitempty"`
	Bucket  Bucket              `json:"bucket"`
	Radius  float64             `json:"radius"`
	Metrics map[string]float64  `json:"metrics"`
	Count   int                 `json:"count"`
}

// Ranges computes the per-metric value range over the aggregate set.
// Non-finite and missing values are excluded from range computation, not
// treated as zero. A metric with no finite values yields a degenerate
// (+Inf, -Inf) range, which encodes everything as neutral.
func Ranges(aggs []*aggregate.Aggregate, metrics []string) []Range {
	out := make([]Range, 0, len(metrics))
	for _, m := range metrics {
		r := Range{Metric: m, Min: math.Inf(1), Max: math.Inf(-1)}
		for _, a := range aggs {
			v, ok := a.Metrics[m]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			r.Min = math.Min(r.Min, v)
			r.Max = math.Max(r.Max, v)
		}
		out = append(out, r)
	}
	return out
}

// Render encodes every aggregate against the first selected metric. The
// remaining metrics still contribute their sums to the marker payload; only
// color and size follow the primary metric.
func Render(aggs []*aggregate.Aggregate, metrics []string) ([]Marker, []Range) {
	if len(metrics) == 0 {
		metrics = []string{domain.MetricEmissions}
	}
	ranges := Ranges(aggs, metrics)
	primary := ranges[0]

	markers := make([]Marker, 0, len(aggs))
	for _, a := range aggs {
		v, ok := a.Metrics[primary.Metric]
		if !ok {
			v = math.NaN()
		}
		markers = append(markers, Marker{
			Key:     a.Key,
			Region:  a.Region,
			Coords:  a.Coords,
			Bucket:  bucketFor(v, primary),
			Radius:  radiusFor(v, primary),
			Metrics: a.Metrics,
			Count:   a.Count,
		})
	}
	return markers, ranges
}

// bucketFor maps a value onto a color bucket via its normalized position in
// the range.
func bucketFor(v float64, r Range) Bucket {
	norm, ok := normalize(v, r)
	if !ok {
		return BucketNeutral
	}
	switch {
	case norm >= highCutoff:
		return BucketHigh
	case norm > mediumCutoff:
		return BucketMedium
	default:
		return BucketLow
	}
}

// radiusFor linearly interpolates the normalized value into the marker size
// range, falling back to the minimum radius when the range is degenerate.
func radiusFor(v float64, r Range) float64 {
	norm, ok := normalize(v, r)
	if !ok {
		return MinRadius
	}
	return MinRadius + norm*(MaxRadius-MinRadius)
}

func normalize(v float64, r Range) (float64, bool) {
	if r.degenerate() || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return (v - r.Min) / (r.Max - r.Min), true
}
