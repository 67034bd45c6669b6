package encode_test

import (
	"math"
	"testing"

	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agg(key string, emissions float64) *aggregate.Aggregate {
	return &aggregate.Aggregate{
		Key:     key,
		Metrics: map[string]float64{domain.MetricEmissions: emissions},
		Count:   1,
	}
}

func TestRanges(t *testing.T) {
	t.Run("min and max bound every finite value", func(t *testing.T) {
		aggs := []*aggregate.Aggregate{agg("a", 10), agg("b", 50), agg("c", 30)}
		ranges := encode.Ranges(aggs, []string{domain.MetricEmissions})

		require.Len(t, ranges, 1)
		assert.Equal(t, 10.0, ranges[0].Min)
		assert.Equal(t, 50.0, ranges[0].Max)
		for _, a := range aggs {
			v := a.Metrics[domain.MetricEmissions]
			assert.LessOrEqual(t, ranges[0].Min, v)
			assert.GreaterOrEqual(t, ranges[0].Max, v)
		}
	})

	t.Run("non-finite values are excluded not zeroed", func(t *testing.T) {
		aggs := []*aggregate.Aggregate{agg("a", 10), agg("b", math.Inf(1)), agg("c", 30)}
		ranges := encode.Ranges(aggs, []string{domain.MetricEmissions})

		assert.Equal(t, 10.0, ranges[0].Min)
		assert.Equal(t, 30.0, ranges[0].Max)
	})

	t.Run("missing metric yields degenerate range", func(t *testing.T) {
		aggs := []*aggregate.Aggregate{agg("a", 10)}
		ranges := encode.Ranges(aggs, []string{"nox"})

		assert.True(t, math.IsInf(ranges[0].Min, 1))
		assert.True(t, math.IsInf(ranges[0].Max, -1))
	})
}

func TestRender_Buckets(t *testing.T) {
	// Range 0..100: normalized value equals the raw value / 100.
	aggs := []*aggregate.Aggregate{
		agg("zero", 0),
		agg("low", 30),
		agg("medium", 55),
		agg("cutoff", 70), // exactly at the high boundary, inclusive
		agg("high", 100),
	}

	markers, _ := encode.Render(aggs, []string{domain.MetricEmissions})
	byKey := make(map[string]encode.Marker, len(markers))
	for _, m := range markers {
		byKey[m.Key] = m
	}

	assert.Equal(t, encode.BucketLow, byKey["zero"].Bucket)
	assert.Equal(t, encode.BucketLow, byKey["low"].Bucket)
	assert.Equal(t, encode.BucketMedium, byKey["medium"].Bucket)
	assert.Equal(t, encode.BucketHigh, byKey["cutoff"].Bucket)
	assert.Equal(t, encode.BucketHigh, byKey["high"].Bucket)
}

func TestRender_Radius(t *testing.T) {
	aggs := []*aggregate.Aggregate{agg("min", 0), agg("mid", 50), agg("max", 100)}

	markers, _ := encode.Render(aggs, []string{domain.MetricEmissions})
	byKey := make(map[string]encode.Marker, len(markers))
	for _, m := range markers {
		byKey[m.Key] = m
	}

	assert.Equal(t, encode.MinRadius, byKey["min"].Radius)
	assert.InDelta(t, (encode.MinRadius+encode.MaxRadius)/2, byKey["mid"].Radius, 1e-9)
	assert.Equal(t, encode.MaxRadius, byKey["max"].Radius)
}

func TestRender_DegenerateRange(t *testing.T) {
	t.Run("all equal values go neutral at minimum radius", func(t *testing.T) {
		aggs := []*aggregate.Aggregate{agg("a", 42), agg("b", 42)}

		markers, _ := encode.Render(aggs, []string{domain.MetricEmissions})
		for _, m := range markers {
			assert.Equal(t, encode.BucketNeutral, m.Bucket)
			assert.Equal(t, encode.MinRadius, m.Radius)
		}
	})

	t.Run("aggregate missing the primary metric goes neutral", func(t *testing.T) {
		noMetric := &aggregate.Aggregate{Key: "empty", Metrics: map[string]float64{}, Count: 1}
		aggs := []*aggregate.Aggregate{agg("a", 10), agg("b", 90), noMetric}

		markers, _ := encode.Render(aggs, []string{domain.MetricEmissions})
		byKey := make(map[string]encode.Marker, len(markers))
		for _, m := range markers {
			byKey[m.Key] = m
		}
		assert.Equal(t, encode.BucketNeutral, byKey["empty"].Bucket)
	})
}

func TestRender_Deterministic(t *testing.T) {
	aggs := []*aggregate.Aggregate{agg("a", 10), agg("b", 50), agg("c", 90)}

	first, firstRanges := encode.Render(aggs, []string{domain.MetricEmissions})
	second, secondRanges := encode.Render(aggs, []string{domain.MetricEmissions})

	assert.Equal(t, first, second)
	assert.Equal(t, firstRanges, secondRanges)
}
