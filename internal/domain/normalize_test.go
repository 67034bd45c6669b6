package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRow(t *testing.T) {
	t.Run("canonical headers", func(t *testing.T) {
		headers := []string{"region", "year", "sector", "emissions", "lat", "lng"}
		values := []string{"Madrid", "2022", "power", "100.5", "40.4168", "-3.7038"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)

		assert.Equal(t, "Madrid", rec.Region)
		assert.Equal(t, 2022, rec.Year)
		assert.Equal(t, "power", rec.Sector)
		assert.Equal(t, 100.5, rec.Emissions)
		require.NotNil(t, rec.Coords)
		assert.Equal(t, 40.4168, rec.Coords.Lat)
		assert.Equal(t, -3.7038, rec.Coords.Lng)
		assert.Empty(t, rec.Extra)
	})

	t.Run("locale alias headers", func(t *testing.T) {
		headers := []string{"comunidad_autonoma", "año", "industria", "emisiones"}
		values := []string{"Andalucía", "2021", "transporte", "42,5"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)

		assert.Equal(t, "Andalucía", rec.Region)
		assert.Equal(t, 2021, rec.Year)
		assert.Equal(t, "transporte", rec.Sector)
		assert.Equal(t, 42.5, rec.Emissions)
		assert.Nil(t, rec.Coords)
	})

	t.Run("alias priority prefers first non-empty", func(t *testing.T) {
		headers := []string{"region", "comunidad_autonoma", "year", "sector", "emissions"}
		values := []string{"", "Galicia", "2020", "cement", "7"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)
		assert.Equal(t, "Galicia", rec.Region)
	})

	t.Run("field count mismatch is a SchemaError", func(t *testing.T) {
		headers := []string{"region", "year", "sector", "emissions"}
		values := []string{"Madrid", "2022", "power"}

		_, err := NormalizeRow(headers, values, 7)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, 7, schemaErr.Row)
		assert.Equal(t, 3, schemaErr.Fields)
		assert.Equal(t, 4, schemaErr.Want)
	})

	t.Run("coordinates outside Spain are absent not clamped", func(t *testing.T) {
		headers := []string{"region", "year", "sector", "emissions", "lat", "lng"}
		values := []string{"Madrid", "2022", "power", "10", "90", "0"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)
		assert.Nil(t, rec.Coords)
	})

	t.Run("coordinates need both components", func(t *testing.T) {
		headers := []string{"region", "year", "sector", "emissions", "lat"}
		values := []string{"Madrid", "2022", "power", "10", "40.4"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)
		assert.Nil(t, rec.Coords)
	})

	t.Run("extra columns keep their type", func(t *testing.T) {
		headers := []string{"region", "year", "sector", "emissions", "ch4", "facility"}
		values := []string{"Madrid", "2022", "power", "10", "3.5", "Central Norte"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)

		require.Contains(t, rec.Extra, "ch4")
		assert.True(t, rec.Extra["ch4"].Numeric)
		assert.Equal(t, 3.5, rec.Extra["ch4"].Number)

		require.Contains(t, rec.Extra, "facility")
		assert.False(t, rec.Extra["facility"].Numeric)
		assert.Equal(t, "Central Norte", rec.Extra["facility"].Text)
	})

	t.Run("markup is stripped from strings", func(t *testing.T) {
		headers := []string{"region", "year", "sector", "emissions"}
		values := []string{"<script>alert(1)</script>Madrid", "2022", "power", "10"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)
		assert.Equal(t, "alert(1)Madrid", rec.Region)
	})

	t.Run("long strings are truncated", func(t *testing.T) {
		long := strings.Repeat("x", 500)
		headers := []string{"region", "year", "sector", "emissions"}
		values := []string{long, "2022", "power", "10"}

		rec, err := NormalizeRow(headers, values, 1)
		require.NoError(t, err)
		assert.Len(t, rec.Region, 200)
	})
}

func TestClampNumber(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{"in range", 42.5, 42.5},
		{"above max", 5e12, 1e12},
		{"below min", -5e12, -1e12},
		{"NaN", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampNumber(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Record{Region: "Madrid", Year: 2022, Sector: "power", Emissions: 10}

	t.Run("valid record", func(t *testing.T) {
		require.NoError(t, Validate(valid))
	})

	tests := []struct {
		name   string
		mutate func(*Record)
		field  string
	}{
		{"empty region", func(r *Record) { r.Region = "" }, "region"},
		{"year below range", func(r *Record) { r.Year = 1800 }, "year"},
		{"year above range", func(r *Record) { r.Year = 2150 }, "year"},
		{"negative emissions", func(r *Record) { r.Emissions = -1 }, "emissions"},
		{"coords outside box", func(r *Record) { r.Coords = &Coordinates{Lat: 90, Lng: 0} }, "coords"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			err := Validate(rec)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRecordMetric(t *testing.T) {
	rec := Record{
		Emissions: 12.5,
		Extra: map[string]FieldValue{
			"ch4":      NumberField(3),
			"facility": TextField("Central Norte"),
		},
	}

	tests := []struct {
		name     string
		metric   string
		expected float64
		ok       bool
	}{
		{"canonical emissions", MetricEmissions, 12.5, true},
		{"numeric extra", "ch4", 3, true},
		{"text extra is not a metric", "facility", 0, false},
		{"unknown metric", "nox", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := rec.Metric(tt.metric)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}
