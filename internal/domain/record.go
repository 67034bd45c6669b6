package domain

import (
	"fmt"
	"strconv"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the pair as a stable spatial key, e.g. "40.4168,-3.7038".
// Four decimal places (~11m) is enough to merge markers reported at the
// same site while keeping distinct sites apart.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lng)
}

// FieldValue holds one extra CSV column as either a number or text.
// Numeric extras are what the visual encoder can later discover as metrics.
type FieldValue struct {
	Text    string  `json:"text,omitempty"`
	Number  float64 `json:"number,omitempty"`
	Numeric bool    `json:"numeric"`
}

// NumberField wraps a numeric extra column value.
func NumberField(v float64) FieldValue {
	return FieldValue{Number: v, Numeric: true}
}

// TextField wraps a textual extra column value.
func TextField(s string) FieldValue {
	return FieldValue{Text: s}
}

// Record is the canonical row shape after normalization and sanitization.
// Coords is nil when the source row had no usable lat/lng pair; it is never
// zeroed to (0,0), which would be a valid point in the Gulf of Guinea.
type Record struct {
	Region    string                `json:"region"`
	Year      int                   `json:"year"`
	Sector    string                `json:"sector"`
	Emissions float64               `json:"emissions"`
	Coords    *Coordinates          `json:"coords,omitempty"`
	Extra     map[string]FieldValue `json:"extra,omitempty"`
}

// Metric returns the named numeric metric and whether the record carries it.
// "emissions" always resolves to the canonical field; any other name is
// looked up in the extras bag and must be numeric.
func (r Record) Metric(name string) (float64, bool) {
	if name == MetricEmissions {
		return r.Emissions, true
	}
	if fv, ok := r.Extra[name]; ok && fv.Numeric {
		return fv.Number, true
	}
	return 0, false
}

// MetricEmissions is the canonical metric present on every record.
const MetricEmissions = "emissions"

// Validate applies the Record invariants. Rows failing any of them are
// dropped by callers, never repaired.
func Validate(r Record) error {
	if r.Region == "" {
		return &ValidationError{Field: "region", Reason: "empty"}
	}
	if r.Year < MinYear || r.Year > MaxYear {
		return &ValidationError{Field: "year", Reason: "out of range " + strconv.Itoa(r.Year)}
	}
	if r.Emissions < 0 {
		return &ValidationError{Field: "emissions", Reason: "negative"}
	}
	if r.Coords != nil && !InSpainBounds(r.Coords.Lat, r.Coords.Lng) {
		return &ValidationError{Field: "coords", Reason: "outside Spain bounding box"}
	}
	return nil
}

// Year bounds accepted for emission records.
const (
	MinYear = 1900
	MaxYear = 2100
)
