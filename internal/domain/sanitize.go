package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Clamp bounds for numeric coercion. Anything outside is pinned to the edge;
// NaN and infinities become 0 so downstream sums stay finite.
const (
	clampMin = -1e12
	clampMax = 1e12
)

// maxStringLen is the rune budget for any sanitized string field.
const maxStringLen = 200

// Spain bounding box, including the Canary Islands. Used as a validity
// heuristic: coordinates outside it are treated as absent, not clamped.
const (
	spainMinLat = 27.6
	spainMaxLat = 43.8
	spainMinLng = -18.2
	spainMaxLng = 4.3
)

// markupRe strips HTML/XML-style tags so unsafe content never reaches the
// rendering layer.
var markupRe = regexp.MustCompile(`<[^>]*>`)

// InSpainBounds reports whether a coordinate pair falls inside the Spain
// bounding box heuristic.
func InSpainBounds(lat, lng float64) bool {
	return lat >= spainMinLat && lat <= spainMaxLat &&
		lng >= spainMinLng && lng <= spainMaxLng
}

// ClampNumber coerces a parsed number into the safe range.
func ClampNumber(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < clampMin {
		return clampMin
	}
	if v > clampMax {
		return clampMax
	}
	return v
}

// SanitizeString strips markup and truncates to the string budget.
func SanitizeString(s string) string {
	s = strings.TrimSpace(markupRe.ReplaceAllString(s, ""))
	runes := []rune(s)
	if len(runes) > maxStringLen {
		return string(runes[:maxStringLen])
	}
	return s
}

// parseNumber parses a string as a clamped float64. Accepts a decimal comma
// as found in Spanish-locale exports. Returns ok=false for non-numeric input.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
	}
	return ClampNumber(v), true
}

// parseYear parses an integer year, tolerating a float-styled value like
// "2022.0" as produced by some spreadsheet exports.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	if v, ok := parseNumber(s); ok && v == math.Trunc(v) {
		return int(v), true
	}
	return 0, false
}
