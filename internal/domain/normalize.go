package domain

// Column alias tables, in priority order. Source files vary by producer and
// locale, so each canonical field accepts several header spellings; the first
// alias with a non-empty value wins.
var (
	regionAliases    = []string{"region", "Region", "autonomous_community", "comunidad_autonoma"}
	yearAliases      = []string{"year", "Year", "año"}
	sectorAliases    = []string{"sector", "Sector", "industry", "industria"}
	emissionsAliases = []string{"emissions", "Emissions", "emisiones", "co2", "CO2"}

	latAliases = []string{"lat", "Lat", "latitude", "latitud"}
	lngAliases = []string{"lng", "Lng", "lon", "longitude", "longitud"}
)

// NormalizeRow maps one raw CSV row onto the canonical Record shape.
// It fails with a *SchemaError when the row's field count does not match the
// header count; rowNum is 1-based and only used for error reporting.
// Columns not consumed by a canonical field are retained as typed extras so
// the visual encoder can discover arbitrary metrics later.
// Pure function of (headers, values); validation is a separate step.
func NormalizeRow(headers, values []string, rowNum int) (Record, error) {
	if len(values) != len(headers) {
		return Record{}, &SchemaError{Row: rowNum, Fields: len(values), Want: len(headers)}
	}

	// First occurrence wins for duplicate headers.
	byName := make(map[string]string, len(headers))
	for i, h := range headers {
		if _, ok := byName[h]; !ok {
			byName[h] = values[i]
		}
	}

	rec := Record{
		Region: SanitizeString(firstNonEmpty(byName, regionAliases)),
		Sector: SanitizeString(firstNonEmpty(byName, sectorAliases)),
	}

	if y, ok := parseYear(firstNonEmpty(byName, yearAliases)); ok {
		rec.Year = y
	}
	if v, ok := parseNumber(firstNonEmpty(byName, emissionsAliases)); ok {
		rec.Emissions = v
	}
	rec.Coords = parseCoordinates(byName)

	consumed := consumedColumns()
	for i, h := range headers {
		if consumed[h] {
			continue
		}
		if _, dup := rec.Extra[h]; dup {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]FieldValue)
		}
		if v, ok := parseNumber(values[i]); ok {
			rec.Extra[h] = NumberField(v)
		} else {
			rec.Extra[h] = TextField(SanitizeString(values[i]))
		}
	}

	return rec, nil
}

// parseCoordinates builds a coordinate pair only when both components parse
// as numbers and pass the Spain bounding-box check. Anything else yields nil:
// absent, never zeroed.
func parseCoordinates(byName map[string]string) *Coordinates {
	lat, okLat := parseNumber(firstNonEmpty(byName, latAliases))
	lng, okLng := parseNumber(firstNonEmpty(byName, lngAliases))
	if !okLat || !okLng || !InSpainBounds(lat, lng) {
		return nil
	}
	return &Coordinates{Lat: lat, Lng: lng}
}

// firstNonEmpty returns the value of the first alias present with a non-empty
// value, or "".
func firstNonEmpty(byName map[string]string, aliases []string) string {
	for _, a := range aliases {
		if v, ok := byName[a]; ok && v != "" {
			return v
		}
	}
	return ""
}

// consumedColumns is the set of headers claimed by canonical fields; rows keep
// everything else in the extras bag.
func consumedColumns() map[string]bool {
	m := make(map[string]bool)
	for _, group := range [][]string{regionAliases, yearAliases, sectorAliases, emissionsAliases, latAliases, lngAliases} {
		for _, a := range group {
			m[a] = true
		}
	}
	return m
}
