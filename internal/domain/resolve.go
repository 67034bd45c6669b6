package domain

// GeoKey identifies where a record is assigned on the map: either a named
// anchor or an exact coordinate pair.
type GeoKey struct {
	Name   string       `json:"name,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// String renders the key for grouping: the anchor name when the record was
// resolved by name, otherwise the coordinate pair. Name-resolved keys must
// never collide with exact-coordinate keys, even when a record's coordinates
// land exactly on a centroid.
func (k GeoKey) String() string {
	if k.Name != "" {
		return k.Name
	}
	return k.Coords.String()
}

// ResolveSpatial assigns the runtime grouping key: exact coordinates when the
// record carries them, else the anchor matching the region name, else the
// national fallback. Fine-grained keys let the map show markers at reported
// positions; records sharing a position merge regardless of year or sector.
func (t AnchorTable) ResolveSpatial(rec Record) GeoKey {
	if rec.Coords != nil {
		return GeoKey{Coords: rec.Coords}
	}
	if a, ok := t.ByName(rec.Region); ok {
		return GeoKey{Name: a.Name, Coords: &a.Centroid}
	}
	n := t.national
	return GeoKey{Name: n.Name, Coords: &n.Centroid}
}

// ResolveAnchor assigns the batch grouping key: always one of the fixed
// anchors. Point sources snap to the nearest centroid; records without
// coordinates fall back to the region name, then to the national anchor.
func (t AnchorTable) ResolveAnchor(rec Record) Anchor {
	if rec.Coords != nil {
		return t.Nearest(*rec.Coords)
	}
	if a, ok := t.ByName(rec.Region); ok {
		return a
	}
	return t.national
}

// Nearest scans the anchor set for the closest centroid by planar Euclidean
// distance in degree space. Not great-circle distance: at country scale the
// simplification is acceptable, and changing the metric would move records
// near region boundaries. Ties break to the first-declared anchor via the
// strict less-than comparison. O(anchors) per record with a small constant set.
func (t AnchorTable) Nearest(c Coordinates) Anchor {
	if len(t.anchors) == 0 {
		return t.national
	}
	best := t.anchors[0]
	bestDist := sqDist(c, best.Centroid)
	for _, a := range t.anchors[1:] {
		if d := sqDist(c, a.Centroid); d < bestDist {
			best = a
			bestDist = d
		}
	}
	return best
}

// sqDist is squared degree-space distance; ordering is all that matters.
func sqDist(a, b Coordinates) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}
