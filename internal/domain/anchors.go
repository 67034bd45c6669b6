package domain

import "strings"

// Anchor is one fixed (name, centroid) pair used as a spatial classification
// target. Anchors are immutable, process-wide reference data.
type Anchor struct {
	Name     string
	Centroid Coordinates
}

// AnchorTable is the read-only lookup structure over the fixed anchor set.
// Pass it explicitly into resolution code; never mutate it after construction.
type AnchorTable struct {
	anchors  []Anchor
	national Anchor
	byName   map[string]Anchor
}

// NationalAnchorName is the distinguished fallback for records of national
// rather than regional granularity.
const NationalAnchorName = "España"

// spainAnchors lists the 17 autonomous communities with approximate
// centroids. Declaration order is load-bearing: nearest-anchor ties break to
// the first-declared anchor.
var spainAnchors = []Anchor{
	{"Andalucía", Coordinates{37.5443, -4.7278}},
	{"Aragón", Coordinates{41.5976, -0.9057}},
	{"Asturias", Coordinates{43.3614, -5.8593}},
	{"Islas Baleares", Coordinates{39.5342, 2.8577}},
	{"Canarias", Coordinates{28.2916, -16.6291}},
	{"Cantabria", Coordinates{43.1828, -3.9878}},
	{"Castilla-La Mancha", Coordinates{39.2796, -3.0977}},
	{"Castilla y León", Coordinates{41.8357, -4.3976}},
	{"Cataluña", Coordinates{41.5912, 1.5209}},
	{"Comunidad Valenciana", Coordinates{39.4840, -0.7533}},
	{"Extremadura", Coordinates{39.4937, -6.0679}},
	{"Galicia", Coordinates{42.5751, -8.1339}},
	{"La Rioja", Coordinates{42.2871, -2.5396}},
	{"Madrid", Coordinates{40.4168, -3.7038}},
	{"Murcia", Coordinates{38.1398, -1.3663}},
	{"Navarra", Coordinates{42.6954, -1.6761}},
	{"País Vasco", Coordinates{42.9896, -2.6189}},
}

// SpainAnchors builds the fixed anchor table for Spain: 17 autonomous
// communities plus the distinguished "España" national anchor.
func SpainAnchors() AnchorTable {
	return NewAnchorTable(spainAnchors, Anchor{
		Name:     NationalAnchorName,
		Centroid: Coordinates{40.4637, -3.7492},
	})
}

// NewAnchorTable constructs a table from an anchor list and a national
// fallback. Exposed so the resolver stays testable with small fixtures.
func NewAnchorTable(anchors []Anchor, national Anchor) AnchorTable {
	byName := make(map[string]Anchor, len(anchors)+1)
	for _, a := range anchors {
		byName[normalizeName(a.Name)] = a
	}
	byName[normalizeName(national.Name)] = national
	return AnchorTable{
		anchors:  append([]Anchor(nil), anchors...),
		national: national,
		byName:   byName,
	}
}

// Anchors returns the declared anchor list, excluding the national fallback.
func (t AnchorTable) Anchors() []Anchor {
	return append([]Anchor(nil), t.anchors...)
}

// National returns the distinguished fallback anchor.
func (t AnchorTable) National() Anchor { return t.national }

// ByName looks up an anchor by case-insensitive name.
func (t AnchorTable) ByName(name string) (Anchor, bool) {
	a, ok := t.byName[normalizeName(name)]
	return a, ok
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
