// Package domain models Spanish CO₂ point-source emission records.
//
// # Data Source
//
// Records originate from per-country archives of point-source emissions CSV
// files (one file per reporting producer) and from user-uploaded CSV exports.
// Producers disagree on header names and locale, so every canonical field
// accepts an alias list in priority order:
//
//	region    ← region, Region, autonomous_community, comunidad_autonoma
//	year      ← year, Year, año
//	sector    ← sector, Sector, industry, industria
//	emissions ← emissions, Emissions, emisiones, co2, CO2
//	lat/lng   ← lat/lng plus longer spellings (latitude, longitud, ...)
//
// Columns not claimed by a canonical field survive as typed extras
// ([FieldValue]), numeric when they parse as numbers. Numeric extras are
// discoverable as additional metrics by the aggregation and encoding layers.
//
// # Sanitization
//
// Coercion runs before validation so the validity check operates on safe
// types: numbers are clamped to ±1e12 with NaN/Inf mapped to 0, strings are
// markup-stripped and truncated to 200 runes. Validation then enforces the
// Record invariants: non-empty region, year 1900–2100, non-negative finite
// emissions, and coordinates inside the Spain bounding box
// (lat 27.6–43.8, lng -18.2–4.3, Canary Islands included). A coordinate pair
// outside the box is treated as absent, never clamped into it. Rows failing
// validation are dropped, not repaired.
//
// # Geographic Anchors
//
// Seventeen fixed (community, centroid) pairs plus a distinguished "España"
// anchor classify records spatially. The batch path snaps point sources to
// the nearest centroid by planar degree-space distance (ties break to the
// first-declared anchor); the runtime path keeps exact coordinates so the map
// can place markers at reported positions. Records carrying neither usable
// coordinates nor a recognizable region name are national-granularity data
// and land on the "España" anchor.
package domain
