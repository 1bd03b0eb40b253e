// Package geo implements the great-circle distance and geofence checks used to
// confirm a volunteer is physically at a venue.
package geo

import (
	"math"

	dErrors "volunteerhub/pkg/domain-errors"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// DefaultRadiusMeters is the check-in radius around a venue.
const DefaultRadiusMeters = 200.0

// boundaryTolerance absorbs floating point error so a point computed to lie
// exactly on the boundary is treated as on it.
const boundaryTolerance = 1e-6

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate is on the globe.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return dErrors.New(dErrors.CodeValidation, "coordinates must be numbers")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if p.Lon < -180 || p.Lon > 180 {
		return dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Fence is a circular geofence.
type Fence struct {
	RadiusMeters float64
	// Inclusive admits points exactly RadiusMeters away.
	Inclusive bool
}

// DefaultFence is the 200 m inclusive fence.
func DefaultFence() Fence {
	return Fence{RadiusMeters: DefaultRadiusMeters, Inclusive: true}
}

// Admits reports whether a point at distance meters from the center is inside.
func (f Fence) Admits(meters float64) bool {
	if f.Inclusive {
		return meters <= f.RadiusMeters+boundaryTolerance
	}
	return meters < f.RadiusMeters-boundaryTolerance
}

// Check computes the distance from center to p and reports whether it is admitted.
func (f Fence) Check(center, p Point) (float64, bool) {
	d := Distance(center, p)
	return d, f.Admits(d)
}

// OffsetNorth returns the point meters due north of p along its meridian.
// Useful for building coordinates at a known distance from a venue.
func OffsetNorth(p Point, meters float64) Point {
	return Point{Lat: p.Lat + meters/EarthRadiusMeters*180/math.Pi, Lon: p.Lon}
}
