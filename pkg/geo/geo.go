// Package geo provides coordinate and bounding-box primitives: haversine
// distance, bounding-box derivation from a center+radius or from a buffered
// polyline, and point-to-polyline projection used by the snapping service.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in kilometers, matching the value
// used throughout the route-generation core.
const EarthRadius = 6371.0

// metersPerDegreeLat is the standard small-angle approximation used
// throughout the pipeline for bbox derivation (not for haversine distance).
const metersPerDegreeLat = 111000.0

// nearPoleLatitude is the latitude magnitude beyond which the longitude
// buffer degenerates (cos(lat) -> 0) and a fallback is used instead.
const nearPoleLatitude = 85.0

// Location is an immutable (lat, lng) pair in WGS84 decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// NewLocation validates and constructs a Location. Returns an error if lat
// is outside [-90, 90] or lng is outside [-180, 180].
func NewLocation(lat, lng float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("invalid latitude %f: must be in [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Location{}, fmt.Errorf("invalid longitude %f: must be in [-180, 180]", lng)
	}
	return Location{Latitude: lat, Longitude: lng}, nil
}

// HaversineDistance returns the great-circle distance in kilometers between
// two (lat, lng) points given in decimal degrees.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// DistanceTo returns the haversine distance in kilometers to other.
func (l Location) DistanceTo(other Location) float64 {
	return HaversineDistance(l.Latitude, l.Longitude, other.Latitude, other.Longitude)
}

// Round returns a copy of l with both coordinates rounded to decimalPlaces.
func (l Location) Round(decimalPlaces int) Location {
	factor := math.Pow(10, float64(decimalPlaces))
	return Location{
		Latitude:  math.Round(l.Latitude*factor) / factor,
		Longitude: math.Round(l.Longitude*factor) / factor,
	}
}

// distanceToSegment returns the minimum haversine distance (km) from point p
// to the segment [a,b], and the projection parameter t in [0,1] (degree-space
// projection, haversine distance to the resulting closest point).
func distanceToSegment(p, a, b Location) (distKm float64, t float64) {
	dx := b.Longitude - a.Longitude
	dy := b.Latitude - a.Latitude

	lengthSq := dx*dx + dy*dy
	if lengthSq < 1e-20 {
		return p.DistanceTo(a), 0
	}

	t = ((p.Longitude-a.Longitude)*dx + (p.Latitude-a.Latitude)*dy) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := Location{
		Latitude:  a.Latitude + t*dy,
		Longitude: a.Longitude + t*dx,
	}
	return p.DistanceTo(closest), t
}

// DistanceToLineString returns the minimum perpendicular distance (km) from
// p to the polyline path, the index of the closest segment, and the
// cumulative haversine distance (km) along the path up to the projected
// point. Returns ok=false if the path has fewer than 2 points.
func (l Location) DistanceToLineString(path []Location) (distKm float64, segmentIndex int, cumulativeKm float64, ok bool) {
	if len(path) < 2 {
		return 0, 0, 0, false
	}

	bestDist := math.Inf(1)
	bestSegment := 0
	bestCumulative := 0.0
	cumulative := 0.0

	for i := 0; i < len(path)-1; i++ {
		a, b := path[i], path[i+1]
		segLen := a.DistanceTo(b)

		d, t := distanceToSegment(l, a, b)
		if d < bestDist {
			bestDist = d
			bestSegment = i
			bestCumulative = cumulative + t*segLen
		}
		cumulative += segLen
	}

	return bestDist, bestSegment, bestCumulative, true
}

// BoundingBox is an axis-aligned lat/lng box.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// NewBoundingBox returns an empty bounding box ready for ExtendWithPoint.
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLng: math.Inf(1),
		MaxLng: math.Inf(-1),
	}
}

// ExtendWithPoint grows the bounding box to include (lat, lng).
func (b *BoundingBox) ExtendWithPoint(lat, lng float64) {
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
	if lng < b.MinLng {
		b.MinLng = lng
	}
	if lng > b.MaxLng {
		b.MaxLng = lng
	}
}

// Contains reports whether (lat, lng) falls within the box, inclusive.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// lngBufferDegrees converts a meters buffer to a longitude-degree buffer at
// the given latitude, falling back to the latitude buffer near the poles
// where cos(lat) collapses toward zero.
func lngBufferDegrees(bufferMeters, midLat float64) float64 {
	latBuffer := bufferMeters / metersPerDegreeLat
	if math.Abs(midLat) > nearPoleLatitude {
		return latBuffer
	}
	cosLat := math.Cos(midLat * math.Pi / 180)
	if math.Abs(cosLat) < 1e-9 {
		return latBuffer
	}
	return bufferMeters / (metersPerDegreeLat * cosLat)
}

// BoundingBoxFromRadius derives a bounding box enclosing a circle of
// radiusMeters around center. Longitude buffer uses a near-pole fallback to
// the latitude buffer when |lat| > 85 degrees.
func BoundingBoxFromRadius(center Location, radiusMeters float64) BoundingBox {
	latBuffer := radiusMeters / metersPerDegreeLat
	lngBuffer := lngBufferDegrees(radiusMeters, center.Latitude)

	return BoundingBox{
		MinLat: center.Latitude - latBuffer,
		MaxLat: center.Latitude + latBuffer,
		MinLng: center.Longitude - lngBuffer,
		MaxLng: center.Longitude + lngBuffer,
	}
}

// BoundingBoxFromPathWithBuffer derives a bounding box enclosing path plus a
// bufferMeters margin on every side, using the path's mean latitude for the
// longitude-buffer conversion.
func BoundingBoxFromPathWithBuffer(path []Location, bufferMeters float64) (BoundingBox, bool) {
	if len(path) == 0 {
		return BoundingBox{}, false
	}

	box := NewBoundingBox()
	latSum := 0.0
	for _, p := range path {
		box.ExtendWithPoint(p.Latitude, p.Longitude)
		latSum += p.Latitude
	}
	midLat := latSum / float64(len(path))

	latBuffer := bufferMeters / metersPerDegreeLat
	lngBuffer := lngBufferDegrees(bufferMeters, midLat)

	return BoundingBox{
		MinLat: box.MinLat - latBuffer,
		MaxLat: box.MaxLat + latBuffer,
		MinLng: box.MinLng - lngBuffer,
		MaxLng: box.MaxLng + lngBuffer,
	}, true
}
