// Package geoloop implements the geometric-loop fallback (spec §4.7): when
// no POIs are available (or every tolerance band is exhausted), build a
// loop around the start point from pure geometry instead of POI anchors,
// then hand it to the road router to snap to real streets.
package geoloop

import (
	"context"
	"math"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/route"
	"github.com/loopcircuit/looproute/pkg/router"
)

// NumWaypoints is the number of geometric waypoints placed around the
// start, reduced from an earlier 6 to avoid over-constraining road
// routers that reject loops with too many closely-spaced waypoints.
const NumWaypoints = 4

// RadiusJitterRange bounds the per-waypoint radius jitter to ±15% of the
// base radius, so the loop isn't a perfectly regular polygon.
const RadiusJitterRange = 0.15

// RotationJitterRad bounds the whole-loop rotation jitter to roughly ±20
// degrees.
const RotationJitterRad = 0.35

// kmPerDegree approximates the km-per-degree-of-latitude conversion used
// to size the loop's radius in degrees.
const kmPerDegree = 111.0

// Waypoints builds the ring of NumWaypoints points around start, sized so
// a loop through them approximates targetDistanceKm of circumference.
// Jitter is seeded deterministically from start and targetDistanceKm, so
// the same request always produces the same ring.
func Waypoints(start geo.Location, targetDistanceKm float64) []geo.Location {
	baseRadiusKm := targetDistanceKm / (2 * math.Pi)
	baseRadiusDeg := baseRadiusKm / kmPerDegree

	seed := seedFor(start, targetDistanceKm)
	rotationOffset := pseudoRandomF64(seed, 0)*RotationJitterRad*2 - RotationJitterRad

	points := make([]geo.Location, 0, NumWaypoints)
	for i := 0; i < NumWaypoints; i++ {
		baseAngle := (float64(i) / float64(NumWaypoints)) * 2 * math.Pi
		angle := baseAngle + rotationOffset

		jitter := pseudoRandomF64(seed, i+1)*RadiusJitterRange*2 - RadiusJitterRange
		radiusDeg := baseRadiusDeg * (1 + jitter)

		latOffset := radiusDeg * math.Cos(angle)
		lngOffset := radiusDeg * math.Sin(angle) / math.Cos(start.Latitude*math.Pi/180)

		loc, err := geo.NewLocation(start.Latitude+latOffset, start.Longitude+lngOffset)
		if err != nil {
			continue
		}
		points = append(points, loc)
	}
	return points
}

// seedFor derives a deterministic 64-bit seed from the start coordinates
// and target distance, so the same request always jitters the same way.
func seedFor(start geo.Location, targetDistanceKm float64) uint64 {
	latPart := uint64(math.Abs(start.Latitude * 1000))
	lngPart := uint64(math.Abs(start.Longitude * 1000))
	distPart := uint64(targetDistanceKm * 100)

	seed := latPart * 31
	seed += lngPart
	seed *= 37
	seed += distPart
	return seed
}

// pseudoRandomF64 is a splitmix64-style deterministic generator, returning
// a value in [0, 1) for a given (seed, index) pair.
func pseudoRandomF64(seed uint64, index int) float64 {
	x := seed + uint64(index)
	x *= 0x9E3779B97F4A7C15
	x += 0x5DEECE66D
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return float64(x) / float64(math.MaxUint64)
}

// Generate builds and snaps a geometric loop: [start, w1..wN, start]
// through the road router, then assembles it as a Route with no waypoint
// POIs. Router failures propagate, per spec §4.7 ("If router fails,
// propagate").
func Generate(ctx context.Context, client *router.Client, start geo.Location, targetDistanceKm float64, mode poi.TransportMode, areaPOICount int) (*route.Route, error) {
	ring := Waypoints(start, targetDistanceKm)

	waypoints := make([]geo.Location, 0, len(ring)+2)
	waypoints = append(waypoints, start)
	waypoints = append(waypoints, ring...)
	waypoints = append(waypoints, start)

	directions, err := client.GetDirections(ctx, waypoints, mode)
	if err != nil {
		return nil, err
	}

	return route.Build(ctx, route.BuildInput{
		Directions:       directions,
		TargetDistanceKm: targetDistanceKm,
		AreaPOICount:     areaPOICount,
	}, nil)
}
