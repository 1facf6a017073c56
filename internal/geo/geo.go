// Package geo provides the distance oracle for the Kocaeli collection
// network: haversine great-circle math, a curated road graph with
// shortest-path search, and a precomputed station distance matrix.
package geo

import "math"

const (
	earthRadiusKm = 6371.0

	// RoadFactor converts crow-flight distance into an approximate
	// driving distance for the region's road network.
	RoadFactor = 1.35
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b Point) float64 {
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RoadDistance approximates driving distance in km when no modeled road
// connects the two points.
func RoadDistance(a, b Point) float64 {
	return Haversine(a, b) * RoadFactor
}

// Interpolate returns n evenly spaced points strictly between a and b.
// Used as display geometry when no road path is available.
func Interpolate(a, b Point, n int) []Point {
	if n <= 0 {
		return nil
	}
	pts := make([]Point, 0, n)
	for i := 1; i <= n; i++ {
		f := float64(i) / float64(n+1)
		pts = append(pts, Point{
			Lat: a.Lat + (b.Lat-a.Lat)*f,
			Lng: a.Lng + (b.Lng-a.Lng)*f,
		})
	}
	return pts
}
