// Package geo provides great-circle distance math for provider ranking.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// earthRadiusMiles is the mean Earth radius.
const earthRadiusMiles = 3958.8

// Point builds an XY coordinate from latitude and longitude. go-geom
// coordinates are ordered (x, y) = (lng, lat).
func Point(lat, lng float64) geom.Coord {
	return geom.Coord{lng, lat}
}

// HaversineMiles returns the great-circle distance between two
// coordinates in miles.
func HaversineMiles(a, b geom.Coord) float64 {
	lat1 := a.Y() * math.Pi / 180
	lat2 := b.Y() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.X() - a.X()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
