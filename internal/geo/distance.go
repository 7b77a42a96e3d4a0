package geo

import (
	"scenic/internal/model"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const metersPerMile = 1609.344

func point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// RoadSpan returns the straight-line distance in meters between a road's start and end.
func RoadSpan(r model.Road) float64 {
	return orbgeo.DistanceHaversine(point(r.StartLat, r.StartLon), point(r.EndLat, r.EndLon))
}

// DistanceFrom returns the distance in meters from pos to the start of the road.
func DistanceFrom(pos model.Position, r model.Road) float64 {
	return orbgeo.DistanceHaversine(point(pos.Lat, pos.Lon), point(r.StartLat, r.StartLon))
}

// Convert turns meters into kilometers, or miles when miles is set.
func Convert(meters float64, miles bool) float64 {
	if miles {
		return meters / metersPerMile
	}
	return meters / 1000
}
