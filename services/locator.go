package services

import (
	"math"
	"sort"

	"ettu-nearby/models"
)

// EarthRadiusMeters is the sphere radius used for all distances.
const EarthRadiusMeters = 6371e3

// Distance returns the haversine great-circle distance in meters between two
// points given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	f1 := degToRad(lat1)
	f2 := degToRad(lat2)
	df := degToRad(lat2 - lat1)
	dl := degToRad(lon2 - lon1)

	a := math.Sin(df/2)*math.Sin(df/2) +
		math.Cos(f1)*math.Cos(f2)*
			math.Sin(dl/2)*math.Sin(dl/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

func degToRad(angle float64) float64 {
	return math.Pi * angle / 180.0
}

// Rank orders stations by distance to (lat, lon) and returns at most count of
// them. Ties keep catalog order. count <= 0 yields an empty slice.
func Rank(stations []models.Station, lat, lon float64, count int) []models.Candidate {
	if count <= 0 {
		return []models.Candidate{}
	}

	ranked := make([]models.Candidate, len(stations))
	for i, s := range stations {
		ranked[i] = models.Candidate{Station: s, DistanceMeters: Distance(s.Lat, s.Lon, lat, lon)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})

	if count < len(ranked) {
		ranked = ranked[:count]
	}
	return ranked
}

// FindNearest returns up to count stations nearest to (lat, lon), nearest first.
func FindNearest(stations []models.Station, lat, lon float64, count int) []models.Station {
	ranked := Rank(stations, lat, lon, count)
	out := make([]models.Station, len(ranked))
	for i, c := range ranked {
		out[i] = c.Station
	}
	return out
}
