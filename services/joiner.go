package services

import (
	"ettu-nearby/models"
	"ettu-nearby/utils"
)

// JoinResult is the flat catalog plus the counts of stops that did not make it.
type JoinResult struct {
	Stations   []models.Station
	Unjoinable int
	Duplicates int
}

// Joiner resolves stops to their route groups and districts.
type Joiner struct {
	logger *utils.Logger
}

// NewJoiner creates a Joiner with the given logger.
func NewJoiner(logger *utils.Logger) *Joiner {
	return &Joiner{logger: logger}
}

// Join builds one Station per distinct stop URL.
//
// A stop is matched to route groups by URL equality with the group's link,
// and a district is taken from the first matching group whose parent_url
// resolves. Stops without a group or without a resolvable district are
// dropped and counted. Join never fails.
func (j *Joiner) Join(levels *models.Levels) *JoinResult {
	districts := make(map[string]models.District, len(levels.Districts))
	for _, d := range levels.Districts {
		if _, ok := districts[d.Link]; !ok {
			districts[d.Link] = d
		}
	}

	groups := make(map[string][]models.RouteGroup)
	for _, g := range levels.RouteGroups {
		groups[g.Link] = append(groups[g.Link], g)
	}

	res := &JoinResult{Stations: make([]models.Station, 0, len(levels.Stops))}
	seen := utils.NewURLSet()

	for _, s := range levels.Stops {
		if !seen.Add(s.URL) {
			res.Duplicates++
			j.logger.Debug("[joiner] Duplicate stop skipped: %s", s.URL)
			continue
		}

		matched := groups[s.URL]
		if len(matched) == 0 {
			res.Unjoinable++
			j.logger.Debug("[joiner] No route group links to %s", s.URL)
			continue
		}

		var district models.District
		found := false
		for _, g := range matched {
			if d, ok := districts[g.ParentURL]; ok {
				district, found = d, true
				break
			}
		}
		if !found {
			res.Unjoinable++
			j.logger.Debug("[joiner] No district resolves for %s", s.URL)
			continue
		}

		names := make([]string, len(matched))
		for i, g := range matched {
			names[i] = g.Name
		}

		res.Stations = append(res.Stations, models.Station{
			Letter:    district.Name,
			Names:     names,
			LetterURL: district.Link,
			URL:       s.URL,
			Lat:       s.Lat,
			Lon:       s.Lon,
		})
	}

	if res.Unjoinable > 0 || res.Duplicates > 0 {
		j.logger.Warn("[joiner] Joined %d stations (unjoinable %d, duplicates %d)",
			len(res.Stations), res.Unjoinable, res.Duplicates)
	} else {
		j.logger.Info("[joiner] Joined %d stations", len(res.Stations))
	}
	return res
}
