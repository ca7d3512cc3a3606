package services

import (
	"ettu-nearby/models"
	"ettu-nearby/utils"
)

// Catalog is the immutable station list built at startup, with the counts of
// records that were left out.
type Catalog struct {
	Stations    []models.Station
	CrawlErrors int
	Unjoinable  int
	Duplicates  int
}

// BuildCatalog loads the crawler output at path and joins it into stations.
// Only a *DataIntegrityError or an I/O error stops the build.
func BuildCatalog(path string, logger *utils.Logger) (*Catalog, error) {
	levels, err := NewLoader(logger).LoadFile(path)
	if err != nil {
		return nil, err
	}
	joined := NewJoiner(logger).Join(levels)
	return &Catalog{
		Stations:    joined.Stations,
		CrawlErrors: levels.CrawlErrors,
		Unjoinable:  joined.Unjoinable,
		Duplicates:  joined.Duplicates,
	}, nil
}
