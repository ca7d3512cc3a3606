package storage

import "ettu-nearby/models"

// StationWriter is the interface any catalog export backend must satisfy.
type StationWriter interface {
	Write(stations []models.Station) error
	Close() error
}
