package api

import (
	"fmt"
	"math"
)

// CoordinateError describes a rejected query coordinate.
type CoordinateError struct {
	Field   string
	Value   float64
	Message string
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s: %s (value: %.6f)", e.Field, e.Message, e.Value)
}

func validateRange(v, min, max float64, field string) error {
	switch {
	case math.IsNaN(v):
		return &CoordinateError{Field: field, Value: v, Message: "NaN is not allowed"}
	case math.IsInf(v, 0):
		return &CoordinateError{Field: field, Value: v, Message: "infinity is not allowed"}
	case v < min || v > max:
		return &CoordinateError{Field: field, Value: v, Message: fmt.Sprintf("must be between %g and %g", min, max)}
	}
	return nil
}

// ValidateCoordinatePair checks that lat and lon are finite and in range.
func ValidateCoordinatePair(lat, lon float64) error {
	if err := validateRange(lat, -90, 90, "lat"); err != nil {
		return err
	}
	return validateRange(lon, -180, 180, "lon")
}
