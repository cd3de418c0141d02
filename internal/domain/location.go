package domain

import (
	"fmt"
	"math"
)

// Immutable geographic point (latitude, longitude) in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// InvalidLocationError reports coordinates outside the WGS-84 range.
type InvalidLocationError struct {
	Lat float64
	Lng float64
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("invalid location lat=%v lng=%v", e.Lat, e.Lng)
}

// Validate rejects NaN and out-of-range coordinates.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) ||
		l.Lat < -90 || l.Lat > 90 ||
		l.Lng < -180 || l.Lng > 180 {
		return &InvalidLocationError{Lat: l.Lat, Lng: l.Lng}
	}
	return nil
}

// Return coordinates as [lng, lat] for external API compatibility.
func (l Location) CoordsToList() []float64 { return []float64{l.Lng, l.Lat} }
