package services

import "food-dispatch-service/internal/domain"

// Efficiency summarises the plans of one cycle.
type Efficiency struct {
	TotalStops           int     `json:"total_stops"`
	TotalDistanceMeters  float64 `json:"total_distance_meters"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
	StopsPerKm           float64 `json:"stops_per_km"`
	StopsPerHour         float64 `json:"stops_per_hour"`
	AvgKmPerStop         float64 `json:"avg_km_per_stop"`
}

// SummarizeEfficiency aggregates plans. Ratios with a zero denominator are
// reported as zero.
func SummarizeEfficiency(plans []domain.RoutePlan) Efficiency {
	var e Efficiency
	for _, p := range plans {
		e.TotalStops += len(p.Stops)
		e.TotalDistanceMeters += p.TotalDistanceMeters
		e.TotalDurationSeconds += p.TotalDurationSeconds
	}

	km := e.TotalDistanceMeters / 1000
	hours := e.TotalDurationSeconds / 3600
	if km > 0 {
		e.StopsPerKm = float64(e.TotalStops) / km
	}
	if hours > 0 {
		e.StopsPerHour = float64(e.TotalStops) / hours
	}
	if e.TotalStops > 0 {
		e.AvgKmPerStop = km / float64(e.TotalStops)
	}
	return e
}
