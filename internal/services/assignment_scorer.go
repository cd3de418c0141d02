package services

import (
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/geo"
)

const (
	baseScore           = 100.0
	shortCapacityFactor = 0.5
	urgencyBonus        = 20.0
)

// ScoreAssignment rates how well vehicle fits task. Higher is better.
//
//	score = (100 - distanceKm) * capacityFactor + urgencyBonus
//
// capacityFactor is 1 when the vehicle can carry the task and 0.5 otherwise.
// The score is not clamped, so vehicles over 100 km away score negative and
// still rank against each other.
func ScoreAssignment(task domain.Task, vehicle domain.Vehicle) float64 {
	capacityFactor := 1.0
	if vehicle.Capacity < task.RequiredCapacity {
		capacityFactor = shortCapacityFactor
	}

	bonus := 0.0
	if task.Priority.Urgent() {
		bonus = urgencyBonus
	}

	return (baseScore-geo.DistanceKm(task.Location, vehicle.Location))*capacityFactor + bonus
}

// ScoreCandidates scores every available vehicle for task, in input order.
func ScoreCandidates(task domain.Task, vehicles []domain.Vehicle) []domain.AssignmentScore {
	scores := make([]domain.AssignmentScore, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status != domain.VehicleAvailable {
			continue
		}
		scores = append(scores, domain.AssignmentScore{
			VehicleID:       v.ID,
			TaskOrClusterID: task.ID,
			Score:           ScoreAssignment(task, v),
		})
	}
	return scores
}

// SelectBestVehicle returns the available vehicle with the strictly greatest
// score, the first one on ties. It returns nil when no vehicle is available;
// that is a normal outcome, not an error.
func SelectBestVehicle(task domain.Task, vehicles []domain.Vehicle) *domain.Vehicle {
	var best *domain.Vehicle
	bestScore := 0.0

	for i := range vehicles {
		v := &vehicles[i]
		if v.Status != domain.VehicleAvailable {
			continue
		}
		s := ScoreAssignment(task, *v)
		if best == nil || s > bestScore {
			best = v
			bestScore = s
		}
	}
	return best
}
