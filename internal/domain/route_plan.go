package domain

import "time"

type PlanStatus string

const (
	PlanOptimized  PlanStatus = "optimized"
	PlanDispatched PlanStatus = "dispatched"
	PlanActive     PlanStatus = "active"
	PlanCompleted  PlanStatus = "completed"
)

// Where a tour's ordering and metrics came from.
type TourQuality string

const (
	// QualityProvider means a road-network optimization service built the tour.
	QualityProvider TourQuality = "provider"
	// QualityEstimated means the nearest-neighbor heuristic built the tour.
	QualityEstimated TourQuality = "estimated"
)

// Ephemeral batch of tasks considered together for one vehicle.
type Cluster struct {
	Tasks  []Task
	Center Location
}

// Represents the planned route for a single vehicle.
// A RoutePlan is produced by a dispatch cycle and owned afterwards by the
// execution layer.
type RoutePlan struct {
	VehicleID            string      `json:"vehicle_id"`
	Pickup               *Hub        `json:"pickup,omitempty"`
	Stops                []Task      `json:"stops"`
	TotalDistanceMeters  float64     `json:"total_distance_meters"`
	TotalDurationSeconds float64     `json:"total_duration_seconds"`
	CreatedAt            time.Time   `json:"created_at"`
	Status               PlanStatus  `json:"status"`
	Quality              TourQuality `json:"quality"`
}

// Transient score of one candidate vehicle for a task or cluster.
type AssignmentScore struct {
	VehicleID       string
	TaskOrClusterID string
	Score           float64
}

// Risk is a non-completed task older than the SLA threshold.
type Risk struct {
	TaskID       string  `json:"task_id"`
	HoursOverdue float64 `json:"hours_overdue"`
}

// PlanEvent announces the plans committed by one dispatch cycle.
type PlanEvent struct {
	PublishedAt time.Time   `json:"published_at"`
	Plans       []RoutePlan `json:"plans"`
}
