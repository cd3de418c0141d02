package dto

import (
	"time"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/services"
)

type PlanStopResponse struct {
	TaskID   string           `json:"task_id"`
	Location LocationResponse `json:"location"`
	Priority string           `json:"priority"`
}

type PlanResponse struct {
	VehicleID            string             `json:"vehicle_id"`
	Pickup               *HubResponse       `json:"pickup,omitempty"`
	Status               string             `json:"status"`
	Quality              string             `json:"quality"`
	CreatedAt            time.Time          `json:"created_at"`
	TotalDistanceMeters  float64            `json:"total_distance_meters"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
	Stops                []PlanStopResponse `json:"stops"`
}

type RiskResponse struct {
	TaskID       string  `json:"task_id"`
	HoursOverdue float64 `json:"hours_overdue"`
}

type CycleResponse struct {
	CycleID           string              `json:"cycle_id"`
	StartedAt         time.Time           `json:"started_at"`
	FinishedAt        time.Time           `json:"finished_at"`
	Plans             []PlanResponse      `json:"plans"`
	UnassignedTaskIDs []string            `json:"unassigned_task_ids"`
	EstimatedTours    int                 `json:"estimated_tours"`
	SLARisks          []RiskResponse      `json:"sla_risks"`
	Efficiency        services.Efficiency `json:"efficiency"`
}

func FromPlan(p domain.RoutePlan) PlanResponse {
	stops := make([]PlanStopResponse, 0, len(p.Stops))
	for _, s := range p.Stops {
		stops = append(stops, PlanStopResponse{
			TaskID:   s.ID,
			Location: FromLocation(s.Location),
			Priority: string(s.Priority),
		})
	}
	var pickup *HubResponse
	if p.Pickup != nil {
		h := FromHub(*p.Pickup)
		pickup = &h
	}
	return PlanResponse{
		VehicleID:            p.VehicleID,
		Pickup:               pickup,
		Status:               string(p.Status),
		Quality:              string(p.Quality),
		CreatedAt:            p.CreatedAt,
		TotalDistanceMeters:  p.TotalDistanceMeters,
		TotalDurationSeconds: p.TotalDurationSeconds,
		Stops:                stops,
	}
}

// PlanEventResponse is one message on the plan stream.
type PlanEventResponse struct {
	PublishedAt time.Time      `json:"published_at"`
	Plans       []PlanResponse `json:"plans"`
}

func FromPlanEvent(evt domain.PlanEvent) PlanEventResponse {
	res := PlanEventResponse{PublishedAt: evt.PublishedAt, Plans: make([]PlanResponse, 0, len(evt.Plans))}
	for _, p := range evt.Plans {
		res.Plans = append(res.Plans, FromPlan(p))
	}
	return res
}

func FromCycleReport(r *services.CycleReport) CycleResponse {
	res := CycleResponse{
		CycleID:           r.CycleID,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		Plans:             make([]PlanResponse, 0, len(r.Assignments)),
		UnassignedTaskIDs: r.UnassignedTaskIDs,
		EstimatedTours:    r.EstimatedTours,
		SLARisks:          make([]RiskResponse, 0, len(r.SLARisks)),
		Efficiency:        r.Efficiency,
	}
	if res.UnassignedTaskIDs == nil {
		res.UnassignedTaskIDs = []string{}
	}

	for _, p := range r.Assignments {
		res.Plans = append(res.Plans, FromPlan(p))
	}

	for _, risk := range r.SLARisks {
		res.SLARisks = append(res.SLARisks, RiskResponse{TaskID: risk.TaskID, HoursOverdue: risk.HoursOverdue})
	}
	return res
}
