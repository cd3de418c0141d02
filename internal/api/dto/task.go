package dto

import (
	"time"

	"food-dispatch-service/internal/domain"
)

type LocationRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type TimeWindowRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

// CreateTaskRequest accepts either a location or an address to geocode.
type CreateTaskRequest struct {
	ID               string             `json:"id" validate:"omitempty,max=64"`
	Location         *LocationRequest   `json:"location" validate:"required_without=Address"`
	Address          string             `json:"address" validate:"required_without=Location,max=256"`
	RequiredCapacity float64            `json:"required_capacity" validate:"gte=0"`
	Priority         string             `json:"priority" validate:"omitempty,oneof=low normal medium high critical"`
	Urgency          *float64           `json:"urgency" validate:"omitempty,gte=0,lte=100"`
	TimeWindow       *TimeWindowRequest `json:"time_window"`
}

type LocationResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TaskResponse struct {
	ID               string             `json:"id"`
	Location         LocationResponse   `json:"location"`
	RequiredCapacity float64            `json:"required_capacity"`
	Priority         string             `json:"priority"`
	Status           string             `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	TimeWindow       *domain.TimeWindow `json:"time_window,omitempty"`
}

type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

func FromLocation(l domain.Location) LocationResponse {
	return LocationResponse{Lat: l.Lat, Lng: l.Lng}
}

func FromTask(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:               t.ID,
		Location:         FromLocation(t.Location),
		RequiredCapacity: t.RequiredCapacity,
		Priority:         string(t.Priority),
		Status:           string(t.Status),
		CreatedAt:        t.CreatedAt,
		TimeWindow:       t.TimeWindow,
	}
}
