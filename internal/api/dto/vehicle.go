package dto

import "food-dispatch-service/internal/domain"

type VehicleResponse struct {
	ID       string           `json:"id"`
	Location LocationResponse `json:"location"`
	Capacity float64          `json:"capacity"`
	Status   string           `json:"status"`
	Type     string           `json:"type"`
}

type ListVehiclesResponse struct {
	Vehicles []VehicleResponse `json:"vehicles"`
}

func FromVehicle(v domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:       v.ID,
		Location: FromLocation(v.Location),
		Capacity: v.Capacity,
		Status:   string(v.Status),
		Type:     string(v.Type),
	}
}
