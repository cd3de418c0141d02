package dto

import "food-dispatch-service/internal/domain"

type HubResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name,omitempty"`
	Location LocationResponse `json:"location"`
}

type ListHubsResponse struct {
	Hubs []HubResponse `json:"hubs"`
}

func FromHub(h domain.Hub) HubResponse {
	return HubResponse{ID: h.ID, Name: h.Name, Location: FromLocation(h.Location)}
}
