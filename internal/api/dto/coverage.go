package dto

type RisksResponse struct {
	SLAHours float64        `json:"sla_hours"`
	Risks    []RiskResponse `json:"risks"`
}

type AreaRequest struct {
	Center   *LocationRequest `json:"center" validate:"required"`
	RadiusKm float64          `json:"radius_km" validate:"gt=0,lte=500"`
	Segments int              `json:"segments" validate:"omitempty,gte=3,lte=360"`
}

type AreaResponse struct {
	Polygon []LocationResponse `json:"polygon"`
	TaskIDs []string           `json:"task_ids"`
}
