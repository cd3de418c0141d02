package handlers

import (
	"log"
	"net/http"

	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/ports"
)

// VehicleHandler exposes read-only fleet state.
type VehicleHandler struct {
	Repo ports.VehicleRepository
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	vehicles, err := h.Repo.ListVehicles(r.Context())
	if err != nil {
		log.Printf("list vehicles failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListVehiclesResponse{Vehicles: make([]dto.VehicleResponse, 0, len(vehicles))}
	for _, v := range vehicles {
		res.Vehicles = append(res.Vehicles, dto.FromVehicle(v))
	}
	writeJSON(w, r, http.StatusOK, res)
}
