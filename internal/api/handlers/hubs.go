package handlers

import (
	"log"
	"net/http"

	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/ports"
)

// HubHandler lists the distribution centers vehicles load at.
type HubHandler struct {
	Source ports.HubSource
}

func (h *HubHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	hubs, err := h.Source.Hubs(r.Context())
	if err != nil {
		log.Printf("list hubs failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListHubsResponse{Hubs: make([]dto.HubResponse, 0, len(hubs))}
	for _, hub := range hubs {
		res.Hubs = append(res.Hubs, dto.FromHub(hub))
	}
	writeJSON(w, r, http.StatusOK, res)
}
