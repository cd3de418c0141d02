package handlers

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/geo"
	"food-dispatch-service/internal/ports"
	"food-dispatch-service/internal/services"
)

// CoverageHandler answers SLA and affected-area queries over open tasks.
type CoverageHandler struct {
	Tasks    ports.TaskRepository
	SLAHours float64
	Now      func() time.Time
}

func (h *CoverageHandler) Risks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	slaHours := h.SLAHours
	if slaHours <= 0 {
		slaHours = services.DefaultSLAHours
	}
	if raw := r.URL.Query().Get("sla_hours"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, r, http.StatusBadRequest, "sla_hours must be a non-negative number")
			return
		}
		slaHours = v
	}

	tasks, err := h.Tasks.ListTasks(r.Context(), "")
	if err != nil {
		log.Printf("list tasks failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	risks := services.FindSLARisks(tasks, slaHours, now())
	res := dto.RisksResponse{SLAHours: slaHours, Risks: make([]dto.RiskResponse, 0, len(risks))}
	for _, risk := range risks {
		res.Risks = append(res.Risks, dto.RiskResponse{TaskID: risk.TaskID, HoursOverdue: risk.HoursOverdue})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Area returns the polygon approximating the requested circle and the open
// tasks inside it.
func (h *CoverageHandler) Area(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req dto.AreaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	center := domain.Location{Lat: req.Center.Lat, Lng: req.Center.Lng}
	polygon := geo.CirclePolygon(center, req.RadiusKm, req.Segments)

	tasks, err := h.Tasks.ListTasks(r.Context(), "")
	if err != nil {
		log.Printf("list tasks failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.AreaResponse{
		Polygon: make([]dto.LocationResponse, 0, len(polygon)),
		TaskIDs: []string{},
	}
	for _, p := range polygon {
		res.Polygon = append(res.Polygon, dto.FromLocation(p))
	}
	for _, t := range tasks {
		if t.Status == domain.TaskCompleted {
			continue
		}
		if geo.PointInPolygon(t.Location, polygon) {
			res.TaskIDs = append(res.TaskIDs, t.ID)
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}
