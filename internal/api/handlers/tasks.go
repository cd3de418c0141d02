package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"food-dispatch-service/internal/adapters/geocode"
	"food-dispatch-service/internal/adapters/repositories"
	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/ports"
)

// TaskHandler exposes task listing and intake.
type TaskHandler struct {
	Repo ports.TaskRepository
	// Geocoder resolves addresses on intake; nil rejects address-only tasks.
	Geocoder ports.Geocoder
	Now      func() time.Time
}

func (h *TaskHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", domain.TaskPending, domain.TaskAssigned, domain.TaskInProgress, domain.TaskCompleted:
	default:
		writeError(w, r, http.StatusBadRequest, "status must be one of pending, assigned, in_progress, completed")
		return
	}

	tasks, err := h.Repo.ListTasks(r.Context(), status)
	if err != nil {
		log.Printf("list tasks failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListTasksResponse{Tasks: make([]dto.TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		res.Tasks = append(res.Tasks, dto.FromTask(t))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Priority == "" && req.Urgency != nil {
		priority = domain.PriorityFromUrgency(*req.Urgency)
	}

	loc, ok := h.resolveLocation(w, r, req)
	if !ok {
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	task := domain.Task{
		ID:               strings.TrimSpace(req.ID),
		Location:         loc,
		RequiredCapacity: req.RequiredCapacity,
		Priority:         priority,
		CreatedAt:        now().UTC(),
		Status:           domain.TaskPending,
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if req.TimeWindow != nil {
		task.TimeWindow = &domain.TimeWindow{Start: req.TimeWindow.Start, End: req.TimeWindow.End}
	}

	if err := h.Repo.CreateTask(r.Context(), task); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			writeError(w, r, http.StatusConflict, "task already exists")
			return
		}
		log.Printf("create task failed: id=%s err=%v", task.ID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.FromTask(task))
}

// resolveLocation prefers an explicit location and geocodes the address
// otherwise.
func (h *TaskHandler) resolveLocation(w http.ResponseWriter, r *http.Request, req dto.CreateTaskRequest) (domain.Location, bool) {
	if req.Location != nil {
		return domain.Location{Lat: req.Location.Lat, Lng: req.Location.Lng}, true
	}

	if h.Geocoder == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "address geocoding is not configured; send a location")
		return domain.Location{}, false
	}

	loc, err := h.Geocoder.Geocode(r.Context(), req.Address)
	switch {
	case err == nil:
	case errors.Is(err, geocode.ErrNoResult):
		writeError(w, r, http.StatusUnprocessableEntity, "address not found")
		return domain.Location{}, false
	default:
		log.Printf("geocode failed: address=%q err=%v", req.Address, err)
		writeError(w, r, http.StatusBadGateway, "geocoding failed")
		return domain.Location{}, false
	}

	if err := loc.Validate(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "geocoder returned an invalid location")
		return domain.Location{}, false
	}
	return loc, true
}
