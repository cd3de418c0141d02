package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"food-dispatch-service/internal/adapters/manifest"
	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/services"
)

// CycleRunner is the part of services.Dispatcher the HTTP layer needs.
type CycleRunner interface {
	Run(ctx context.Context) (*services.CycleReport, error)
	Latest() (*services.CycleReport, bool)
}

type DispatchHandler struct {
	Dispatcher CycleRunner
}

// RunCycle forces a replan now instead of waiting for the schedule.
func (h *DispatchHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	report, err := h.Dispatcher.Run(r.Context())
	if err != nil {
		var le *domain.InvalidLocationError
		switch {
		case errors.Is(err, services.ErrCycleInProgress):
			writeError(w, r, http.StatusConflict, "dispatch cycle already in progress")
		case errors.Is(err, domain.ErrDuplicateTask), errors.As(err, &le):
			log.Printf("dispatch cycle rejected input: %v", err)
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, context.Canceled):
			writeError(w, r, http.StatusServiceUnavailable, "dispatch cycle cancelled")
		default:
			log.Printf("dispatch cycle failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromCycleReport(report))
}

func (h *DispatchHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	report, ok := h.Dispatcher.Latest()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no dispatch cycle has completed yet")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromCycleReport(report))
}

// Manifest downloads the latest cycle as an XLSX workbook.
func (h *DispatchHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	report, ok := h.Dispatcher.Latest()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no dispatch cycle has completed yet")
		return
	}

	var buf bytes.Buffer
	err := manifest.Write(&buf, manifest.Cycle{
		CycleID:           report.CycleID,
		FinishedAt:        report.FinishedAt,
		Plans:             report.Assignments,
		UnassignedTaskIDs: report.UnassignedTaskIDs,
	})
	if err != nil {
		log.Printf("write manifest failed: cycle_id=%s err=%v", report.CycleID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", manifest.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dispatch-%s.xlsx"`, report.CycleID))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("send manifest failed: cycle_id=%s err=%v", report.CycleID, err)
	}
}
