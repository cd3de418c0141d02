package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"food-dispatch-service/internal/api/handlers"
	"food-dispatch-service/internal/platform/metrics"
	"food-dispatch-service/internal/ports"
)

// Deps are the collaborators the HTTP surface needs. Geocoder may be nil.
type Deps struct {
	Tasks      ports.TaskRepository
	Vehicles   ports.VehicleRepository
	// Hubs backs GET /hubs; nil disables the route.
	Hubs       ports.HubSource
	Geocoder   ports.Geocoder
	Dispatcher handlers.CycleRunner
	// Plans feeds the websocket plan stream; nil disables the route.
	Plans      handlers.PlanSubscriber
	SLAHours   float64
	Now        func() time.Time
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	taskHandler := &handlers.TaskHandler{Repo: deps.Tasks, Geocoder: deps.Geocoder, Now: deps.Now}
	vehicleHandler := &handlers.VehicleHandler{Repo: deps.Vehicles}
	dispatchHandler := &handlers.DispatchHandler{Dispatcher: deps.Dispatcher}
	coverageHandler := &handlers.CoverageHandler{Tasks: deps.Tasks, SLAHours: deps.SLAHours, Now: deps.Now}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/tasks", taskHandler.Tasks)
	mux.HandleFunc("/vehicles", vehicleHandler.List)
	mux.HandleFunc("/dispatch/cycles", dispatchHandler.RunCycle)
	mux.HandleFunc("/dispatch/cycles/latest", dispatchHandler.Latest)
	mux.HandleFunc("/dispatch/cycles/latest/manifest.xlsx", dispatchHandler.Manifest)
	mux.HandleFunc("/coverage/risks", coverageHandler.Risks)
	mux.HandleFunc("/areas", coverageHandler.Area)
	if deps.Hubs != nil {
		hubHandler := &handlers.HubHandler{Source: deps.Hubs}
		mux.HandleFunc("/hubs", hubHandler.List)
	}
	if deps.Plans != nil {
		streamHandler := &handlers.StreamHandler{Hub: deps.Plans}
		mux.HandleFunc("/dispatch/stream", streamHandler.Plans)
	}

	return requestIDMiddleware(metricsMiddleware(mux, loggingMiddleware(mux)))
}
