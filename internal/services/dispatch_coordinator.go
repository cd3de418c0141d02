package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/geo"
)

// DefaultMaxPerCluster bounds how many stops one vehicle receives per cycle.
const DefaultMaxPerCluster = 3

// AssignmentMode selects what the scorer matches against vehicles.
type AssignmentMode string

const (
	// AssignByCluster matches one vehicle to each cluster as a unit.
	AssignByCluster AssignmentMode = "cluster"
	// AssignByTask matches each task individually, one vehicle per task.
	AssignByTask AssignmentMode = "task"
)

func ParseAssignmentMode(s string) (AssignmentMode, error) {
	switch AssignmentMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AssignByCluster:
		return AssignByCluster, nil
	case AssignByTask:
		return AssignByTask, nil
	}
	return "", fmt.Errorf("parse assignment mode: unknown value %q", s)
}

// CycleResult is the outcome of one dispatch cycle. Nothing in it has been
// committed to the task or vehicle sources yet.
type CycleResult struct {
	Assignments     []domain.RoutePlan `json:"assignments"`
	UnassignedTasks []domain.Task      `json:"unassigned_tasks"`
}

type CoordinatorOptions struct {
	MaxPerCluster int
	Mode          AssignmentMode
	// Now stamps plans; defaults to time.Now.
	Now func() time.Time
}

// DispatchCoordinator turns pending tasks and available vehicles into
// route plans. It holds no state between cycles.
type DispatchCoordinator struct {
	clusters      *ClusterEngine
	tours         *TourBuilder
	maxPerCluster int
	mode          AssignmentMode
	now           func() time.Time
}

func NewDispatchCoordinator(clusters *ClusterEngine, tours *TourBuilder, opts CoordinatorOptions) *DispatchCoordinator {
	c := &DispatchCoordinator{
		clusters:      clusters,
		tours:         tours,
		maxPerCluster: opts.MaxPerCluster,
		mode:          opts.Mode,
		now:           opts.Now,
	}
	if c.maxPerCluster <= 0 {
		c.maxPerCluster = DefaultMaxPerCluster
	}
	if c.mode == "" {
		c.mode = AssignByCluster
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// RunCycle assigns pending tasks to available vehicles.
//
// Clusters are processed in order and each matched vehicle leaves the pool
// for the rest of the cycle. Tasks without a match are reported as
// unassigned. The inputs are never mutated; the returned plans carry copies
// of the tasks with status assigned.
//
// Invalid coordinates or duplicate task IDs fail the whole cycle, as does
// cancellation of ctx. In every error case no partial result is returned.
func (c *DispatchCoordinator) RunCycle(
	ctx context.Context,
	tasks []domain.Task,
	vehicles []domain.Vehicle,
) (CycleResult, error) {
	return c.RunCycleWithHubs(ctx, tasks, vehicles, nil)
}

// RunCycleWithHubs is RunCycle where every vehicle first loads at the hub
// nearest its cluster center. With no hubs, vehicles drive straight to
// their drops.
func (c *DispatchCoordinator) RunCycleWithHubs(
	ctx context.Context,
	tasks []domain.Task,
	vehicles []domain.Vehicle,
	hubs []domain.Hub,
) (CycleResult, error) {
	pending := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == domain.TaskPending {
			pending = append(pending, t)
		}
	}

	pool := make([]domain.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status == domain.VehicleAvailable {
			pool = append(pool, v)
		}
	}

	if err := validateCycleInput(tasks, pending, pool, hubs); err != nil {
		return CycleResult{}, fmt.Errorf("run cycle: %w", err)
	}

	now := c.now()
	clusters := c.clusters.Cluster(pending, c.maxPerCluster)

	result := CycleResult{
		Assignments:     []domain.RoutePlan{},
		UnassignedTasks: []domain.Task{},
	}

	for _, cl := range clusters {
		if err := ctx.Err(); err != nil {
			return CycleResult{}, fmt.Errorf("run cycle: %w", err)
		}

		switch c.mode {
		case AssignByTask:
			for _, t := range cl.Tasks {
				matched, err := c.assign(ctx, t, []domain.Task{t}, &pool, hubs, now, &result)
				if err != nil {
					return CycleResult{}, err
				}
				if !matched {
					result.UnassignedTasks = append(result.UnassignedTasks, t)
				}
			}
		default:
			matched, err := c.assign(ctx, clusterUnit(cl), cl.Tasks, &pool, hubs, now, &result)
			if err != nil {
				return CycleResult{}, err
			}
			if !matched {
				result.UnassignedTasks = append(result.UnassignedTasks, cl.Tasks...)
			}
		}
	}

	log.Printf(
		"op=run_cycle pending=%d available=%d clusters=%d plans=%d unassigned=%d",
		len(pending), len(pool)+len(result.Assignments), len(clusters),
		len(result.Assignments), len(result.UnassignedTasks),
	)

	return result, nil
}

// assign matches unit against the pool and, on success, plans stops for the
// chosen vehicle and removes it from the pool.
func (c *DispatchCoordinator) assign(
	ctx context.Context,
	unit domain.Task,
	stops []domain.Task,
	pool *[]domain.Vehicle,
	hubs []domain.Hub,
	now time.Time,
	result *CycleResult,
) (bool, error) {
	best := SelectBestVehicle(unit, *pool)
	if best == nil {
		return false, nil
	}
	vehicle := *best

	var (
		tour Tour
		err  error
	)
	hub := NearestHub(unit.Location, hubs)
	if hub != nil {
		tour, err = c.tours.BuildPickupTour(ctx, vehicle.Location, hub.Location, stops, vehicle.Profile())
	} else {
		tour, err = c.tours.BuildTour(ctx, vehicle.Location, stops, vehicle.Profile())
	}
	if err != nil {
		return false, fmt.Errorf("run cycle: vehicle %q: %w", vehicle.ID, err)
	}

	planned := make([]domain.Task, len(tour.OrderedStops))
	for i, t := range tour.OrderedStops {
		t.Status = domain.TaskAssigned
		planned[i] = t
	}

	result.Assignments = append(result.Assignments, domain.RoutePlan{
		VehicleID:            vehicle.ID,
		Pickup:               hub,
		Stops:                planned,
		TotalDistanceMeters:  tour.TotalDistanceMeters,
		TotalDurationSeconds: tour.TotalDurationSeconds,
		CreatedAt:            now,
		Status:               domain.PlanOptimized,
		Quality:              tour.Quality,
	})

	*pool = slices.DeleteFunc(*pool, func(v domain.Vehicle) bool { return v.ID == vehicle.ID })
	return true, nil
}

// clusterUnit collapses a cluster into a single scoring task located at the
// cluster center, carrying the summed capacity and the highest priority.
func clusterUnit(cl domain.Cluster) domain.Task {
	unit := domain.Task{
		ID:       cl.Tasks[0].ID,
		Location: cl.Center,
		Priority: domain.PriorityLow,
		Status:   domain.TaskPending,
	}
	for _, t := range cl.Tasks {
		unit.RequiredCapacity += t.RequiredCapacity
		if t.Priority.Rank() > unit.Priority.Rank() {
			unit.Priority = t.Priority
		}
	}
	return unit
}

// NearestHub returns a copy of the hub closest to center, the first listed
// winning ties, or nil when hubs is empty.
func NearestHub(center domain.Location, hubs []domain.Hub) *domain.Hub {
	if len(hubs) == 0 {
		return nil
	}
	best := 0
	bestDist := geo.Distance(center, hubs[0].Location)
	for i := 1; i < len(hubs); i++ {
		if d := geo.Distance(center, hubs[i].Location); d < bestDist {
			best = i
			bestDist = d
		}
	}
	hub := hubs[best]
	return &hub
}

func validateCycleInput(all, pending []domain.Task, pool []domain.Vehicle, hubs []domain.Hub) error {
	seen := make(map[string]struct{}, len(all))
	for _, t := range all {
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("task %q: %w", t.ID, domain.ErrDuplicateTask)
		}
		seen[t.ID] = struct{}{}
	}

	for _, t := range pending {
		if err := t.Location.Validate(); err != nil {
			return fmt.Errorf("task %q: %w", t.ID, err)
		}
	}
	for _, v := range pool {
		if err := v.Location.Validate(); err != nil {
			return fmt.Errorf("vehicle %q: %w", v.ID, err)
		}
	}
	for _, h := range hubs {
		if err := h.Location.Validate(); err != nil {
			return fmt.Errorf("hub %q: %w", h.ID, err)
		}
	}
	return nil
}
