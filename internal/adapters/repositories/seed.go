package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"food-dispatch-service/internal/domain"
)

type TaskSeed struct {
	ID               string          `json:"id"`
	Location         domain.Location `json:"location"`
	RequiredCapacity float64         `json:"required_capacity"`
	Priority         string          `json:"priority"`
	// Urgency is a 0-100 score used when Priority is empty.
	Urgency *float64 `json:"urgency,omitempty"`
	// AgeMinutes backdates CreatedAt relative to load time.
	AgeMinutes float64            `json:"age_minutes"`
	Status     domain.TaskStatus  `json:"status"`
	TimeWindow *domain.TimeWindow `json:"time_window,omitempty"`
}

type VehicleSeed struct {
	ID       string               `json:"id"`
	Location domain.Location      `json:"location"`
	Capacity float64              `json:"capacity"`
	Status   domain.VehicleStatus `json:"status"`
	Type     domain.VehicleType   `json:"type"`
}

type HubSeed struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Location domain.Location `json:"location"`
}

type Seed struct {
	Tasks    []TaskSeed    `json:"tasks"`
	Vehicles []VehicleSeed `json:"vehicles"`
	Hubs     []HubSeed     `json:"hubs"`
}

// Dataset is a validated seed ready to load into a repository.
type Dataset struct {
	Tasks    []domain.Task
	Vehicles []domain.Vehicle
	Hubs     []domain.Hub
}

// LoadSeed reads and validates a seed file, stamping task creation times
// relative to now.
func LoadSeed(jsonPath string, now time.Time) (Dataset, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return Dataset{}, fmt.Errorf("load seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return Dataset{}, fmt.Errorf("load seed: parse json: %w", err)
	}

	tasks := make([]domain.Task, 0, len(data.Tasks))
	seen := make(map[string]struct{}, len(data.Tasks))
	for i, item := range data.Tasks {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return Dataset{}, fmt.Errorf("load seed: task at index %d: id cannot be empty", i+1)
		}
		if _, ok := seen[id]; ok {
			return Dataset{}, fmt.Errorf("load seed: task %q: %w", id, domain.ErrDuplicateTask)
		}
		seen[id] = struct{}{}

		if err := item.Location.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("load seed: task %q: %w", id, err)
		}

		priority, err := domain.ParsePriority(item.Priority)
		if err != nil {
			return Dataset{}, fmt.Errorf("load seed: task %q: %w", id, err)
		}
		if item.Priority == "" && item.Urgency != nil {
			priority = domain.PriorityFromUrgency(*item.Urgency)
		}

		status := item.Status
		if status == "" {
			status = domain.TaskPending
		}

		tasks = append(tasks, domain.Task{
			ID:               id,
			Location:         item.Location,
			RequiredCapacity: item.RequiredCapacity,
			Priority:         priority,
			CreatedAt:        now.Add(-time.Duration(item.AgeMinutes * float64(time.Minute))),
			Status:           status,
			TimeWindow:       item.TimeWindow,
		})
	}

	vehicles := make([]domain.Vehicle, 0, len(data.Vehicles))
	for i, item := range data.Vehicles {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return Dataset{}, fmt.Errorf("load seed: vehicle at index %d: id cannot be empty", i+1)
		}
		if err := item.Location.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("load seed: vehicle %q: %w", id, err)
		}

		status := item.Status
		if status == "" {
			status = domain.VehicleAvailable
		}
		vtype := item.Type
		if vtype == "" {
			vtype = domain.VehicleCar
		}

		vehicles = append(vehicles, domain.Vehicle{
			ID:       id,
			Location: item.Location,
			Capacity: item.Capacity,
			Status:   status,
			Type:     vtype,
		})
	}

	hubs := make([]domain.Hub, 0, len(data.Hubs))
	seenHubs := make(map[string]struct{}, len(data.Hubs))
	for i, item := range data.Hubs {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return Dataset{}, fmt.Errorf("load seed: hub at index %d: id cannot be empty", i+1)
		}
		if _, ok := seenHubs[id]; ok {
			return Dataset{}, fmt.Errorf("load seed: hub %q is listed twice", id)
		}
		seenHubs[id] = struct{}{}
		if err := item.Location.Validate(); err != nil {
			return Dataset{}, fmt.Errorf("load seed: hub %q: %w", id, err)
		}
		hubs = append(hubs, domain.Hub{ID: id, Name: item.Name, Location: item.Location})
	}

	return Dataset{Tasks: tasks, Vehicles: vehicles, Hubs: hubs}, nil
}
