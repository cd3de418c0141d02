package ports

import (
	"context"

	"food-dispatch-service/internal/domain"
)

// Port: pull-based supply of tasks plus the status write-back callback.
type TaskSource interface {
	// Retrieve tasks still awaiting assignment.
	PendingTasks(ctx context.Context) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error
}

// Port: pull-based supply of vehicles plus the status write-back callback.
type VehicleSource interface {
	// Retrieve vehicles eligible for new assignments.
	AvailableVehicles(ctx context.Context) ([]domain.Vehicle, error)
	UpdateVehicleStatus(ctx context.Context, id string, status domain.VehicleStatus) error
}

// Port: distribution centers that vehicles load at before their drops.
type HubSource interface {
	Hubs(ctx context.Context) ([]domain.Hub, error)
}

// Read and intake operations used by the HTTP surface.
type TaskRepository interface {
	TaskSource
	ListTasks(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) error
}

type VehicleRepository interface {
	VehicleSource
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// Optional capability: commit a whole cycle's status changes atomically.
// Sources that implement it are committed in one step instead of through
// per-item status callbacks.
type AssignmentCommitter interface {
	CommitAssignments(ctx context.Context, plans []domain.RoutePlan) error
}
