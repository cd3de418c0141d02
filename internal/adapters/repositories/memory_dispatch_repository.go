package repositories

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"food-dispatch-service/internal/domain"
)

// In-memory task, vehicle and hub store used when no database is
// configured. Reads use the same ordering as the SQL repository: tasks by
// creation time then ID, vehicles and hubs by ID.
type MemoryDispatchRepository struct {
	mu       sync.RWMutex
	tasks    []domain.Task
	vehicles []domain.Vehicle
	hubs     []domain.Hub
}

func NewMemoryDispatchRepository(tasks []domain.Task, vehicles []domain.Vehicle) *MemoryDispatchRepository {
	vs := slices.Clone(vehicles)
	slices.SortStableFunc(vs, func(a, b domain.Vehicle) int { return cmp.Compare(a.ID, b.ID) })
	return &MemoryDispatchRepository{
		tasks:    cloneTasks(tasks),
		vehicles: vs,
	}
}

// NewMemoryDispatchRepositoryFromSeed loads a whole seed dataset.
func NewMemoryDispatchRepositoryFromSeed(d Dataset) *MemoryDispatchRepository {
	m := NewMemoryDispatchRepository(d.Tasks, d.Vehicles)
	m.hubs = slices.Clone(d.Hubs)
	slices.SortStableFunc(m.hubs, func(a, b domain.Hub) int { return cmp.Compare(a.ID, b.ID) })
	return m
}

func compareTasks(a, b domain.Task) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := slices.Clone(tasks)
	for i := range out {
		if out[i].TimeWindow != nil {
			w := *out[i].TimeWindow
			out[i].TimeWindow = &w
		}
	}
	return out
}

func (m *MemoryDispatchRepository) PendingTasks(ctx context.Context) ([]domain.Task, error) {
	return m.ListTasks(ctx, domain.TaskPending)
}

func (m *MemoryDispatchRepository) ListTasks(_ context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, compareTasks)
	return cloneTasks(out), nil
}

func (m *MemoryDispatchRepository) CreateTask(_ context.Context, t domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.taskIndex(t.ID) >= 0 {
		return fmt.Errorf("create task id=%s: %w", t.ID, ErrConflict)
	}
	m.tasks = append(m.tasks, cloneTasks([]domain.Task{t})...)
	return nil
}

func (m *MemoryDispatchRepository) UpdateTaskStatus(_ context.Context, id string, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkTaskTransition(id, status); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	m.tasks[m.taskIndex(id)].Status = status
	return nil
}

func (m *MemoryDispatchRepository) AvailableVehicles(_ context.Context) ([]domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		if v.Status == domain.VehicleAvailable {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MemoryDispatchRepository) ListVehicles(_ context.Context) ([]domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.vehicles), nil
}

func (m *MemoryDispatchRepository) Hubs(_ context.Context) ([]domain.Hub, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.hubs), nil
}

func (m *MemoryDispatchRepository) UpdateVehicleStatus(_ context.Context, id string, status domain.VehicleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.vehicleIndex(id)
	if i < 0 {
		return fmt.Errorf("update vehicle status id=%s: %w", id, ErrNotFound)
	}
	m.vehicles[i].Status = status
	return nil
}

// CommitAssignments validates the whole cycle before applying any change,
// so a conflict leaves the store untouched.
func (m *MemoryDispatchRepository) CommitAssignments(_ context.Context, plans []domain.RoutePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range plans {
		i := m.vehicleIndex(p.VehicleID)
		if i < 0 {
			return fmt.Errorf("commit assignments: vehicle %q: %w", p.VehicleID, ErrNotFound)
		}
		if m.vehicles[i].Status != domain.VehicleAvailable {
			return fmt.Errorf("commit assignments: vehicle %q no longer available: %w", p.VehicleID, ErrConflict)
		}
		for _, s := range p.Stops {
			if err := m.checkTaskTransition(s.ID, domain.TaskAssigned); err != nil {
				return fmt.Errorf("commit assignments: %w", err)
			}
		}
	}

	for _, p := range plans {
		m.vehicles[m.vehicleIndex(p.VehicleID)].Status = domain.VehicleAssigned
		for _, s := range p.Stops {
			m.tasks[m.taskIndex(s.ID)].Status = domain.TaskAssigned
		}
	}
	return nil
}

func (m *MemoryDispatchRepository) checkTaskTransition(id string, to domain.TaskStatus) error {
	i := m.taskIndex(id)
	if i < 0 {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	from := m.tasks[i].Status
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("task %q: %s -> %s: %w", id, from, to, ErrConflict)
	}
	return nil
}

func (m *MemoryDispatchRepository) taskIndex(id string) int {
	return slices.IndexFunc(m.tasks, func(t domain.Task) bool { return t.ID == id })
}

func (m *MemoryDispatchRepository) vehicleIndex(id string) int {
	return slices.IndexFunc(m.vehicles, func(v domain.Vehicle) bool { return v.ID == id })
}
