package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/obs"
)

const upsertTaskQuery = `
	INSERT INTO tasks (id, lat, lng, required_capacity, priority, status, created_at, window_start, window_end)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		required_capacity = EXCLUDED.required_capacity,
		priority = EXCLUDED.priority,
		status = EXCLUDED.status,
		created_at = EXCLUDED.created_at,
		window_start = EXCLUDED.window_start,
		window_end = EXCLUDED.window_end;
	`

const selectTasksQuery = `
	SELECT id, lat, lng, required_capacity, priority, status, created_at, window_start, window_end
	FROM tasks
	`

const selectVehiclesQuery = `
	SELECT id, lat, lng, capacity, status, type
	FROM vehicles
	`

// Postgres-backed task and vehicle store. It implements the task and
// vehicle repository ports and commits cycles in one transaction.
type SQLDispatchRepository struct{ DB *sql.DB }

func NewSQLDispatchRepository(db *sql.DB) *SQLDispatchRepository {
	return &SQLDispatchRepository{DB: db}
}

func taskArgs(t domain.Task) []any {
	var start, end sql.NullTime
	if t.TimeWindow != nil {
		start = sql.NullTime{Time: t.TimeWindow.Start, Valid: true}
		end = sql.NullTime{Time: t.TimeWindow.End, Valid: true}
	}
	return []any{
		t.ID, t.Location.Lat, t.Location.Lng, t.RequiredCapacity,
		string(t.Priority), string(t.Status), t.CreatedAt, start, end,
	}
}

func scanTasks(rows *sql.Rows) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, 64)
	for rows.Next() {
		var (
			t          domain.Task
			priority   string
			status     string
			start, end sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Location.Lat, &t.Location.Lng, &t.RequiredCapacity, &priority, &status, &t.CreatedAt, &start, &end); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		t.Priority = domain.Priority(priority)
		t.Status = domain.TaskStatus(status)
		if start.Valid && end.Valid {
			t.TimeWindow = &domain.TimeWindow{Start: start.Time, End: end.Time}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

func scanVehicles(rows *sql.Rows) ([]domain.Vehicle, error) {
	vehicles := make([]domain.Vehicle, 0, 16)
	for rows.Next() {
		var (
			v      domain.Vehicle
			status string
			vtype  string
		)
		if err := rows.Scan(&v.ID, &v.Location.Lat, &v.Location.Lng, &v.Capacity, &status, &vtype); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.Status = domain.VehicleStatus(status)
		v.Type = domain.VehicleType(vtype)
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return vehicles, nil
}

// Return pending tasks in intake order.
func (s *SQLDispatchRepository) PendingTasks(ctx context.Context) (_ []domain.Task, err error) {
	defer obs.Time(ctx, "tasks.PendingTasks")(&err)
	return s.ListTasks(ctx, domain.TaskPending)
}

// Return tasks filtered by status; an empty status returns all tasks.
func (s *SQLDispatchRepository) ListTasks(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	if s.DB == nil {
		return nil, errors.New("sql dispatch repository: DB is nil")
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.DB.QueryContext(ctx, selectTasksQuery+`ORDER BY created_at, id;`)
	} else {
		rows, err = s.DB.QueryContext(ctx, selectTasksQuery+`WHERE status = $1 ORDER BY created_at, id;`, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: query tasks table: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLDispatchRepository) CreateTask(ctx context.Context, t domain.Task) (err error) {
	defer obs.Time(ctx, "tasks.CreateTask")(&err)

	if s.DB == nil {
		return errors.New("sql dispatch repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `
	INSERT INTO tasks (id, lat, lng, required_capacity, priority, status, created_at, window_start, window_end)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING;
	`, taskArgs(t)...)
	if err != nil {
		return fmt.Errorf("create task id=%s: %w", t.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create task id=%s: rows affected: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("create task id=%s: %w", t.ID, ErrConflict)
	}
	return nil
}

// Move a task to status, enforcing the task lifecycle against the stored
// state.
func (s *SQLDispatchRepository) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) (err error) {
	defer obs.Time(ctx, "tasks.UpdateTaskStatus")(&err)

	if s.DB == nil {
		return errors.New("sql dispatch repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update task status: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := transitionTask(ctx, tx, id, status); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update task status: commit tx: %w", err)
	}
	return nil
}

func transitionTask(ctx context.Context, tx *sql.Tx, id string, to domain.TaskStatus) error {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1 FOR UPDATE;`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("task %q: select status: %w", id, err)
	}

	if !domain.CanTransition(domain.TaskStatus(current), to) {
		return fmt.Errorf("task %q: %s -> %s: %w", id, current, to, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status = $2 WHERE id = $1;`, id, string(to)); err != nil {
		return fmt.Errorf("task %q: update status: %w", id, err)
	}
	return nil
}

// Return available vehicles ordered by ID.
func (s *SQLDispatchRepository) AvailableVehicles(ctx context.Context) (_ []domain.Vehicle, err error) {
	defer obs.Time(ctx, "vehicles.AvailableVehicles")(&err)

	if s.DB == nil {
		return nil, errors.New("sql dispatch repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, selectVehiclesQuery+`WHERE status = $1 ORDER BY id;`, string(domain.VehicleAvailable))
	if err != nil {
		return nil, fmt.Errorf("available vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	vehicles, err := scanVehicles(rows)
	if err != nil {
		return nil, fmt.Errorf("available vehicles: %w", err)
	}
	return vehicles, nil
}

func (s *SQLDispatchRepository) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	if s.DB == nil {
		return nil, errors.New("sql dispatch repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, selectVehiclesQuery+`ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	vehicles, err := scanVehicles(rows)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

func (s *SQLDispatchRepository) UpdateVehicleStatus(ctx context.Context, id string, status domain.VehicleStatus) (err error) {
	defer obs.Time(ctx, "vehicles.UpdateVehicleStatus")(&err)

	if s.DB == nil {
		return errors.New("sql dispatch repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE vehicles SET status = $2 WHERE id = $1;`, id, string(status))
	if err != nil {
		return fmt.Errorf("update vehicle status id=%s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vehicle status id=%s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update vehicle status id=%s: %w", id, ErrNotFound)
	}
	return nil
}

// CommitAssignments marks every planned vehicle and task assigned in one
// transaction. A vehicle that is no longer available, or a task that left
// pending since the cycle read it, aborts the whole commit.
func (s *SQLDispatchRepository) CommitAssignments(ctx context.Context, plans []domain.RoutePlan) (err error) {
	defer obs.Time(ctx, "dispatch.CommitAssignments")(&err)

	if s.DB == nil {
		return errors.New("sql dispatch repository: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit assignments: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range plans {
		res, err := tx.ExecContext(ctx,
			`UPDATE vehicles SET status = $2 WHERE id = $1 AND status = $3;`,
			p.VehicleID, string(domain.VehicleAssigned), string(domain.VehicleAvailable),
		)
		if err != nil {
			return fmt.Errorf("commit assignments: vehicle %q: %w", p.VehicleID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("commit assignments: vehicle %q: rows affected: %w", p.VehicleID, err)
		} else if n == 0 {
			return fmt.Errorf("commit assignments: vehicle %q no longer available: %w", p.VehicleID, ErrConflict)
		}

		for _, stop := range p.Stops {
			if err := transitionTask(ctx, tx, stop.ID, domain.TaskAssigned); err != nil {
				return fmt.Errorf("commit assignments: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignments: commit tx: %w", err)
	}
	return nil
}

// Hubs returns every distribution center ordered by ID.
func (s *SQLDispatchRepository) Hubs(ctx context.Context) (_ []domain.Hub, err error) {
	defer obs.Time(ctx, "hubs.Hubs")(&err)

	if s.DB == nil {
		return nil, errors.New("sql dispatch repository: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, lat, lng FROM hubs ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("hubs: query hubs table: %w", err)
	}
	defer rows.Close()

	hubs := make([]domain.Hub, 0, 8)
	for rows.Next() {
		var h domain.Hub
		if err := rows.Scan(&h.ID, &h.Name, &h.Location.Lat, &h.Location.Lng); err != nil {
			return nil, fmt.Errorf("hubs: scan row: %w", err)
		}
		hubs = append(hubs, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hubs: row iteration: %w", err)
	}
	return hubs, nil
}
