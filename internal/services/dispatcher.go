package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/platform/metrics"
	"food-dispatch-service/internal/platform/obs"
	"food-dispatch-service/internal/ports"
)

// ErrCycleInProgress is returned when another process holds the cycle lock.
var ErrCycleInProgress = errors.New("dispatch cycle in progress")

const (
	DefaultLockTTL = 2 * time.Minute
	cycleKey       = "dispatch-cycle"
)

// CycleReport describes one committed dispatch cycle.
type CycleReport struct {
	CycleID           string             `json:"cycle_id"`
	StartedAt         time.Time          `json:"started_at"`
	FinishedAt        time.Time          `json:"finished_at"`
	Assignments       []domain.RoutePlan `json:"assignments"`
	UnassignedTaskIDs []string           `json:"unassigned_task_ids"`
	EstimatedTours    int                `json:"estimated_tours"`
	SLARisks          []domain.Risk      `json:"sla_risks"`
	Efficiency        Efficiency         `json:"efficiency"`
}

type DispatcherOptions struct {
	// Lock guards against cycles in other processes; nil skips it.
	Lock ports.CycleLock
	// Publisher receives committed plans; nil skips publication.
	Publisher ports.PlanPublisher
	// Hubs supplies pickup locations; nil routes vehicles straight to drops.
	Hubs      ports.HubSource
	LockTTL   time.Duration
	SLAHours  float64
	Now       func() time.Time
	NewID     func() string
}

// Dispatcher runs dispatch cycles against live task and vehicle sources.
//
// Concurrent Run calls in one process share a single in-flight cycle; across
// processes the CycleLock serializes them.
type Dispatcher struct {
	coordinator *DispatchCoordinator
	tasks       ports.TaskSource
	vehicles    ports.VehicleSource
	lock        ports.CycleLock
	publisher   ports.PlanPublisher
	hubs        ports.HubSource
	lockTTL     time.Duration
	slaHours    float64
	now         func() time.Time
	newID       func() string

	group singleflight.Group

	mu     sync.RWMutex
	latest *CycleReport
}

func NewDispatcher(
	coordinator *DispatchCoordinator,
	tasks ports.TaskSource,
	vehicles ports.VehicleSource,
	opts DispatcherOptions,
) *Dispatcher {
	d := &Dispatcher{
		coordinator: coordinator,
		tasks:       tasks,
		vehicles:    vehicles,
		lock:        opts.Lock,
		publisher:   opts.Publisher,
		hubs:        opts.Hubs,
		lockTTL:     opts.LockTTL,
		slaHours:    opts.SLAHours,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if d.lockTTL <= 0 {
		d.lockTTL = DefaultLockTTL
	}
	if d.slaHours <= 0 {
		d.slaHours = DefaultSLAHours
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}
	return d
}

// Run executes one dispatch cycle and commits its assignments.
//
// Callers arriving while a cycle is in flight share its result. The cycle
// runs detached from every caller's cancellation, bounded by the lock TTL.
// A caller whose ctx ends first gets its ctx error while the cycle carries
// on for the others.
func (d *Dispatcher) Run(ctx context.Context) (*CycleReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch cycle: %w", err)
	}

	ch := d.group.DoChan(cycleKey, func() (any, error) {
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.lockTTL)
		defer cancel()
		return d.runOnce(cycleCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CycleReport), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("dispatch cycle: %w", ctx.Err())
	}
}

// Latest returns the report of the last successful cycle.
func (d *Dispatcher) Latest() (*CycleReport, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest, d.latest != nil
}

func (d *Dispatcher) runOnce(ctx context.Context) (report *CycleReport, err error) {
	started := time.Now()
	done := obs.Time(ctx, "dispatch.cycle")
	defer done(&err)
	defer func() {
		switch {
		case errors.Is(err, ErrCycleInProgress):
			metrics.ObserveCycle("skipped", time.Since(started), 0, 0, 0)
		case err != nil:
			metrics.ObserveCycle("error", time.Since(started), 0, 0, 0)
		default:
			metrics.ObserveCycle("ok", time.Since(started), len(report.Assignments), len(report.UnassignedTaskIDs), len(report.SLARisks))
		}
	}()

	if d.lock != nil {
		release, ok, lerr := d.lock.Acquire(ctx, d.lockTTL)
		if lerr != nil {
			return nil, fmt.Errorf("dispatch cycle: acquire lock: %w", lerr)
		}
		if !ok {
			return nil, ErrCycleInProgress
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				log.Printf("op=dispatch.cycle release_lock err=%v", rerr)
			}
		}()
	}

	report = &CycleReport{CycleID: d.newID(), StartedAt: d.now()}

	var (
		tasks    []domain.Task
		vehicles []domain.Vehicle
		hubs     []domain.Hub
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var ferr error
		tasks, ferr = d.tasks.PendingTasks(gctx)
		if ferr != nil {
			return fmt.Errorf("pending tasks: %w", ferr)
		}
		return nil
	})
	g.Go(func() error {
		var ferr error
		vehicles, ferr = d.vehicles.AvailableVehicles(gctx)
		if ferr != nil {
			return fmt.Errorf("available vehicles: %w", ferr)
		}
		return nil
	})
	if d.hubs != nil {
		g.Go(func() error {
			var ferr error
			hubs, ferr = d.hubs.Hubs(gctx)
			if ferr != nil {
				return fmt.Errorf("hubs: %w", ferr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dispatch cycle: %w", err)
	}

	result, err := d.coordinator.RunCycleWithHubs(ctx, tasks, vehicles, hubs)
	if err != nil {
		return nil, fmt.Errorf("dispatch cycle: %w", err)
	}

	// Past this point the cycle is committed even if ctx is cancelled.
	commitCtx := context.WithoutCancel(ctx)
	if err := d.commit(commitCtx, result.Assignments); err != nil {
		return nil, fmt.Errorf("dispatch cycle: commit: %w", err)
	}

	if d.publisher != nil && len(result.Assignments) > 0 {
		if perr := d.publisher.Publish(commitCtx, result.Assignments); perr != nil {
			log.Printf("op=dispatch.cycle cycle_id=%s publish err=%v", report.CycleID, perr)
		}
	}

	report.Assignments = result.Assignments
	report.UnassignedTaskIDs = make([]string, 0, len(result.UnassignedTasks))
	for _, t := range result.UnassignedTasks {
		report.UnassignedTaskIDs = append(report.UnassignedTaskIDs, t.ID)
	}
	for _, p := range result.Assignments {
		if p.Quality == domain.QualityEstimated {
			report.EstimatedTours++
		}
	}
	report.FinishedAt = d.now()
	report.SLARisks = FindSLARisks(tasks, d.slaHours, report.FinishedAt)
	report.Efficiency = SummarizeEfficiency(result.Assignments)

	log.Printf(
		"op=dispatch.cycle cycle_id=%s assigned=%d unassigned=%d estimated=%d sla_risks=%d",
		report.CycleID, len(report.Assignments), len(report.UnassignedTaskIDs),
		report.EstimatedTours, len(report.SLARisks),
	)

	d.mu.Lock()
	d.latest = report
	d.mu.Unlock()

	return report, nil
}

// commit writes assigned statuses back. A task source implementing
// ports.AssignmentCommitter commits the whole cycle, vehicles included.
func (d *Dispatcher) commit(ctx context.Context, plans []domain.RoutePlan) error {
	if len(plans) == 0 {
		return nil
	}
	if c, ok := d.tasks.(ports.AssignmentCommitter); ok {
		return c.CommitAssignments(ctx, plans)
	}

	for _, p := range plans {
		if err := d.vehicles.UpdateVehicleStatus(ctx, p.VehicleID, domain.VehicleAssigned); err != nil {
			return fmt.Errorf("vehicle %q: %w", p.VehicleID, err)
		}
		for _, s := range p.Stops {
			if err := d.tasks.UpdateTaskStatus(ctx, s.ID, domain.TaskAssigned); err != nil {
				return fmt.Errorf("task %q: %w", s.ID, err)
			}
		}
	}
	return nil
}
