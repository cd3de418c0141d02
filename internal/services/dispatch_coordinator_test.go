package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"food-dispatch-service/internal/adapters/routing"
	"food-dispatch-service/internal/domain"
)

var cycleTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sfTasks() []domain.Task {
	tasks := []domain.Task{
		task("dp-001", 37.7749, -122.4194, domain.PriorityCritical),
		task("dp-002", 37.7849, -122.4094, domain.PriorityHigh),
		task("dp-003", 37.7649, -122.4294, domain.PriorityNormal),
		task("dp-004", 37.8049, -122.2711, domain.PriorityCritical),
	}
	for i := range tasks {
		tasks[i].RequiredCapacity = 1
		tasks[i].CreatedAt = cycleTime.Add(-time.Hour)
	}
	return tasks
}

func sfVehicles() []domain.Vehicle {
	return []domain.Vehicle{
		vehicle("drv-1", 37.7750, -122.4180, 10),
		vehicle("drv-2", 37.8044, -122.2712, 10),
		vehicle("drv-3", 37.7850, -122.4100, 10),
	}
}

func sfHubs() []domain.Hub {
	return []domain.Hub{
		{ID: "hub-sf", Name: "Mission Pantry", Location: domain.Location{Lat: 37.7793, Lng: -122.4193}},
		{ID: "hub-oak", Name: "Oakland Food Bank", Location: domain.Location{Lat: 37.8000, Lng: -122.2750}},
	}
}

func newTestCoordinator(group bool, mode AssignmentMode) *DispatchCoordinator {
	return NewDispatchCoordinator(
		NewClusterEngine(DefaultProximityMeters, group),
		NewTourBuilder(routing.NullProvider{}, TourOptions{}),
		CoordinatorOptions{Mode: mode, Now: func() time.Time { return cycleTime }},
	)
}

func planSummary(res CycleResult) map[string][]string {
	out := make(map[string][]string, len(res.Assignments))
	for _, p := range res.Assignments {
		out[p.VehicleID] = stopIDs(p.Stops)
	}
	return out
}

func TestRunCycleTaskModeWithPriorityGrouping(t *testing.T) {
	c := newTestCoordinator(true, AssignByTask)

	res, err := c.RunCycle(context.Background(), sfTasks(), sfVehicles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := planSummary(res)
	want := map[string][]string{
		"drv-1": {"dp-001"},
		"drv-2": {"dp-004"},
		"drv-3": {"dp-002"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("plans = %v, want %v", got, want)
	}

	if len(res.UnassignedTasks) != 1 || res.UnassignedTasks[0].ID != "dp-003" {
		t.Fatalf("unassigned = %v, want [dp-003]", stopIDs(res.UnassignedTasks))
	}
}

func TestRunCycleClusterMode(t *testing.T) {
	c := newTestCoordinator(false, AssignByCluster)

	res, err := c.RunCycle(context.Background(), sfTasks(), sfVehicles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Assignments) != 2 {
		t.Fatalf("plans = %v, want 2", planSummary(res))
	}
	if res.Assignments[0].VehicleID != "drv-1" || len(res.Assignments[0].Stops) != 3 {
		t.Fatalf("first plan = %s %v, want drv-1 with 3 stops", res.Assignments[0].VehicleID, stopIDs(res.Assignments[0].Stops))
	}
	if res.Assignments[1].VehicleID != "drv-2" || stopIDs(res.Assignments[1].Stops)[0] != "dp-004" {
		t.Fatalf("second plan = %s %v, want drv-2 [dp-004]", res.Assignments[1].VehicleID, stopIDs(res.Assignments[1].Stops))
	}
	if len(res.UnassignedTasks) != 0 {
		t.Fatalf("unassigned = %v, want none", stopIDs(res.UnassignedTasks))
	}
}

func TestRunCyclePlanFields(t *testing.T) {
	c := newTestCoordinator(true, AssignByTask)

	res, err := c.RunCycle(context.Background(), sfTasks(), sfVehicles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range res.Assignments {
		if p.Status != domain.PlanOptimized {
			t.Fatalf("plan %s status = %q, want optimized", p.VehicleID, p.Status)
		}
		if p.Quality != domain.QualityEstimated {
			t.Fatalf("plan %s quality = %q, want estimated", p.VehicleID, p.Quality)
		}
		if !p.CreatedAt.Equal(cycleTime) {
			t.Fatalf("plan %s created_at = %v, want %v", p.VehicleID, p.CreatedAt, cycleTime)
		}
		for _, s := range p.Stops {
			if s.Status != domain.TaskAssigned {
				t.Fatalf("stop %s status = %q, want assigned", s.ID, s.Status)
			}
		}
	}
}

func TestRunCycleIsDeterministic(t *testing.T) {
	c := newTestCoordinator(true, AssignByCluster)

	first, err := c.RunCycle(context.Background(), sfTasks(), sfVehicles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.RunCycle(context.Background(), sfTasks(), sfVehicles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("cycles differ:\n%s\n%s", a, b)
	}
}

func TestRunCycleDoesNotMutateInputs(t *testing.T) {
	tasks := sfTasks()
	vehicles := sfVehicles()

	if _, err := newTestCoordinator(true, AssignByTask).RunCycle(context.Background(), tasks, vehicles); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(tasks, sfTasks()) {
		t.Fatal("tasks were mutated")
	}
	if !reflect.DeepEqual(vehicles, sfVehicles()) {
		t.Fatal("vehicles were mutated")
	}
}

func TestRunCycleSkipsIneligibleInputs(t *testing.T) {
	tasks := sfTasks()
	tasks[1].Status = domain.TaskCompleted
	vehicles := sfVehicles()
	vehicles[0].Status = domain.VehicleOffline

	res, err := newTestCoordinator(true, AssignByTask).RunCycle(context.Background(), tasks, vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range res.Assignments {
		if p.VehicleID == "drv-1" {
			t.Fatal("offline vehicle was assigned")
		}
		for _, s := range p.Stops {
			if s.ID == "dp-002" {
				t.Fatal("completed task was planned")
			}
		}
	}
	for _, u := range res.UnassignedTasks {
		if u.ID == "dp-002" {
			t.Fatal("completed task reported unassigned")
		}
	}
}

func TestRunCycleUsesEachVehicleOnce(t *testing.T) {
	tasks := make([]domain.Task, 0, 8)
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		tasks = append(tasks, task(id, float64(i)*0.5, 0, domain.PriorityNormal))
	}
	vehicles := []domain.Vehicle{vehicle("v1", 0, 0, 10), vehicle("v2", 1, 0, 10)}

	res, err := newTestCoordinator(false, AssignByTask).RunCycle(context.Background(), tasks, vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Assignments) != 2 {
		t.Fatalf("plans = %d, want 2", len(res.Assignments))
	}
	if res.Assignments[0].VehicleID == res.Assignments[1].VehicleID {
		t.Fatalf("vehicle %s used twice", res.Assignments[0].VehicleID)
	}
	if n := len(res.Assignments) + len(res.UnassignedTasks); n != len(tasks) {
		t.Fatalf("assigned + unassigned = %d, want %d", n, len(tasks))
	}
}

func TestRunCycleNoVehicles(t *testing.T) {
	res, err := newTestCoordinator(true, AssignByCluster).RunCycle(context.Background(), sfTasks(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Assignments) != 0 {
		t.Fatalf("plans = %d, want 0", len(res.Assignments))
	}
	if len(res.UnassignedTasks) != 4 {
		t.Fatalf("unassigned = %d, want 4", len(res.UnassignedTasks))
	}
}

func TestRunCycleEmptyInput(t *testing.T) {
	res, err := newTestCoordinator(true, AssignByCluster).RunCycle(context.Background(), nil, sfVehicles())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Assignments == nil || res.UnassignedTasks == nil {
		t.Fatalf("result = %+v, want empty non-nil slices", res)
	}
}

func TestRunCycleRejectsInvalidLocation(t *testing.T) {
	tasks := sfTasks()
	tasks[2].Location.Lat = 123

	_, err := newTestCoordinator(true, AssignByCluster).RunCycle(context.Background(), tasks, sfVehicles())
	var le *domain.InvalidLocationError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want InvalidLocationError", err)
	}
}

func TestRunCycleRejectsInvalidVehicleLocation(t *testing.T) {
	vehicles := sfVehicles()
	vehicles[1].Location.Lng = -200

	_, err := newTestCoordinator(true, AssignByCluster).RunCycle(context.Background(), sfTasks(), vehicles)
	var le *domain.InvalidLocationError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want InvalidLocationError", err)
	}
}

func TestRunCycleRejectsDuplicateTaskIDs(t *testing.T) {
	tasks := append(sfTasks(), task("dp-001", 37.7, -122.4, domain.PriorityLow))

	_, err := newTestCoordinator(true, AssignByCluster).RunCycle(context.Background(), tasks, sfVehicles())
	if !errors.Is(err, domain.ErrDuplicateTask) {
		t.Fatalf("err = %v, want ErrDuplicateTask", err)
	}
}

func TestRunCycleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestCoordinator(true, AssignByCluster).RunCycle(ctx, sfTasks(), sfVehicles())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Assignments) != 0 {
		t.Fatalf("plans = %d, want none after cancellation", len(res.Assignments))
	}
}

func TestRunCyclePicksNearestHubPerCluster(t *testing.T) {
	c := newTestCoordinator(true, AssignByTask)
	vehicles := sfVehicles()
	hubs := sfHubs()

	res, err := c.RunCycleWithHubs(context.Background(), sfTasks(), vehicles, hubs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantHub := map[string]string{"drv-1": "hub-sf", "drv-2": "hub-oak", "drv-3": "hub-sf"}
	if len(res.Assignments) != len(wantHub) {
		t.Fatalf("plans = %v, want %d", planSummary(res), len(wantHub))
	}

	byID := map[string]domain.Vehicle{}
	for _, v := range vehicles {
		byID[v.ID] = v
	}
	for _, p := range res.Assignments {
		if p.Pickup == nil || p.Pickup.ID != wantHub[p.VehicleID] {
			t.Fatalf("vehicle %s pickup = %+v, want %s", p.VehicleID, p.Pickup, wantHub[p.VehicleID])
		}
		_, want := NearestNeighborPickupTour(byID[p.VehicleID].Location, p.Pickup.Location, p.Stops)
		if math.Abs(p.TotalDistanceMeters-want) > 1e-6 {
			t.Fatalf("vehicle %s distance = %v, want %v including the pickup leg", p.VehicleID, p.TotalDistanceMeters, want)
		}
	}

	// Hub choice does not change who gets what.
	if got, want := planSummary(res), planSummary(mustRunCycle(t, c, sfTasks(), sfVehicles())); !reflect.DeepEqual(got, want) {
		t.Fatalf("plans = %v, want %v", got, want)
	}
}

func TestRunCycleWithoutHubsHasNoPickup(t *testing.T) {
	res := mustRunCycle(t, newTestCoordinator(true, AssignByTask), sfTasks(), sfVehicles())
	for _, p := range res.Assignments {
		if p.Pickup != nil {
			t.Fatalf("vehicle %s pickup = %+v, want none", p.VehicleID, p.Pickup)
		}
	}
}

func TestRunCycleRejectsInvalidHubLocation(t *testing.T) {
	hubs := sfHubs()
	hubs[1].Location.Lat = 123

	_, err := newTestCoordinator(true, AssignByTask).RunCycleWithHubs(context.Background(), sfTasks(), sfVehicles(), hubs)
	var le *domain.InvalidLocationError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want InvalidLocationError", err)
	}
}

func TestNearestHub(t *testing.T) {
	if h := NearestHub(domain.Location{}, nil); h != nil {
		t.Fatalf("hub = %+v, want nil", h)
	}

	hubs := []domain.Hub{
		{ID: "east", Location: domain.Location{Lng: 0.01}},
		{ID: "west", Location: domain.Location{Lng: -0.01}},
	}
	if h := NearestHub(domain.Location{}, hubs); h == nil || h.ID != "east" {
		t.Fatalf("hub = %+v, want east on a tie", h)
	}
	if h := NearestHub(domain.Location{Lng: -0.02}, hubs); h == nil || h.ID != "west" {
		t.Fatalf("hub = %+v, want west", h)
	}
}

func mustRunCycle(t *testing.T, c *DispatchCoordinator, tasks []domain.Task, vehicles []domain.Vehicle) CycleResult {
	t.Helper()
	res, err := c.RunCycle(context.Background(), tasks, vehicles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestParseAssignmentMode(t *testing.T) {
	if m, err := ParseAssignmentMode(""); err != nil || m != AssignByCluster {
		t.Fatalf("ParseAssignmentMode(\"\") = %q, %v, want cluster", m, err)
	}
	if m, err := ParseAssignmentMode("Task"); err != nil || m != AssignByTask {
		t.Fatalf("ParseAssignmentMode(Task) = %q, %v, want task", m, err)
	}
	if _, err := ParseAssignmentMode("zone"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
