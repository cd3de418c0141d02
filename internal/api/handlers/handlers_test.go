package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-dispatch-service/internal/adapters/geocode"
	"food-dispatch-service/internal/adapters/manifest"
	"food-dispatch-service/internal/adapters/repositories"
	"food-dispatch-service/internal/api/dto"
	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/services"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRepo() *repositories.MemoryDispatchRepository {
	return repositories.NewMemoryDispatchRepository(
		[]domain.Task{
			{ID: "dp-001", Location: domain.Location{Lat: 37.7749, Lng: -122.4194}, Priority: domain.PriorityCritical, Status: domain.TaskPending, CreatedAt: testNow.Add(-5 * time.Hour)},
			{ID: "dp-002", Location: domain.Location{Lat: 37.7849, Lng: -122.4094}, Priority: domain.PriorityHigh, Status: domain.TaskAssigned, CreatedAt: testNow.Add(-time.Hour)},
			{ID: "dp-003", Location: domain.Location{Lat: 37.8049, Lng: -122.2711}, Priority: domain.PriorityNormal, Status: domain.TaskCompleted, CreatedAt: testNow.Add(-9 * time.Hour)},
		},
		[]domain.Vehicle{
			{ID: "drv-1", Location: domain.Location{Lat: 37.775, Lng: -122.418}, Capacity: 10, Status: domain.VehicleAvailable, Type: domain.VehicleCar},
		},
	)
}

type stubGeocoder struct {
	loc domain.Location
	err error
}

func (g stubGeocoder) Geocode(context.Context, string) (domain.Location, error) {
	return g.loc, g.err
}

type stubRunner struct {
	report *services.CycleReport
	err    error
}

func (s *stubRunner) Run(context.Context) (*services.CycleReport, error) {
	return s.report, s.err
}

func (s *stubRunner) Latest() (*services.CycleReport, bool) {
	return s.report, s.report != nil
}

func serve(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(Health, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = serve(Health, http.MethodPost, "/health", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodGet {
		t.Fatalf("Allow = %q, want GET", got)
	}
}

func TestListTasksByStatus(t *testing.T) {
	h := &TaskHandler{Repo: testRepo()}

	rec := serve(h.Tasks, http.MethodGet, "/tasks?status=pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var res dto.ListTasksResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].ID != "dp-001" {
		t.Fatalf("tasks = %+v, want [dp-001]", res.Tasks)
	}

	rec = serve(h.Tasks, http.MethodGet, "/tasks?status=lost", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateTaskWithLocation(t *testing.T) {
	repo := testRepo()
	h := &TaskHandler{Repo: repo, Now: func() time.Time { return testNow }}

	rec := serve(h.Tasks, http.MethodPost, "/tasks",
		`{"id":"dp-010","location":{"lat":37.79,"lng":-122.40},"required_capacity":2,"urgency":95}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var res dto.TaskResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Priority != "critical" || res.Status != "pending" || !res.CreatedAt.Equal(testNow) {
		t.Fatalf("task = %+v, want critical pending created at %v", res, testNow)
	}

	pending, _ := repo.PendingTasks(context.Background())
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	rec = serve(h.Tasks, http.MethodPost, "/tasks", `{"id":"dp-010","location":{"lat":1,"lng":1}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestCreateTaskGeneratesID(t *testing.T) {
	h := &TaskHandler{Repo: testRepo()}

	rec := serve(h.Tasks, http.MethodPost, "/tasks", `{"location":{"lat":37.79,"lng":-122.40},"priority":"medium"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var res dto.TaskResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected a generated id")
	}
	if res.Priority != "normal" {
		t.Fatalf("priority = %q, want normal", res.Priority)
	}
}

func TestCreateTaskGeocodesAddress(t *testing.T) {
	h := &TaskHandler{
		Repo:     testRepo(),
		Geocoder: stubGeocoder{loc: domain.Location{Lat: 37.8, Lng: -122.41}},
	}

	rec := serve(h.Tasks, http.MethodPost, "/tasks", `{"address":"1 Market St, San Francisco"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var res dto.TaskResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Location.Lat != 37.8 || res.Location.Lng != -122.41 {
		t.Fatalf("location = %+v, want geocoded point", res.Location)
	}
}

func TestCreateTaskAddressErrors(t *testing.T) {
	noGeocoder := &TaskHandler{Repo: testRepo()}
	if rec := serve(noGeocoder.Tasks, http.MethodPost, "/tasks", `{"address":"somewhere"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no geocoder status = %d, want 422", rec.Code)
	}

	notFound := &TaskHandler{Repo: testRepo(), Geocoder: stubGeocoder{err: geocode.ErrNoResult}}
	if rec := serve(notFound.Tasks, http.MethodPost, "/tasks", `{"address":"nowhere"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("not found status = %d, want 422", rec.Code)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	h := &TaskHandler{Repo: testRepo()}

	bodies := []string{
		`{}`,
		`{"location":{"lat":91,"lng":0}}`,
		`{"location":{"lat":1,"lng":1},"priority":"urgent"}`,
		`{"location":{"lat":1,"lng":1},"required_capacity":-1}`,
		`{"location":{"lat":1,"lng":1},"unknown":true}`,
		`{"location":{"lat":1,"lng":1}}{}`,
		`not json`,
	}
	for _, body := range bodies {
		if rec := serve(h.Tasks, http.MethodPost, "/tasks", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestListVehicles(t *testing.T) {
	h := &VehicleHandler{Repo: testRepo()}

	rec := serve(h.List, http.MethodGet, "/vehicles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var res dto.ListVehiclesResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Vehicles) != 1 || res.Vehicles[0].Type != "car" {
		t.Fatalf("vehicles = %+v, want one car", res.Vehicles)
	}
}

func TestListHubs(t *testing.T) {
	repo := repositories.NewMemoryDispatchRepositoryFromSeed(repositories.Dataset{
		Hubs: []domain.Hub{
			{ID: "hub-sf", Name: "Mission Pantry", Location: domain.Location{Lat: 37.7793, Lng: -122.4193}},
			{ID: "hub-oak", Name: "Oakland Food Bank", Location: domain.Location{Lat: 37.8000, Lng: -122.2750}},
		},
	})
	h := &HubHandler{Source: repo}

	rec := serve(h.List, http.MethodGet, "/hubs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var res dto.ListHubsResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Hubs) != 2 || res.Hubs[0].ID != "hub-oak" || res.Hubs[1].ID != "hub-sf" {
		t.Fatalf("hubs = %+v, want hub-oak then hub-sf", res.Hubs)
	}

	if rec := serve(h.List, http.MethodPost, "/hubs", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestDispatchRunCycle(t *testing.T) {
	report := &services.CycleReport{
		CycleID:           "c-1",
		UnassignedTaskIDs: []string{"dp-009"},
		Assignments: []domain.RoutePlan{{
			VehicleID: "drv-1",
			Pickup:    &domain.Hub{ID: "hub-sf", Name: "Mission Pantry"},
			Stops:     []domain.Task{{ID: "dp-001", Priority: domain.PriorityCritical}},
			Status:    domain.PlanOptimized,
			Quality:   domain.QualityEstimated,
		}},
	}
	h := &DispatchHandler{Dispatcher: &stubRunner{report: report}}

	rec := serve(h.RunCycle, http.MethodPost, "/dispatch/cycles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var res dto.CycleResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.CycleID != "c-1" || len(res.Plans) != 1 || res.Plans[0].Stops[0].TaskID != "dp-001" {
		t.Fatalf("response = %+v, want cycle c-1 with dp-001 planned", res)
	}
	if res.Plans[0].Quality != "estimated" {
		t.Fatalf("quality = %q, want estimated", res.Plans[0].Quality)
	}
	if res.Plans[0].Pickup == nil || res.Plans[0].Pickup.ID != "hub-sf" {
		t.Fatalf("pickup = %+v, want hub-sf", res.Plans[0].Pickup)
	}
}

func TestDispatchRunCycleInProgress(t *testing.T) {
	h := &DispatchHandler{Dispatcher: &stubRunner{err: services.ErrCycleInProgress}}

	if rec := serve(h.RunCycle, http.MethodPost, "/dispatch/cycles", ""); rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestDispatchLatest(t *testing.T) {
	empty := &DispatchHandler{Dispatcher: &stubRunner{}}
	if rec := serve(empty.Latest, http.MethodGet, "/dispatch/cycles/latest", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	h := &DispatchHandler{Dispatcher: &stubRunner{report: &services.CycleReport{CycleID: "c-2"}}}
	rec := serve(h.Latest, http.MethodGet, "/dispatch/cycles/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cycle_id":"c-2"`) {
		t.Fatalf("body = %s, want cycle c-2", rec.Body)
	}
}

func TestCoverageRisks(t *testing.T) {
	h := &CoverageHandler{Tasks: testRepo(), Now: func() time.Time { return testNow }}

	rec := serve(h.Risks, http.MethodGet, "/coverage/risks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res dto.RisksResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.SLAHours != services.DefaultSLAHours || len(res.Risks) != 1 || res.Risks[0].TaskID != "dp-001" {
		t.Fatalf("response = %+v, want dp-001 at default SLA", res)
	}

	rec = serve(h.Risks, http.MethodGet, "/coverage/risks?sla_hours=0.5", "")
	res = dto.RisksResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Risks) != 2 {
		t.Fatalf("risks = %+v, want dp-001 and dp-002", res.Risks)
	}

	rec = serve(h.Risks, http.MethodGet, "/coverage/risks?sla_hours=0", "")
	res = dto.RisksResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || res.SLAHours != 0 || len(res.Risks) != 2 {
		t.Fatalf("status = %d sla = %v risks = %+v, want 200 with zero threshold and 2 risks", rec.Code, res.SLAHours, res.Risks)
	}

	if rec := serve(h.Risks, http.MethodGet, "/coverage/risks?sla_hours=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCoverageArea(t *testing.T) {
	h := &CoverageHandler{Tasks: testRepo()}

	rec := serve(h.Area, http.MethodPost, "/areas", `{"center":{"lat":37.78,"lng":-122.415},"radius_km":3,"segments":16}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var res dto.AreaResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Polygon) != 16 {
		t.Fatalf("polygon vertices = %d, want 16", len(res.Polygon))
	}
	if len(res.TaskIDs) != 2 || res.TaskIDs[0] != "dp-001" || res.TaskIDs[1] != "dp-002" {
		t.Fatalf("task ids = %v, want [dp-001 dp-002]", res.TaskIDs)
	}

	if rec := serve(h.Area, http.MethodPost, "/areas", `{"center":{"lat":37.78,"lng":-122.415},"radius_km":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDispatchManifest(t *testing.T) {
	empty := &DispatchHandler{Dispatcher: &stubRunner{}}
	if rec := serve(empty.Manifest, http.MethodGet, "/dispatch/cycles/latest/manifest.xlsx", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	report := &services.CycleReport{
		CycleID:     "c-3",
		Assignments: []domain.RoutePlan{{VehicleID: "drv-1", Stops: []domain.Task{{ID: "dp-001"}}}},
	}
	h := &DispatchHandler{Dispatcher: &stubRunner{report: report}}

	rec := serve(h.Manifest, http.MethodGet, "/dispatch/cycles/latest/manifest.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != manifest.ContentType {
		t.Fatalf("content type = %q, want xlsx", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "dispatch-c-3.xlsx") {
		t.Fatalf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	// XLSX files are zip archives.
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatal("body is not an xlsx archive")
	}
}
