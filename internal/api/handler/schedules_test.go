package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jobsuitex/autoapply/internal/scheduler"
	"github.com/jobsuitex/autoapply/internal/store"
	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockScheduler struct {
	mu           sync.Mutex
	registered   []*models.JobConfig
	unregistered []uuid.UUID
	snaps        []scheduler.ScheduleSnapshot
	registerErr  error
}

func (m *mockScheduler) Register(_ context.Context, cfg *models.JobConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered = append(m.registered, cfg)
	next := time.Date(2025, 1, 8, 9, 30, 0, 0, time.UTC)
	m.snaps = append(m.snaps, scheduler.ScheduleSnapshot{
		JobConfigID: cfg.ID,
		Portal:      cfg.Portal,
		Frequency:   cfg.Schedule.Frequency,
		NextRun:     &next,
	})
	return nil
}

func (m *mockScheduler) Unregister(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, id)
}

func (m *mockScheduler) Snapshot() []scheduler.ScheduleSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scheduler.ScheduleSnapshot(nil), m.snaps...)
}

type mockJobStore struct {
	configs  map[uuid.UUID]*models.JobConfig
	outcomes []*models.ApplicationOutcome
	gotLimit int
	err      error
}

func (m *mockJobStore) GetJobConfig(_ context.Context, id uuid.UUID) (*models.JobConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	cfg, ok := m.configs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cfg, nil
}

func (m *mockJobStore) UpdateSchedule(_ context.Context, id uuid.UUID, s models.Schedule) error {
	if m.err != nil {
		return m.err
	}
	cfg, ok := m.configs[id]
	if !ok {
		return store.ErrNotFound
	}
	cfg.Schedule = s
	cfg.IsActive = true
	return nil
}

func (m *mockJobStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if m.err != nil {
		return m.err
	}
	cfg, ok := m.configs[id]
	if !ok {
		return store.ErrNotFound
	}
	cfg.IsActive = active
	return nil
}

func (m *mockJobStore) ListOutcomes(_ context.Context, _ uuid.UUID, limit int) ([]*models.ApplicationOutcome, error) {
	m.gotLimit = limit
	return m.outcomes, m.err
}

// --- helpers ---

func newTestRouter(s Scheduler, jobs JobStore) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/schedules", NewListSchedulesHandler(s))
	r.Put("/api/v1/jobs/{jobID}/schedule", NewPutScheduleHandler(s, jobs))
	r.Delete("/api/v1/jobs/{jobID}/schedule", NewDeleteScheduleHandler(s, jobs))
	r.Get("/api/v1/jobs/{jobID}/outcomes", NewListOutcomesHandler(jobs))
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody(t, w)["error"].(map[string]any)["code"].(string)
}

func fixture() (*mockScheduler, *mockJobStore, *models.JobConfig) {
	cfg := &models.JobConfig{ID: uuid.New(), Portal: "naukri", IsActive: false}
	return &mockScheduler{}, &mockJobStore{configs: map[uuid.UUID]*models.JobConfig{cfg.ID: cfg}}, cfg
}

// --- tests ---

func TestPutSchedule_RegistersJob(t *testing.T) {
	s, jobs, cfg := fixture()
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodPut, "/api/v1/jobs/"+cfg.ID.String()+"/schedule",
		models.Schedule{Frequency: models.FrequencyWeekly, Days: []time.Weekday{time.Monday}, TimeOfDay: "09:30"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, s.registered, 1)
	assert.Equal(t, models.FrequencyWeekly, s.registered[0].Schedule.Frequency)
	assert.True(t, cfg.IsActive)

	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, cfg.ID.String(), data["job_config_id"])
	assert.Equal(t, "2025-01-08T09:30:00Z", data["next_run"])
}

func TestPutSchedule_InvalidSchedule(t *testing.T) {
	s, jobs, cfg := fixture()
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodPut, "/api/v1/jobs/"+cfg.ID.String()+"/schedule",
		models.Schedule{Frequency: models.FrequencyWeekly, TimeOfDay: "09:30"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SCHEDULE", errCode(t, w))
	assert.Empty(t, s.registered)
	assert.Empty(t, cfg.Schedule.Frequency)
}

func TestPutSchedule_BadRequests(t *testing.T) {
	s, jobs, cfg := fixture()
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodPut, "/api/v1/jobs/not-a-uuid/schedule", models.Schedule{Frequency: models.FrequencyHourly})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPut, "/api/v1/jobs/"+cfg.ID.String()+"/schedule", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, w))
}

func TestPutSchedule_UnknownJob(t *testing.T) {
	s, jobs, _ := fixture()
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodPut, "/api/v1/jobs/"+uuid.NewString()+"/schedule", models.Schedule{Frequency: models.FrequencyHourly})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errCode(t, w))
}

func TestPutSchedule_RegisterFailure(t *testing.T) {
	s, jobs, cfg := fixture()
	s.registerErr = errors.New("boom")
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodPut, "/api/v1/jobs/"+cfg.ID.String()+"/schedule", models.Schedule{Frequency: models.FrequencyHourly})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteSchedule_DeactivatesAndUnregisters(t *testing.T) {
	s, jobs, cfg := fixture()
	cfg.IsActive = true
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodDelete, "/api/v1/jobs/"+cfg.ID.String()+"/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, cfg.IsActive)
	assert.Equal(t, []uuid.UUID{cfg.ID}, s.unregistered)
}

func TestDeleteSchedule_StoreError(t *testing.T) {
	s, jobs, cfg := fixture()
	jobs.err = errors.New("db down")
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodDelete, "/api/v1/jobs/"+cfg.ID.String()+"/schedule", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, s.unregistered)
}

func TestListSchedules(t *testing.T) {
	s, jobs, _ := fixture()
	s.snaps = []scheduler.ScheduleSnapshot{{JobConfigID: uuid.New(), Portal: "naukri", Running: true}}
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodGet, "/api/v1/schedules", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, true, data[0].(map[string]any)["running"])
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["count"])
}

func TestListOutcomes(t *testing.T) {
	s, jobs, cfg := fixture()
	jobs.outcomes = []*models.ApplicationOutcome{{ID: uuid.New(), JobConfigID: cfg.ID, Kind: models.OutcomeApplied}}
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodGet, "/api/v1/jobs/"+cfg.ID.String()+"/outcomes?limit=1000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxOutcomeLimit, jobs.gotLimit)

	data := decodeBody(t, w)["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, models.OutcomeApplied, data[0].(map[string]any)["kind"])
}

func TestListOutcomes_DefaultsAndValidation(t *testing.T) {
	s, jobs, cfg := fixture()
	h := newTestRouter(s, jobs)

	w := do(t, h, http.MethodGet, "/api/v1/jobs/"+cfg.ID.String()+"/outcomes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultOutcomeLimit, jobs.gotLimit)
	assert.Empty(t, decodeBody(t, w)["data"].([]any))

	w = do(t, h, http.MethodGet, "/api/v1/jobs/"+cfg.ID.String()+"/outcomes?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
