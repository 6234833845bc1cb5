package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jobsuitex/autoapply/internal/cache"
	"github.com/jobsuitex/autoapply/internal/store"
	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCredentialKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// ─── mock store ──────────────────────────────────────────────────────────────

type testStore struct {
	pingErr error
}

func (s *testStore) Ping(_ context.Context) error { return s.pingErr }
func (s *testStore) ListActiveJobConfigs(_ context.Context) ([]*models.JobConfig, error) {
	return nil, nil
}
func (s *testStore) GetJobConfig(_ context.Context, _ uuid.UUID) (*models.JobConfig, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) UpdateRunTimes(_ context.Context, _ uuid.UUID, _ *time.Time, _ time.Time) error {
	return nil
}
func (s *testStore) FlagInvalidSchedule(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (s *testStore) UpdateSchedule(_ context.Context, _ uuid.UUID, _ models.Schedule) error {
	return nil
}
func (s *testStore) SetActive(_ context.Context, _ uuid.UUID, _ bool) error { return nil }
func (s *testStore) SetAITraining(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}
func (s *testStore) GetCredential(_ context.Context, _ uuid.UUID, _ string) (*models.Credential, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) InvalidateCredential(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}
func (s *testStore) RecordOutcome(_ context.Context, _ *models.ApplicationOutcome) error { return nil }
func (s *testStore) ListOutcomes(_ context.Context, _ uuid.UUID, _ int) ([]*models.ApplicationOutcome, error) {
	return nil, nil
}

var _ store.Store = (*testStore)(nil)

// ─── mock cache ──────────────────────────────────────────────────────────────

type testCache struct {
	pingErr error
}

func (c *testCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *testCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *testCache) Delete(_ context.Context, _ string) error                          { return nil }
func (c *testCache) Ping(_ context.Context) error                                      { return c.pingErr }
func (c *testCache) Publish(_ context.Context, _ string, _ string) error               { return nil }
func (c *testCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*testCache)(nil)

// ─── health handler tests ───────────────────────────────────────────────────

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["cache"])
}

func TestHealthHandler_DatabaseDegraded(t *testing.T) {
	h := healthHandler(&testStore{pingErr: errors.New("connection refused")}, &testCache{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Equal(t, "degraded", details["database"])
	assert.Equal(t, "ok", details["cache"])
}

func TestHealthHandler_CacheDegraded(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{pingErr: errors.New("redis down")})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ─── run() startup tests ────────────────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "AI_PROVIDER", "CREDENTIAL_KEY",
	} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("AI_PROVIDER", "ollama")
	t.Setenv("CREDENTIAL_KEY", testCredentialKey)

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
