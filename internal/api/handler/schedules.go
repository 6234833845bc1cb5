// Package handler implements the control API endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jobsuitex/autoapply/internal/api/response"
	"github.com/jobsuitex/autoapply/internal/scheduler"
	"github.com/jobsuitex/autoapply/internal/store"
	"github.com/jobsuitex/autoapply/pkg/models"
)

const (
	defaultOutcomeLimit = 50
	maxOutcomeLimit     = 500
)

// Scheduler is the part of scheduler.Scheduler the handlers drive.
type Scheduler interface {
	Register(ctx context.Context, cfg *models.JobConfig) error
	Unregister(id uuid.UUID)
	Snapshot() []scheduler.ScheduleSnapshot
}

// JobStore is the part of the config store the handlers need.
type JobStore interface {
	GetJobConfig(ctx context.Context, id uuid.UUID) (*models.JobConfig, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule models.Schedule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListOutcomes(ctx context.Context, jobConfigID uuid.UUID, limit int) ([]*models.ApplicationOutcome, error)
}

// NewListSchedulesHandler returns an http.HandlerFunc for GET /api/v1/schedules.
func NewListSchedulesHandler(s Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snaps := s.Snapshot()
		response.List(w, snaps, response.ListMeta{Count: len(snaps)})
	}
}

// NewPutScheduleHandler returns an http.HandlerFunc for
// PUT /api/v1/jobs/{jobID}/schedule. It replaces the job's schedule,
// reactivates it and registers it with the scheduler.
func NewPutScheduleHandler(s Scheduler, jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}

		var schedule models.Schedule
		if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if _, err := scheduler.NextRun(schedule, time.Now()); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_SCHEDULE", err.Error(), nil)
			return
		}

		if err := jobs.UpdateSchedule(r.Context(), id, schedule); err != nil {
			storeError(w, err)
			return
		}
		cfg, err := jobs.GetJobConfig(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		if err := s.Register(r.Context(), cfg); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register schedule", nil)
			return
		}

		for _, snap := range s.Snapshot() {
			if snap.JobConfigID == id {
				response.JSON(w, snap)
				return
			}
		}
		response.JSON(w, map[string]any{"job_config_id": id})
	}
}

// NewDeleteScheduleHandler returns an http.HandlerFunc for
// DELETE /api/v1/jobs/{jobID}/schedule. It deactivates the job; a running
// cycle is left to finish.
func NewDeleteScheduleHandler(s Scheduler, jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}
		if err := jobs.SetActive(r.Context(), id, false); err != nil {
			storeError(w, err)
			return
		}
		s.Unregister(id)
		response.JSON(w, map[string]any{"job_config_id": id, "is_active": false})
	}
}

// NewListOutcomesHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/outcomes?limit=N.
func NewListOutcomesHandler(jobs JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}

		limit := defaultOutcomeLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = min(n, maxOutcomeLimit)
		}

		outcomes, err := jobs.ListOutcomes(r.Context(), id, limit)
		if err != nil {
			storeError(w, err)
			return
		}
		if outcomes == nil {
			outcomes = []*models.ApplicationOutcome{}
		}
		response.List(w, outcomes, response.ListMeta{Count: len(outcomes), Limit: limit})
	}
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Job config not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
