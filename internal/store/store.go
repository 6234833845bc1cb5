package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jobsuitex/autoapply/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// JobConfigStore is read by the scheduler. The engine never creates configs;
// it only stamps run times and flags schedules it cannot interpret.
type JobConfigStore interface {
	ListActiveJobConfigs(ctx context.Context) ([]*models.JobConfig, error)
	GetJobConfig(ctx context.Context, id uuid.UUID) (*models.JobConfig, error)
	UpdateRunTimes(ctx context.Context, id uuid.UUID, lastRun *time.Time, nextRun time.Time) error
	FlagInvalidSchedule(ctx context.Context, id uuid.UUID, reason string) error
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule models.Schedule) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetAITraining(ctx context.Context, id uuid.UUID, training string) error
}

type CredentialStore interface {
	GetCredential(ctx context.Context, userID uuid.UUID, portal string) (*models.Credential, error)
	InvalidateCredential(ctx context.Context, userID uuid.UUID, portal string) error
}

type OutcomeStore interface {
	RecordOutcome(ctx context.Context, outcome *models.ApplicationOutcome) error
	ListOutcomes(ctx context.Context, jobConfigID uuid.UUID, limit int) ([]*models.ApplicationOutcome, error)
}

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	JobConfigStore
	CredentialStore
	OutcomeStore
}
