package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jobsuitex/autoapply/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
// Search, filter, schedule, notification targets and listings are JSONB
// columns encoded by pgx's JSON codec.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Job configs ---

const jobConfigColumns = `id, user_id, portal, search, filter, schedule, ai_training, notifications,
	is_active, last_run, next_run, updated_at`

func scanJobConfig(row pgx.Row) (*models.JobConfig, error) {
	var c models.JobConfig
	err := row.Scan(&c.ID, &c.UserID, &c.Portal, &c.Search, &c.Filter, &c.Schedule, &c.AITraining,
		&c.Notifications, &c.IsActive, &c.LastRun, &c.NextRun, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateJobConfig inserts a config. Configs are normally written by the
// dashboard; the engine uses this for seeding and tests.
func (s *PostgresStore) CreateJobConfig(ctx context.Context, c *models.JobConfig) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.UpdatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_configs (id, user_id, portal, search, filter, schedule, ai_training, notifications,
			is_active, last_run, next_run, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.UserID, c.Portal, c.Search, c.Filter, c.Schedule, c.AITraining, notificationsOrEmpty(c.Notifications),
		c.IsActive, c.LastRun, c.NextRun, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveJobConfigs(ctx context.Context) ([]*models.JobConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobConfigColumns+` FROM job_configs WHERE is_active ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list active job configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.JobConfig
	for rows.Next() {
		c, err := scanJobConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *PostgresStore) GetJobConfig(ctx context.Context, id uuid.UUID) (*models.JobConfig, error) {
	c, err := scanJobConfig(s.pool.QueryRow(ctx,
		`SELECT `+jobConfigColumns+` FROM job_configs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job config: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateRunTimes(ctx context.Context, id uuid.UUID, lastRun *time.Time, nextRun time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_configs SET last_run = COALESCE($2, last_run), next_run = $3 WHERE id = $1`,
		id, lastRun, nextRun)
	if err != nil {
		return fmt.Errorf("update run times: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FlagInvalidSchedule(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_configs SET schedule_error = $2, next_run = NULL WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("flag invalid schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSchedule replaces the schedule and clears any earlier invalid flag
// and stored next run, so the scheduler recomputes it.
func (s *PostgresStore) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule models.Schedule) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_configs SET schedule = $2, schedule_error = NULL, next_run = NULL, is_active = TRUE, updated_at = $3
		 WHERE id = $1`, id, schedule, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_configs SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set job config active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAITraining stores a derived persona. updated_at moves so the scheduler
// picks up the new text on its next sync.
func (s *PostgresStore) SetAITraining(ctx context.Context, id uuid.UUID, training string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_configs SET ai_training = $2, updated_at = $3 WHERE id = $1`, id, training, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set ai training: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Credentials ---

func (s *PostgresStore) UpsertCredential(ctx context.Context, c *models.Credential) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO credentials (user_id, portal, username, encrypted_secret, is_valid, updated_at)
		 VALUES ($1, $2, $3, $4, TRUE, NOW())
		 ON CONFLICT (user_id, portal) DO UPDATE
		 SET username = EXCLUDED.username, encrypted_secret = EXCLUDED.encrypted_secret,
		     is_valid = TRUE, updated_at = NOW()`,
		c.UserID, c.Portal, c.Username, c.EncryptedSecret)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	c.IsValid = true
	return nil
}

func (s *PostgresStore) GetCredential(ctx context.Context, userID uuid.UUID, portal string) (*models.Credential, error) {
	var c models.Credential
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, portal, username, encrypted_secret, is_valid
		 FROM credentials WHERE user_id = $1 AND portal = $2`, userID, portal,
	).Scan(&c.UserID, &c.Portal, &c.Username, &c.EncryptedSecret, &c.IsValid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) InvalidateCredential(ctx context.Context, userID uuid.UUID, portal string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE credentials SET is_valid = FALSE, updated_at = NOW() WHERE user_id = $1 AND portal = $2`,
		userID, portal)
	if err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Outcomes ---

func (s *PostgresStore) RecordOutcome(ctx context.Context, o *models.ApplicationOutcome) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO application_outcomes (id, job_config_id, portal, listing, kind, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.JobConfigID, o.Portal, o.Listing, o.Kind, o.Reason, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, jobConfigID uuid.UUID, limit int) ([]*models.ApplicationOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_config_id, portal, listing, kind, reason, created_at
		 FROM application_outcomes WHERE job_config_id = $1 ORDER BY created_at DESC LIMIT $2`,
		jobConfigID, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.ApplicationOutcome
	for rows.Next() {
		var o models.ApplicationOutcome
		if err := rows.Scan(&o.ID, &o.JobConfigID, &o.Portal, &o.Listing, &o.Kind, &o.Reason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

func notificationsOrEmpty(targets []models.NotificationTarget) []models.NotificationTarget {
	if targets == nil {
		return []models.NotificationTarget{}
	}
	return targets
}
