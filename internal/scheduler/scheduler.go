// Package scheduler decides when each active JobConfig runs its cycle and
// guarantees at most one running cycle per config.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobsuitex/autoapply/pkg/models"
	"github.com/robfig/cron/v3"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrAlreadyRunning  = errors.New("cycle already running")
)

// DefaultTickSpec drives Tick when no spec is configured.
const DefaultTickSpec = "@every 1m"

// Runner executes one automation cycle for a config.
type Runner interface {
	RunCycle(ctx context.Context, cfg *models.JobConfig) error
}

// JobStore is the part of the config store the scheduler needs.
type JobStore interface {
	ListActiveJobConfigs(ctx context.Context) ([]*models.JobConfig, error)
	UpdateRunTimes(ctx context.Context, id uuid.UUID, lastRun *time.Time, nextRun time.Time) error
	FlagInvalidSchedule(ctx context.Context, id uuid.UUID, reason string) error
}

// registration is the in-memory state of one config. Whether its cycle is
// running is tracked on the Scheduler, so it survives unregistering.
type registration struct {
	cfg         *models.JobConfig
	nextRun     time.Time
	lastRun     *time.Time
	scheduleErr string
}

// ScheduleSnapshot is a read-only view of one registration.
type ScheduleSnapshot struct {
	JobConfigID uuid.UUID  `json:"job_config_id"`
	Portal      string     `json:"portal"`
	Frequency   string     `json:"frequency"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	Running     bool       `json:"running"`
	Error       string     `json:"error,omitempty"`
}

// Scheduler keeps registrations in memory and starts due cycles on each tick.
type Scheduler struct {
	store    JobStore
	runner   Runner
	tickSpec string
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.Mutex
	jobs    map[uuid.UUID]*registration
	running map[uuid.UUID]bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Scheduler. tickSpec is any robfig/cron spec; empty means
// DefaultTickSpec.
func New(store JobStore, runner Runner, tickSpec string) *Scheduler {
	if tickSpec == "" {
		tickSpec = DefaultTickSpec
	}
	logger := cronLogger{}
	return &Scheduler{
		store:    store,
		runner:   runner,
		tickSpec: tickSpec,
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		now:      time.Now,
		jobs:     make(map[uuid.UUID]*registration),
		running:  make(map[uuid.UUID]bool),
	}
}

// Start registers Tick with cron and runs one tick immediately so due jobs
// do not wait for the first interval.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.tickSpec, func() { s.Tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cancel = cancel

	s.cron.Start()
	slog.Info("scheduler started", "tick", s.tickSpec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Tick(ctx)
	}()
	return nil
}

// Stop halts ticking, cancels running cycles and waits for them to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

// Register adds or replaces the registration for cfg. A stored NextRun is
// kept; otherwise the first run is the schedule's next occurrence, which is
// persisted. An uninterpretable schedule is flagged in the store once and
// returns ErrInvalidSchedule.
func (s *Scheduler) Register(ctx context.Context, cfg *models.JobConfig) error {
	next, err := NextRun(cfg.Schedule, s.now())
	if err != nil {
		s.mu.Lock()
		prev, ok := s.jobs[cfg.ID]
		flagged := ok && prev.scheduleErr != "" && prev.cfg.UpdatedAt.Equal(cfg.UpdatedAt)
		s.jobs[cfg.ID] = &registration{cfg: cfg, lastRun: cfg.LastRun, scheduleErr: err.Error()}
		s.mu.Unlock()

		if !flagged {
			slog.Warn("job schedule is invalid", "job_config_id", cfg.ID, "error", err)
			if ferr := s.store.FlagInvalidSchedule(ctx, cfg.ID, err.Error()); ferr != nil {
				slog.Error("failed to flag invalid schedule", "job_config_id", cfg.ID, "error", ferr)
			}
		}
		return err
	}

	persist := cfg.NextRun == nil
	if !persist {
		next = *cfg.NextRun
	}

	s.mu.Lock()
	r := &registration{cfg: cfg, nextRun: next, lastRun: cfg.LastRun}
	if prev, ok := s.jobs[cfg.ID]; ok && r.lastRun == nil {
		r.lastRun = prev.lastRun
	}
	s.jobs[cfg.ID] = r
	s.mu.Unlock()

	slog.Debug("job registered", "job_config_id", cfg.ID, "next_run", next)
	if persist {
		if err := s.store.UpdateRunTimes(ctx, cfg.ID, nil, next); err != nil {
			slog.Error("failed to persist next run", "job_config_id", cfg.ID, "error", err)
		}
	}
	return nil
}

// Unregister drops the registration. A cycle already running finishes and
// still blocks a new cycle for the same config until it returns.
func (s *Scheduler) Unregister(id uuid.UUID) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	slog.Debug("job unregistered", "job_config_id", id)
}

// Tick syncs registrations with the store and starts every due cycle that
// is not already running.
func (s *Scheduler) Tick(ctx context.Context) {
	s.sync(ctx)

	now := s.now()
	s.mu.Lock()
	for id, r := range s.jobs {
		if r.scheduleErr != "" || r.nextRun.After(now) {
			continue
		}
		if err := s.claim(id); err != nil {
			slog.Debug("skipping due job", "job_config_id", id, "error", err)
			continue
		}
		s.wg.Add(1)
		go s.run(ctx, r.cfg)
	}
	s.mu.Unlock()
}

// claim marks the config running. Callers hold s.mu.
func (s *Scheduler) claim(id uuid.UUID) error {
	if s.running[id] {
		return ErrAlreadyRunning
	}
	s.running[id] = true
	return nil
}

// sync registers new or changed active configs and drops inactive ones.
func (s *Scheduler) sync(ctx context.Context) {
	configs, err := s.store.ListActiveJobConfigs(ctx)
	if err != nil {
		slog.Error("failed to list active job configs", "error", err)
		return
	}

	active := make(map[uuid.UUID]bool, len(configs))
	for _, cfg := range configs {
		active[cfg.ID] = true

		s.mu.Lock()
		r, ok := s.jobs[cfg.ID]
		current := ok && r.cfg.UpdatedAt.Equal(cfg.UpdatedAt)
		s.mu.Unlock()
		if current {
			continue
		}
		if err := s.Register(ctx, cfg); err != nil && !errors.Is(err, ErrInvalidSchedule) {
			slog.Error("failed to register job", "job_config_id", cfg.ID, "error", err)
		}
	}

	s.mu.Lock()
	for id := range s.jobs {
		if !active[id] {
			delete(s.jobs, id)
			slog.Debug("job no longer active", "job_config_id", id)
		}
	}
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context, cfg *models.JobConfig) {
	defer s.wg.Done()
	log := slog.With("job_config_id", cfg.ID, "portal", cfg.Portal)

	started := s.now()
	log.Info("cycle started")
	if err := s.runSafely(ctx, cfg); err != nil {
		log.Error("cycle failed", "error", err, "duration", s.now().Sub(started))
	} else {
		log.Info("cycle finished", "duration", s.now().Sub(started))
	}

	// The registration may have been replaced while the cycle ran; the
	// current one decides the next run.
	schedule := cfg.Schedule
	s.mu.Lock()
	r, ok := s.jobs[cfg.ID]
	if ok {
		schedule = r.cfg.Schedule
	}
	next, err := NextRun(schedule, s.now())
	delete(s.running, cfg.ID)
	if ok {
		r.lastRun = &started
		if err == nil {
			r.nextRun = next
		}
	}
	s.mu.Unlock()

	if err != nil {
		log.Warn("cannot reschedule job", "error", err)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.UpdateRunTimes(pctx, cfg.ID, &started, next); err != nil {
		log.Error("failed to persist run times", "error", err)
	}
}

func (s *Scheduler) runSafely(ctx context.Context, cfg *models.JobConfig) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in cycle: %v", rec)
		}
	}()
	return s.runner.RunCycle(ctx, cfg)
}

// Snapshot returns the current registrations ordered by config ID.
func (s *Scheduler) Snapshot() []ScheduleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduleSnapshot, 0, len(s.jobs))
	for id, r := range s.jobs {
		snap := ScheduleSnapshot{
			JobConfigID: id,
			Portal:      r.cfg.Portal,
			Frequency:   r.cfg.Schedule.Frequency,
			LastRun:     r.lastRun,
			Running:     s.running[id],
			Error:       r.scheduleErr,
		}
		if r.scheduleErr == "" {
			next := r.nextRun
			snap.NextRun = &next
		}
		out = append(out, snap)
	}
	slices.SortFunc(out, func(a, b ScheduleSnapshot) int {
		return strings.Compare(a.JobConfigID.String(), b.JobConfigID.String())
	})
	return out
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
