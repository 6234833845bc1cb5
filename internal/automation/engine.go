// Package automation runs one cycle for a JobConfig: log in, scrape and
// filter listings, apply to each and report the outcomes.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jobsuitex/autoapply/internal/ai"
	"github.com/jobsuitex/autoapply/internal/apply"
	"github.com/jobsuitex/autoapply/internal/browser"
	"github.com/jobsuitex/autoapply/internal/notify"
	"github.com/jobsuitex/autoapply/internal/portal"
	"github.com/jobsuitex/autoapply/internal/scraper"
	"github.com/jobsuitex/autoapply/internal/store"
	"github.com/jobsuitex/autoapply/pkg/models"
)

// ErrNoCredential means the config's user has no usable login for the portal.
var ErrNoCredential = errors.New("no valid credential")

// Notifier delivers messages without blocking. notify.Dispatcher implements it.
type Notifier interface {
	Notify(message string, targets []models.NotificationTarget)
}

// PersonaStore saves a persona derived from the user's portal profile.
type PersonaStore interface {
	SetAITraining(ctx context.Context, id uuid.UUID, training string) error
}

// Dependencies holds everything the engine needs.
type Dependencies struct {
	Portals       *portal.Registry
	Credentials   store.CredentialStore
	Outcomes      store.OutcomeStore
	Pages         browser.PageSource
	Authenticator *portal.Authenticator
	Oracle        *ai.Oracle
	Machine       *apply.Machine
	Notifier      Notifier
	// Personas is optional. When set, personas derived for configs without
	// AI training are saved so later cycles reuse them.
	Personas PersonaStore
	// DefaultTargets are notified on every application in addition to the
	// config's own targets.
	DefaultTargets []models.NotificationTarget
	MaxPages       int
	RetryBackoff   time.Duration
}

// Engine runs cycles. It holds no per-cycle state and is safe for
// concurrent use by the scheduler.
type Engine struct {
	deps Dependencies
}

func New(deps Dependencies) *Engine {
	if deps.MaxPages < 1 {
		deps.MaxPages = 1
	}
	return &Engine{deps: deps}
}

// Summary counts the outcomes of one cycle.
type Summary struct {
	Listings int
	Applied  int
	Skipped  int
	Failed   int
}

func (s *Summary) add(kind string) {
	switch kind {
	case models.OutcomeApplied:
		s.Applied++
	case models.OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// RunCycle runs one cycle for cfg. Per-listing failures are recorded as
// outcomes; only faults that end the whole cycle are returned.
func (e *Engine) RunCycle(ctx context.Context, cfg *models.JobConfig) error {
	_, err := e.Run(ctx, cfg)
	return err
}

// Run is RunCycle that also returns the outcome counts.
func (e *Engine) Run(ctx context.Context, cfg *models.JobConfig) (Summary, error) {
	var summary Summary
	log := slog.With("job_config_id", cfg.ID, "portal", cfg.Portal)

	adapter, err := e.deps.Portals.Get(cfg.Portal)
	if err != nil {
		return summary, err
	}

	cred, err := e.deps.Credentials.GetCredential(ctx, cfg.UserID, cfg.Portal)
	if errors.Is(err, store.ErrNotFound) {
		return summary, fmt.Errorf("%w: none stored for %s", ErrNoCredential, cfg.Portal)
	}
	if err != nil {
		return summary, fmt.Errorf("get credential: %w", err)
	}
	if !cred.IsValid {
		return summary, fmt.Errorf("%w: %s credential was rejected earlier", ErrNoCredential, cfg.Portal)
	}

	page, err := e.deps.Pages.Acquire(ctx)
	if err != nil {
		return summary, fmt.Errorf("acquire page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Warn("failed to close page", "error", err)
		}
	}()

	if _, err := e.deps.Authenticator.Login(ctx, page, adapter, cred); err != nil {
		if errors.Is(err, portal.ErrInvalidCredential) {
			if ierr := e.deps.Credentials.InvalidateCredential(ctx, cfg.UserID, cfg.Portal); ierr != nil {
				log.Error("failed to invalidate credential", "error", ierr)
			} else {
				log.Warn("credential rejected by portal and marked invalid")
			}
		}
		return summary, err
	}

	listings, err := scraper.Scrape(ctx, adapter.Results(page), cfg.Search, cfg.EffectiveFilter(), e.deps.MaxPages)
	if err != nil {
		return summary, fmt.Errorf("scrape: %w", err)
	}
	summary.Listings = len(listings)
	log.Info("listings selected", "count", len(listings))

	persona := cfg.AITraining
	if persona == "" {
		persona = e.derivePersona(ctx, page, adapter, cfg)
	}
	machine := e.deps.Machine.WithOracle(e.deps.Oracle.WithPersona(persona))
	targets := e.targets(cfg)

	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("cycle interrupted: %w", err)
		}

		outcome := e.applyTo(ctx, page, adapter, machine, cfg, listing)
		summary.add(outcome.Kind)

		if outcome.Kind == models.OutcomeApplied {
			e.deps.Notifier.Notify(notify.FormatApplied(listing), targets)
		}
		if err := e.deps.Outcomes.RecordOutcome(ctx, outcome); err != nil {
			log.Error("failed to record outcome", "listing", listing.Title, "error", err)
		}
	}

	log.Info("cycle summary",
		"listings", summary.Listings,
		"applied", summary.Applied,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (e *Engine) applyTo(ctx context.Context, page browser.PageDriver, adapter portal.Adapter, machine *apply.Machine, cfg *models.JobConfig, listing models.JobListing) *models.ApplicationOutcome {
	log := slog.With("job_config_id", cfg.ID, "portal", cfg.Portal, "listing", listing.Title)
	outcome := &models.ApplicationOutcome{
		ID:          uuid.New(),
		JobConfigID: cfg.ID,
		Portal:      cfg.Portal,
		Listing:     listing,
		CreatedAt:   time.Now().UTC(),
	}

	err := browser.RetryOnTimeout(ctx, e.deps.RetryBackoff, func() error {
		return adapter.OpenListing(ctx, page, listing)
	})
	if err != nil {
		log.Warn("could not open listing", "error", err)
		outcome.Kind, outcome.Reason = models.OutcomeFailed, fmt.Sprintf("open listing: %v", err)
		return outcome
	}

	result := machine.Run(ctx, adapter.Form(page))
	outcome.Kind, outcome.Reason = result.Outcome()
	log.Info("application finished", "state", result.State, "turns", result.Turns, "outcome", outcome.Kind)
	return outcome
}

// derivePersona builds a persona from the user's profile page when the
// adapter can show one. Any failure leaves the cycle with the generic persona.
func (e *Engine) derivePersona(ctx context.Context, page browser.PageDriver, adapter portal.Adapter, cfg *models.JobConfig) string {
	reader, ok := adapter.(portal.ProfileReader)
	if !ok {
		return ""
	}
	log := slog.With("job_config_id", cfg.ID, "portal", cfg.Portal)

	profile, err := reader.ProfileText(ctx, page)
	if err != nil {
		log.Warn("could not read profile for persona", "error", err)
		return ""
	}
	persona, err := e.deps.Oracle.DerivePersona(ctx, profile)
	if err != nil {
		log.Warn("could not derive persona", "error", err)
		return ""
	}
	log.Info("persona derived from profile", "chars", len(persona))

	if e.deps.Personas != nil {
		if err := e.deps.Personas.SetAITraining(ctx, cfg.ID, persona); err != nil {
			log.Error("failed to save derived persona", "error", err)
		}
	}
	return persona
}

// targets merges the config's notification targets with the defaults,
// dropping duplicates.
func (e *Engine) targets(cfg *models.JobConfig) []models.NotificationTarget {
	seen := make(map[models.NotificationTarget]bool)
	var out []models.NotificationTarget
	for _, list := range [][]models.NotificationTarget{cfg.Notifications, e.deps.DefaultTargets} {
		for _, t := range list {
			if t.Channel == "" || t.Destination == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
