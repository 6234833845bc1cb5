// Package naukri implements portal.Adapter for naukri.com.
package naukri

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jobsuitex/autoapply/internal/apply"
	"github.com/jobsuitex/autoapply/internal/browser"
	"github.com/jobsuitex/autoapply/internal/portal"
	"github.com/jobsuitex/autoapply/internal/scraper"
	"github.com/jobsuitex/autoapply/pkg/models"
)

const Name = "naukri"

type Options struct {
	// SortBy is the results sort option title, e.g. "Date" or "Relevance".
	SortBy string
	// Settle is the pause after actions that make the page re-render.
	Settle time.Duration
}

type Adapter struct {
	opts Options
}

func New(opts Options) *Adapter {
	if opts.SortBy == "" {
		opts.SortBy = defaultSortOption
	}
	return &Adapter{opts: opts}
}

func (a *Adapter) Name() string    { return Name }
func (a *Adapter) HomeURL() string { return homeURL }

func (a *Adapter) IsLoggedIn(ctx context.Context, page browser.PageDriver) (bool, error) {
	if url, err := page.URL(ctx); err == nil && strings.Contains(url, jobsPath) {
		return true, nil
	}
	return browser.Exists(ctx, page, selLogout)
}

func (a *Adapter) Login(ctx context.Context, page browser.PageDriver, username, password string) error {
	if err := page.Goto(ctx, landingURL); err != nil {
		return err
	}
	if err := page.Click(ctx, selLoginLink); err != nil {
		return fmt.Errorf("open login drawer: %w", err)
	}
	if err := page.WaitForSelector(ctx, selUsername); err != nil {
		return fmt.Errorf("wait for login form: %w", err)
	}
	if err := page.Type(ctx, selUsername, username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}
	if err := page.Type(ctx, selPassword, password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	if err := page.Click(ctx, selLoginSubmit); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	settle(ctx, a.opts.Settle)

	ok, err := a.IsLoggedIn(ctx, page)
	if err != nil {
		return fmt.Errorf("check login: %w", err)
	}
	if ok {
		return nil
	}
	rejected, err := browser.Exists(ctx, page, selLoginError)
	if err == nil && rejected {
		return portal.ErrInvalidCredential
	}
	return errors.New("naukri: login not confirmed")
}

func (a *Adapter) Results(page browser.PageDriver) scraper.ResultsPage {
	return &resultsPage{page: page, opts: a.opts}
}

func (a *Adapter) OpenListing(ctx context.Context, page browser.PageDriver, listing models.JobListing) error {
	if listing.ApplyLink == "" {
		return fmt.Errorf("listing %q has no apply link", listing.Title)
	}
	return page.Goto(ctx, listing.ApplyLink)
}

// maxProfileChars bounds the profile text handed to the model.
const maxProfileChars = 20000

// ProfileText opens the user's profile and returns its visible text.
func (a *Adapter) ProfileText(ctx context.Context, page browser.PageDriver) (string, error) {
	if err := page.Goto(ctx, profileURL); err != nil {
		return "", err
	}
	if err := page.WaitForSelector(ctx, selSearchBar); err != nil {
		return "", fmt.Errorf("wait for profile: %w", err)
	}
	var text string
	if err := page.Evaluate(ctx, profileTextScript, &text); err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("naukri: profile page is empty")
	}
	if r := []rune(text); len(r) > maxProfileChars {
		text = string(r[:maxProfileChars])
	}
	return text, nil
}

func (a *Adapter) Form(page browser.PageDriver) apply.Form {
	return &form{page: page, skipIndex: -1}
}

func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var (
	_ portal.Adapter       = (*Adapter)(nil)
	_ portal.ProfileReader = (*Adapter)(nil)
)
