package naukri

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobsuitex/autoapply/internal/browser"
	"github.com/jobsuitex/autoapply/pkg/models"
)

type resultsPage struct {
	page browser.PageDriver
	opts Options
}

func (r *resultsPage) Search(ctx context.Context, c models.SearchCriteria) error {
	if err := r.page.WaitForSelector(ctx, selSearchBar); err != nil {
		return fmt.Errorf("wait for search bar: %w", err)
	}
	if err := r.fill(ctx, selKeywordInput, c.Keywords); err != nil {
		return err
	}
	if err := r.fill(ctx, selLocationInput, c.Location); err != nil {
		return err
	}
	if err := r.page.Click(ctx, selSearchButton); err != nil {
		return fmt.Errorf("run search: %w", err)
	}
	settle(ctx, r.opts.Settle)

	r.sort(ctx)
	return nil
}

// fill replaces the value of an input. Missing inputs are skipped.
func (r *resultsPage) fill(ctx context.Context, selector, value string) error {
	if value == "" {
		return nil
	}
	var present bool
	if err := r.page.Evaluate(ctx, clearInputScript(selector), &present); err != nil {
		return fmt.Errorf("clear %s: %w", selector, err)
	}
	if !present {
		slog.Debug("search input not found", "selector", selector)
		return nil
	}
	if err := r.page.Type(ctx, selector, value); err != nil {
		return fmt.Errorf("type %s: %w", selector, err)
	}
	return nil
}

// sort applies the configured sort order when the results view offers one.
// Failures only cost ordering, so they are logged and ignored.
func (r *resultsPage) sort(ctx context.Context) {
	ok, err := browser.Exists(ctx, r.page, selSortButton)
	if err != nil || !ok {
		slog.Debug("sort dropdown not found")
		return
	}
	if err := r.page.Click(ctx, selSortButton); err != nil {
		slog.Debug("could not open sort dropdown", "error", err)
		return
	}
	if err := r.page.WaitForSelector(ctx, selSortMenu); err != nil {
		slog.Debug("sort menu did not open", "error", err)
		return
	}
	option := sortOptionSelector(r.opts.SortBy)
	if ok, _ := browser.Exists(ctx, r.page, option); !ok {
		slog.Debug("sort option not found", "sort_by", r.opts.SortBy)
		return
	}
	if err := r.page.Click(ctx, option); err != nil {
		slog.Debug("could not choose sort option", "error", err)
		return
	}
	settle(ctx, r.opts.Settle)
}

func (r *resultsPage) Extract(ctx context.Context) ([]models.JobListing, error) {
	if err := r.page.WaitForSelector(ctx, selJobTuple); err != nil {
		return nil, fmt.Errorf("wait for job tuples: %w", err)
	}
	var listings []models.JobListing
	if err := r.page.Evaluate(ctx, extractScript, &listings); err != nil {
		return nil, fmt.Errorf("extract job tuples: %w", err)
	}
	return listings, nil
}

func (r *resultsPage) Next(ctx context.Context) (bool, error) {
	var clicked bool
	if err := r.page.Evaluate(ctx, nextPageScript, &clicked); err != nil {
		return false, fmt.Errorf("next page: %w", err)
	}
	if clicked {
		settle(ctx, r.opts.Settle)
	}
	return clicked, nil
}
