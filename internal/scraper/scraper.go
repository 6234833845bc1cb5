// Package scraper collects job listings from a portal's paginated search
// results and narrows them down with the user's filter.
package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobsuitex/autoapply/pkg/models"
)

// ResultsPage is a portal's search results view bound to one browser page.
type ResultsPage interface {
	// Search runs the portal's search for criteria and leaves the page on
	// the first results view.
	Search(ctx context.Context, criteria models.SearchCriteria) error
	// Extract reads every listing on the current view. It must not navigate.
	Extract(ctx context.Context) ([]models.JobListing, error)
	// Next advances to the following results view and reports whether one
	// existed.
	Next(ctx context.Context) (bool, error)
}

// Scrape searches for criteria, collects listings from at most maxPages
// result views and returns those passing filter, in the order they were
// found. Filtering runs only after pagination is done.
func Scrape(ctx context.Context, page ResultsPage, criteria models.SearchCriteria, filter models.FilterCriteria, maxPages int) ([]models.JobListing, error) {
	all, err := Collect(ctx, page, criteria, maxPages)
	if err != nil {
		return nil, err
	}
	matched := Filter(all, filter)
	slog.Info("listings filtered", "scraped", len(all), "matched", len(matched))
	return matched, nil
}

// Collect returns every listing from at most maxPages result views. A
// failure on the first view is an error; later failures end pagination and
// keep what was collected.
func Collect(ctx context.Context, page ResultsPage, criteria models.SearchCriteria, maxPages int) ([]models.JobListing, error) {
	if maxPages < 1 {
		maxPages = 1
	}
	if err := page.Search(ctx, criteria); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var all []models.JobListing
	for n := 1; ; n++ {
		listings, err := page.Extract(ctx)
		if err != nil {
			if n == 1 {
				return nil, fmt.Errorf("extract page 1: %w", err)
			}
			slog.Warn("stopping pagination after extract failure", "page", n, "error", err)
			break
		}
		all = append(all, listings...)
		slog.Debug("page scraped", "page", n, "listings", len(listings))

		if n >= maxPages {
			break
		}
		more, err := page.Next(ctx)
		if err != nil {
			slog.Warn("stopping pagination after next-page failure", "page", n, "error", err)
			break
		}
		if !more {
			break
		}
	}
	return all, nil
}
