// Package portal establishes authenticated browser sessions on job portals
// and hands out the per-portal views used by the scraper and the apply flow.
package portal

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jobsuitex/autoapply/internal/apply"
	"github.com/jobsuitex/autoapply/internal/browser"
	"github.com/jobsuitex/autoapply/internal/scraper"
	"github.com/jobsuitex/autoapply/pkg/models"
)

var (
	// ErrInvalidCredential means the portal rejected the username or
	// password. It is terminal for the cycle and the credential should be
	// marked invalid.
	ErrInvalidCredential = errors.New("portal: credential rejected")
	ErrUnknownPortal     = errors.New("portal: unknown portal")
)

// Adapter is everything portal-specific: URLs, selectors and page flows.
type Adapter interface {
	Name() string
	// HomeURL is a page only reachable while logged in.
	HomeURL() string
	IsLoggedIn(ctx context.Context, page browser.PageDriver) (bool, error)
	// Login submits the interactive login form. It returns
	// ErrInvalidCredential when the portal rejects the credentials.
	Login(ctx context.Context, page browser.PageDriver, username, password string) error
	Results(page browser.PageDriver) scraper.ResultsPage
	OpenListing(ctx context.Context, page browser.PageDriver, listing models.JobListing) error
	Form(page browser.PageDriver) apply.Form
}

// ProfileReader is implemented by adapters that can show the logged-in
// user's own profile. Its text seeds the oracle persona when a config has no
// AI training of its own.
type ProfileReader interface {
	ProfileText(ctx context.Context, page browser.PageDriver) (string, error)
}

// Registry maps portal identifiers to adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPortal, name)
	}
	return a, nil
}

// Names lists the registered portals in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
