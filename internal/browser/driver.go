// Package browser abstracts the headless browser behind PageDriver so that
// portal adapters and tests never touch chromedp directly.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNavigationTimeout is returned when a navigation or selector wait runs
// past its deadline. Callers treat it as recoverable for the current step.
var ErrNavigationTimeout = errors.New("browser: navigation timeout")

// KeyEnter is the key sent by Press to submit a focused input.
const KeyEnter = "\r"

// PageDriver is one browser tab. Every call is bounded by the driver's
// action timeout in addition to ctx.
type PageDriver interface {
	Goto(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Press(ctx context.Context, key string) error
	// Evaluate runs a JS expression and decodes its JSON-able result into out.
	// out may be nil when the result is not needed.
	Evaluate(ctx context.Context, script string, out any) error
	URL(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	// Close closes the tab and returns it to its pool.
	Close() error
}

// PageSource hands out pages. Pool is the production implementation.
type PageSource interface {
	Acquire(ctx context.Context) (PageDriver, error)
}

// Cookie is the serialisable subset of a browser cookie needed to restore
// a logged-in session.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	HTTPOnly bool   `json:"http_only"`
	Secure   bool   `json:"secure"`
}

// Exists reports whether selector matches any element on the page.
func Exists(ctx context.Context, page PageDriver, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf("!!document.querySelector(%s)", JSString(selector))
	if err := page.Evaluate(ctx, script, &found); err != nil {
		return false, err
	}
	return found, nil
}

// JSString renders s as a JavaScript string literal.
func JSString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// RetryOnTimeout runs fn and, if it fails with ErrNavigationTimeout, waits
// backoff and runs it exactly once more.
func RetryOnTimeout(ctx context.Context, backoff time.Duration, fn func() error) error {
	err := fn()
	if !errors.Is(err, ErrNavigationTimeout) {
		return err
	}
	slog.Warn("navigation timed out, retrying once", "backoff", backoff, "error", err)

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}
	return fn()
}
