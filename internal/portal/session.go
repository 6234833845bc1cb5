package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsuitex/autoapply/internal/browser"
	"github.com/jobsuitex/autoapply/internal/cache"
	"github.com/jobsuitex/autoapply/pkg/models"
)

// SecretOpener decrypts a stored credential secret. secret.Box implements it.
type SecretOpener interface {
	Open(sealed string) (string, error)
}

// Session is an authenticated page on one portal.
type Session struct {
	Portal   string
	Username string
	Page     browser.PageDriver
	// Restored is true when cached cookies were enough to log in.
	Restored bool
}

// Authenticator logs pages in, reusing cached session cookies when they are
// still accepted.
type Authenticator struct {
	cache   cache.Cache
	secrets SecretOpener
	ttl     time.Duration
	backoff time.Duration
}

// NewAuthenticator creates an Authenticator. Cookies are cached for ttl;
// backoff is the pause before retrying a timed-out navigation.
func NewAuthenticator(c cache.Cache, secrets SecretOpener, ttl, backoff time.Duration) *Authenticator {
	return &Authenticator{cache: c, secrets: secrets, ttl: ttl, backoff: backoff}
}

// Login authenticates page on adapter's portal as cred.
func (a *Authenticator) Login(ctx context.Context, page browser.PageDriver, adapter Adapter, cred *models.Credential) (*Session, error) {
	log := slog.With("portal", adapter.Name(), "username", cred.Username)
	key := cache.SessionKey(adapter.Name(), cred.Username)
	session := &Session{Portal: adapter.Name(), Username: cred.Username, Page: page}

	if a.restore(ctx, page, adapter, key) {
		log.Info("session restored from cached cookies")
		session.Restored = true
		return session, nil
	}
	if err := a.cache.Delete(ctx, key); err != nil {
		log.Warn("could not drop stale session", "error", err)
	}

	password, err := a.secrets.Open(cred.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential: %w", err)
	}

	err = browser.RetryOnTimeout(ctx, a.backoff, func() error {
		return adapter.Login(ctx, page, cred.Username, password)
	})
	if err != nil {
		return nil, fmt.Errorf("login to %s: %w", adapter.Name(), err)
	}
	log.Info("logged in")

	a.persist(ctx, page, key)
	return session, nil
}

// restore applies cached cookies and reports whether they still log in.
func (a *Authenticator) restore(ctx context.Context, page browser.PageDriver, adapter Adapter, key string) bool {
	raw, found, err := a.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("session cache unavailable", "error", err)
		return false
	}
	if !found {
		return false
	}

	var cookies []browser.Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil || len(cookies) == 0 {
		return false
	}
	if err := page.SetCookies(ctx, cookies); err != nil {
		slog.Debug("could not apply cached cookies", "error", err)
		return false
	}

	err = browser.RetryOnTimeout(ctx, a.backoff, func() error {
		return page.Goto(ctx, adapter.HomeURL())
	})
	if err != nil {
		slog.Debug("could not open home page with cached cookies", "error", err)
		return false
	}
	ok, err := adapter.IsLoggedIn(ctx, page)
	return err == nil && ok
}

func (a *Authenticator) persist(ctx context.Context, page browser.PageDriver, key string) {
	cookies, err := page.Cookies(ctx)
	if err != nil || len(cookies) == 0 {
		return
	}
	raw, err := json.Marshal(cookies)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
		slog.Warn("could not cache session cookies", "error", err)
	}
}
