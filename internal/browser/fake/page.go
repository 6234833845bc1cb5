// Package fake provides a scriptable PageDriver for adapter and engine tests.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jobsuitex/autoapply/internal/browser"
)

// Page satisfies browser.PageDriver. Each behaviour is overridable through
// its Func field; unset funcs succeed. All calls are recorded in order.
type Page struct {
	GotoFunc     func(url string) error
	WaitFunc     func(selector string) error
	ClickFunc    func(selector string) error
	TypeFunc     func(selector, text string) error
	EvaluateFunc func(script string) (any, error)
	URLValue     string

	mu      sync.Mutex
	calls   []string
	cookies []browser.Cookie
	closed  int
}

func (p *Page) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

// Calls returns every call made so far, e.g. "click .apply-button".
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Closed reports how many times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Goto(_ context.Context, url string) error {
	p.record("goto %s", url)
	if p.GotoFunc != nil {
		return p.GotoFunc(url)
	}
	return nil
}

func (p *Page) WaitForSelector(_ context.Context, selector string) error {
	p.record("wait %s", selector)
	if p.WaitFunc != nil {
		return p.WaitFunc(selector)
	}
	return nil
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.record("click %s", selector)
	if p.ClickFunc != nil {
		return p.ClickFunc(selector)
	}
	return nil
}

func (p *Page) Type(_ context.Context, selector, text string) error {
	p.record("type %s %s", selector, text)
	if p.TypeFunc != nil {
		return p.TypeFunc(selector, text)
	}
	return nil
}

func (p *Page) Press(_ context.Context, key string) error {
	p.record("press %q", key)
	return nil
}

// Evaluate JSON round-trips the scripted value into out, the way a real
// browser result would be decoded.
func (p *Page) Evaluate(_ context.Context, script string, out any) error {
	p.record("evaluate %s", script)
	if p.EvaluateFunc == nil {
		return nil
	}
	v, err := p.EvaluateFunc(script)
	if err != nil || out == nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (p *Page) URL(_ context.Context) (string, error) {
	return p.URLValue, nil
}

func (p *Page) Cookies(_ context.Context) ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Cookie(nil), p.cookies...), nil
}

func (p *Page) SetCookies(_ context.Context, cookies []browser.Cookie) error {
	p.record("set-cookies %d", len(cookies))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append([]browser.Cookie(nil), cookies...)
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Source hands out a single Page.
type Source struct {
	Page *Page
	Err  error
}

func (s *Source) Acquire(_ context.Context) (browser.PageDriver, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Page, nil
}

var (
	_ browser.PageDriver = (*Page)(nil)
	_ browser.PageSource = (*Source)(nil)
)
