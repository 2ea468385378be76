// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/printer-snatcher/internal/browser"
	"github.com/xkilldash9x/printer-snatcher/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Server() config.ServerConfig {
	args := m.Called()
	return args.Get(0).(config.ServerConfig)
}

func (m *MockConfig) API() config.APIConfig {
	args := m.Called()
	return args.Get(0).(config.APIConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Scraper() config.ScraperConfig {
	args := m.Called()
	return args.Get(0).(config.ScraperConfig)
}

func (m *MockConfig) Probe() config.ProbeConfig {
	args := m.Called()
	return args.Get(0).(config.ProbeConfig)
}

func (m *MockConfig) SetServerPort(p int)         { m.Called(p) }
func (m *MockConfig) SetBrowserHeadless(b bool)   { m.Called(b) }
func (m *MockConfig) SetBrowserExecPath(p string) { m.Called(p) }

// -- Prober Mock --

// MockProber mocks reachability.Prober.
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Reachable(ctx context.Context, host string) (bool, error) {
	args := m.Called(ctx, host)
	return args.Bool(0), args.Error(1)
}

// -- Fake Browser --

// Document is a fake DOM: selector to the textContent of every matching
// element, in document order.
type Document map[string][]string

// FakeBrowser implements browser.Launcher over a set of fake documents keyed
// by URL. It records what was opened, queried and closed so tests can
// assert on the browser lifecycle.
type FakeBrowser struct {
	Documents map[string]Document
	// NavigateErr, when set for a URL, is returned by Navigate.
	NavigateErr map[string]error
	// LaunchErr is returned by Launch when set.
	LaunchErr error
	// QueryHook, when set, is called before every selector query.
	QueryHook func(url, selector string) error

	mu       sync.Mutex
	sessions []*FakeSession
	queries  []string
}

var _ browser.Launcher = (*FakeBrowser)(nil)

// NewFakeBrowser creates an empty FakeBrowser.
func NewFakeBrowser() *FakeBrowser {
	return &FakeBrowser{
		Documents:   make(map[string]Document),
		NavigateErr: make(map[string]error),
	}
}

func (b *FakeBrowser) Launch(ctx context.Context) (browser.Session, error) {
	if b.LaunchErr != nil {
		return nil, b.LaunchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &FakeSession{browser: b, id: fmt.Sprintf("fake-%d", len(b.sessions)+1)}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Sessions returns every session launched so far.
func (b *FakeBrowser) Sessions() []*FakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*FakeSession(nil), b.sessions...)
}

// Queried reports whether selector was ever queried on any page.
func (b *FakeBrowser) Queried(selector string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.queries {
		if q == selector {
			return true
		}
	}
	return false
}

func (b *FakeBrowser) recordQuery(url, selector string) error {
	b.mu.Lock()
	b.queries = append(b.queries, selector)
	hook := b.QueryHook
	b.mu.Unlock()
	if hook != nil {
		return hook(url, selector)
	}
	return nil
}

// FakeSession implements browser.Session.
type FakeSession struct {
	browser *FakeBrowser
	id      string

	mu     sync.Mutex
	pages  []*FakePage
	closes int
}

func (s *FakeSession) ID() string { return s.id }

func (s *FakeSession) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return nil, browser.ErrSessionClosed
	}
	p := &FakePage{browser: s.browser}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *FakeSession) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closed reports whether Close was called at least once.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes > 0
}

// Pages returns the pages opened in this session.
func (s *FakeSession) Pages() []*FakePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakePage(nil), s.pages...)
}

// FakePage implements browser.Page against a Document.
type FakePage struct {
	browser *FakeBrowser

	mu     sync.Mutex
	url    string
	doc    Document
	closed bool
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.browser.NavigateErr[url]; err != nil {
		return err
	}
	doc, ok := p.browser.Documents[url]
	if !ok {
		return fmt.Errorf("navigation to %s failed: net::ERR_CONNECTION_REFUSED", url)
	}
	p.mu.Lock()
	p.url, p.doc = url, doc
	p.mu.Unlock()
	return nil
}

func (p *FakePage) query(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	url, doc := p.url, p.doc
	p.mu.Unlock()
	if err := p.browser.recordQuery(url, selector); err != nil {
		return nil, err
	}
	return doc[selector], nil
}

func (p *FakePage) Text(ctx context.Context, selector string) (string, error) {
	texts, err := p.query(ctx, selector)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("%q: %w", selector, browser.ErrElementNotFound)
	}
	return texts[0], nil
}

func (p *FakePage) TextAll(ctx context.Context, selector string) ([]string, error) {
	texts, err := p.query(ctx, selector)
	if err != nil {
		return nil, err
	}
	return append([]string{}, texts...), nil
}

func (p *FakePage) Exists(ctx context.Context, selector string) (bool, error) {
	texts, err := p.query(ctx, selector)
	if err != nil {
		return false, err
	}
	return len(texts) > 0, nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether the page was closed.
func (p *FakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
