// Package browser wraps a headless Chrome behind three small interfaces so
// scraping code can be written (and tested) without a real browser.
//
// A Launcher starts one isolated browser per call. The resulting Session owns
// the browser process; each Page is a tab inside it. Closing the Session tears
// the process down, including any tabs still open.
package browser

import (
	"context"
	"errors"
)

// ErrElementNotFound is returned by Page.Text when the selector matches
// nothing in the current document.
var ErrElementNotFound = errors.New("element not found")

// ErrSessionClosed is returned when a page is requested from a session that
// has already been closed.
var ErrSessionClosed = errors.New("browser session closed")

// Page is a single browser tab.
type Page interface {
	// Navigate loads url and waits until the network has gone idle, bounded
	// by the page's navigation timeout.
	Navigate(ctx context.Context, url string) error
	// Text returns the textContent of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// TextAll returns the textContent of every element matching selector in
	// document order. No match is an empty slice, not an error.
	TextAll(ctx context.Context, selector string) ([]string, error)
	// Exists reports whether selector matches at least one element.
	Exists(ctx context.Context, selector string) (bool, error)
	Close() error
}

// Session is one isolated browser instance.
type Session interface {
	ID() string
	NewPage(ctx context.Context) (Page, error)
	// Close releases the browser. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
