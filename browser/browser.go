// Package browser launches the headless chromium a resolution runs in.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/tera/terastream/capture"
	"github.com/tera/terastream/types"
)

// Launcher acquires a fresh Session, Session.Close releases it.
type Launcher interface {
	Launch(ctx context.Context, cookies []types.Cookie) (Session, error)
}

// Session is one browser process with one context and one page.
type Session interface {
	// Observe calls handle with the body of every finished response whose url
	// satisfies match, until stop is called.
	Observe(match func(url string) bool, handle func(capture.Response)) (stop func())
	// Navigate returns once the DOM content of url is loaded.
	Navigate(ctx context.Context, url string) error
	// Settle waits for the page network to go idle and observed responses to be
	// handled, for at most max.
	Settle(ctx context.Context, max time.Duration)
	Click(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// LaunchError is returned when a session could not be set up.
type LaunchError struct {
	Op  string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
