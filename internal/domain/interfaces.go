package domain

import (
	"context"
	"time"
)

// Provider is an AI vision backend able to critique a screenshot.
// Implementations encode the image, build their own request envelope and return
// the raw content. They never normalize.
type Provider interface {
	Name() string

	// Critique sends the screenshot and prompt to the backend.
	// Failures are reported as *ProviderError.
	Critique(ctx context.Context, screenshot []byte, prompt string) (*RawCritique, error)
}

// Viewport is the browser window size used for screenshots.
type Viewport struct {
	Width  int
	Height int
}

// RenderOptions configures a single screenshot.
type RenderOptions struct {
	Viewport Viewport
	Timeout  time.Duration
}

// Renderer acquires browser sessions.
type Renderer interface {
	// Open acquires a browser session. The caller must Close it.
	Open(ctx context.Context) (RenderSession, error)
}

// RenderSession is a scoped browser handle.
type RenderSession interface {
	// Screenshot navigates to url and returns PNG bytes. Failures are *RenderError.
	Screenshot(ctx context.Context, url string, opts RenderOptions) ([]byte, error)
	Close() error
}

// Fetcher retrieves the HTML of a target page.
type Fetcher interface {
	// Fetch returns the response body. Failures are *FetchError.
	Fetch(ctx context.Context, url string) (string, error)
}
