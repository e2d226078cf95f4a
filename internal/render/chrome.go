// Package render captures page screenshots with a headless Chrome driven over the DevTools protocol.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

// Mode selects how a browser is obtained.
type Mode string

const (
	// ModeAuto uses ModeRemote when a remote URL is configured, ModeLocal otherwise.
	ModeAuto Mode = "auto"
	// ModeLocal launches a Chrome process per session.
	ModeLocal Mode = "local"
	// ModeRemote attaches to an already running browser over its DevTools websocket.
	ModeRemote Mode = "remote"
)

// DefaultTimeout bounds navigation plus capture when the caller gives none.
const DefaultTimeout = 30 * time.Second

// DefaultViewport is used when RenderOptions carries a zero viewport.
var DefaultViewport = domain.Viewport{Width: 1280, Height: 800}

// Config configures the Chrome renderer.
type Config struct {
	Mode      Mode
	RemoteURL string
	ExecPath  string

	// MaxConcurrent bounds simultaneously open sessions. Zero means one.
	MaxConcurrent int64
}

// Chrome implements domain.Renderer.
type Chrome struct {
	cfg    Config
	mode   Mode
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// New creates a Chrome renderer. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := resolveMode(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Chrome{
		cfg:    cfg,
		mode:   mode,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger.With("component", "renderer"),
	}, nil
}

func resolveMode(cfg Config) (Mode, error) {
	switch cfg.Mode {
	case "", ModeAuto:
		if cfg.RemoteURL != "" {
			return ModeRemote, nil
		}
		return ModeLocal, nil
	case ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		if cfg.RemoteURL == "" {
			return "", errors.New("render mode remote requires a remote URL")
		}
		return ModeRemote, nil
	default:
		return "", fmt.Errorf("unknown render mode %q", cfg.Mode)
	}
}

// Mode returns the resolved execution strategy.
func (c *Chrome) Mode() Mode {
	return c.mode
}

// Open acquires a slot and starts a browser tab. The session is bound to ctx.
func (c *Chrome) Open(ctx context.Context) (domain.RenderSession, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, &domain.RenderError{Phase: domain.RenderPhaseLaunch, Err: err}
	}

	allocCtx, allocCancel := c.allocator(ctx)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			c.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	s := &session{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		release: func() { c.sem.Release(1) },
		logger:  c.logger,
	}

	// The first Run starts the browser (or attaches to the remote one).
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, &domain.RenderError{Phase: domain.RenderPhaseLaunch, Err: err}
	}

	c.logger.Debug("browser session opened", "mode", c.mode)
	return s, nil
}

func (c *Chrome) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.mode == ModeRemote {
		return chromedp.NewRemoteAllocator(ctx, c.cfg.RemoteURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

type session struct {
	ctx     context.Context
	cancel  func()
	release func()
	logger  *slog.Logger
	once    sync.Once
}

// Screenshot navigates to url and captures the viewport as PNG.
func (s *session) Screenshot(ctx context.Context, url string, opts domain.RenderOptions) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	vp := opts.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}

	// Actions run on the browser context; stop them when either ctx ends.
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height)),
		chromedp.Navigate(url),
	)
	if err != nil {
		return nil, &domain.RenderError{Phase: domain.RenderPhaseNavigate, URL: url, Err: contextCause(runCtx, err)}
	}

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, &domain.RenderError{Phase: domain.RenderPhaseCapture, URL: url, Err: contextCause(runCtx, err)}
	}
	if len(buf) == 0 {
		return nil, &domain.RenderError{Phase: domain.RenderPhaseCapture, URL: url, Err: errors.New("empty screenshot")}
	}

	s.logger.Debug("screenshot captured", "url", url, "bytes", len(buf))
	return buf, nil
}

// Close shuts the tab and browser down and frees the slot. Safe to call twice.
func (s *session) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.release()
	})
	return nil
}

// contextCause prefers the context error so timeouts stay detectable with errors.Is.
func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

var _ domain.Renderer = (*Chrome)(nil)
