package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/fallback"
	"github.com/tjfontaine/ux-auditor/internal/heuristics"
	"github.com/tjfontaine/ux-auditor/internal/laws"
	"github.com/tjfontaine/ux-auditor/internal/provider"
	"github.com/tjfontaine/ux-auditor/internal/telemetry"
)

// State is a step of the audit state machine.
type State string

const (
	StateInit           State = "init"
	StateFetching       State = "fetching"
	StateStaticAnalysis State = "static_analysis"
	StateRendering      State = "rendering"
	StateAIAnalysis     State = "ai_analysis"
	StateAssembling     State = "assembling"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Critic produces an AI critique of a screenshot.
// *fallback.Orchestrator is the production implementation.
type Critic interface {
	Run(ctx context.Context, screenshot []byte, prompt string) (*fallback.Result, error)
	Providers() []string
}

// Recorder receives stage timings and audit outcomes.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	RecordAudit(outcome string)
}

// Config bounds a run.
type Config struct {
	// Budget is the wall-clock limit for the whole run.
	Budget        time.Duration
	Viewport      domain.Viewport
	RenderTimeout time.Duration
	// Prompt overrides provider.Prompt.
	Prompt string
}

const defaultBudget = 60 * time.Second

// Report entries used when the visual audit did not run.
const (
	msgSkipped      = "Visual Analysis Skipped: no AI provider configured."
	msgAIFailed     = "Visual Analysis Failed: could not reach any AI model. Falling back to Code Analysis."
	msgReachable    = "Page is reachable and returned HTML content."
	msgStaticFlow   = "Visual analysis was unavailable, so conversion advice is limited to the page markup findings above."
	troubleshootFmt = "Troubleshooting (%s): %s"

	msgImproveConfigure = "Configure an AI provider to enable the visual audit."
	msgImproveRender    = "Make sure the page renders in a headless browser so the visual audit can run."
	msgImproveRetry     = "Re-run the audit once an AI provider is reachable to get a visual critique."
)

var genericActionItems = []domain.ActionItem{
	{
		Element:  "Primary call to action",
		Issue:    "Visual prominence of the main call to action could not be verified without a screenshot review.",
		Severity: domain.SeveritySuggestion,
		Fix:      "Keep the primary CTA above the fold with strong contrast against its surroundings.",
	},
	{
		Element:  "Page layout",
		Issue:    "Layout and visual hierarchy were not reviewed by an AI model.",
		Severity: domain.SeveritySuggestion,
		Fix:      "Configure an AI provider key to enable the visual audit.",
	},
}

// Option configures the controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder records stage durations and outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithStateHook is called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// Controller runs audits. It holds no per-request state and is safe for
// concurrent use.
type Controller struct {
	fetcher  domain.Fetcher
	renderer domain.Renderer
	critic   Critic
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	onState  func(State)
	tracer   trace.Tracer
}

// New creates a controller. A nil critic behaves as an empty provider chain.
func New(fetcher domain.Fetcher, renderer domain.Renderer, critic Critic, cfg Config, opts ...Option) *Controller {
	if cfg.Budget <= 0 {
		cfg.Budget = defaultBudget
	}
	if cfg.Prompt == "" {
		cfg.Prompt = provider.Prompt
	}
	c := &Controller{
		fetcher:  fetcher,
		renderer: renderer,
		critic:   critic,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/tjfontaine/ux-auditor/internal/pipeline"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run carries the state of one audit.
type run struct {
	url      string
	signals  domain.StaticSignals
	findings heuristics.Findings

	session    domain.RenderSession
	screenshot []byte
	renderErr  error

	skipped bool
	result  *fallback.Result
	aiErr   error
}

// Analyze audits url. Only a failed fetch or an unexpected failure returns an
// error, which is always an *domain.AuditError; everything else degrades into the report.
func (c *Controller) Analyze(ctx context.Context, url string) (report *domain.AnalysisReport, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Budget)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "audit", trace.WithAttributes(attribute.String("audit.url", url)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = domain.ErrSystem(fmt.Errorf("panic during audit: %v", r))
		}
		if err != nil {
			c.transition(ctx, StateFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			report = nil
		}
	}()

	r := &run{url: url}
	c.transition(ctx, StateInit)

	c.transition(ctx, StateFetching)
	html, err := c.fetch(ctx, url)
	if err != nil {
		c.record(telemetry.OutcomeFetchError)
		return nil, domain.ErrFetch(err)
	}

	c.transition(ctx, StateStaticAnalysis)
	c.stage(ctx, "static_analysis", func(context.Context) error {
		r.signals = heuristics.Analyze(html)
		r.findings = heuristics.Evaluate(r.signals)
		return nil
	})

	c.transition(ctx, StateRendering)
	defer c.closeSession(ctx, r)
	c.render(ctx, r)

	r.skipped = c.critic == nil || len(c.critic.Providers()) == 0
	if r.renderErr == nil && !r.skipped {
		c.transition(ctx, StateAIAnalysis)
		c.critique(ctx, r)
	}

	c.transition(ctx, StateAssembling)
	report = assemble(r)

	outcome := telemetry.OutcomeStaticOnly
	if report.AIEnabled {
		outcome = telemetry.OutcomeAI
	}
	c.record(outcome)
	span.SetAttributes(
		attribute.Bool("audit.ai_enabled", report.AIEnabled),
		attribute.String("ai.provider", report.Provider))

	c.transition(ctx, StateDone)
	return report, nil
}

func (c *Controller) fetch(ctx context.Context, url string) (string, error) {
	var html string
	err := c.stage(ctx, "fetch", func(ctx context.Context) error {
		var err error
		html, err = c.fetcher.Fetch(ctx, url)
		return err
	})
	if err != nil {
		c.logger.WarnContext(ctx, "page fetch failed", "url", url, "error", err)
	}
	return html, err
}

// render opens a browser session and captures the screenshot. The session is
// stored on r as soon as it opens so closeSession releases it on every path.
func (c *Controller) render(ctx context.Context, r *run) {
	if c.renderer == nil {
		r.renderErr = &domain.RenderError{Phase: domain.RenderPhaseLaunch, URL: r.url, Err: errors.New("no renderer configured")}
		return
	}

	r.renderErr = c.stage(ctx, "render", func(ctx context.Context) error {
		session, err := c.renderer.Open(ctx)
		if err != nil {
			return err
		}
		r.session = session
		r.screenshot, err = session.Screenshot(ctx, r.url, domain.RenderOptions{
			Viewport: c.cfg.Viewport,
			Timeout:  c.cfg.RenderTimeout,
		})
		return err
	})
	if r.renderErr != nil {
		c.logger.WarnContext(ctx, "render failed, continuing with static analysis", "url", r.url, "error", r.renderErr)
	}
}

func (c *Controller) closeSession(ctx context.Context, r *run) {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		c.logger.WarnContext(ctx, "closing browser session", "error", err)
	}
}

func (c *Controller) critique(ctx context.Context, r *run) {
	c.stage(ctx, "ai_analysis", func(ctx context.Context) error {
		r.result, r.aiErr = c.critic.Run(ctx, r.screenshot, c.cfg.Prompt)
		return r.aiErr
	})
	if r.aiErr != nil {
		if errors.Is(r.aiErr, fallback.ErrNoProviders) {
			r.skipped = true
			r.aiErr = nil
			return
		}
		c.logger.WarnContext(ctx, "visual analysis failed, continuing with static analysis", "error", r.aiErr)
	}
}

// stage runs fn inside a span and records its duration.
func (c *Controller) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "audit."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if c.recorder != nil {
		c.recorder.ObserveStage(name, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Controller) transition(ctx context.Context, s State) {
	c.logger.DebugContext(ctx, "audit state", "state", string(s))
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Controller) record(outcome string) {
	if c.recorder != nil {
		c.recorder.RecordAudit(outcome)
	}
}

// assemble merges the static findings with the critique, if any.
func assemble(r *run) *domain.AnalysisReport {
	f := r.findings
	report := &domain.AnalysisReport{
		URL:   r.url,
		Title: r.signals.Title,
		Good:  append([]string{}, f.Good...),
		Bad:   append([]string{}, f.Bad...),
	}

	if r.result != nil && r.result.Critique != nil {
		crit := r.result.Critique
		report.Scores = crit.Scores
		report.Good = append(report.Good, crit.Good...)
		report.Bad = append(report.Bad, crit.Bad...)
		report.Improvements = append(append([]string{}, crit.Improvements...), f.Improvements...)
		report.ActionItems = append([]domain.ActionItem{}, crit.ActionItems...)
		report.LawsObservation = append([]domain.LawObservation{}, crit.Laws...)
		report.FlowAnalysis = crit.FlowAnalysis
		report.AIEnabled = true
		report.Provider = r.result.Provider
		if len(r.result.Failed) > 0 {
			report.DebugError = attemptsDebug(r.result.Failed)
		}
		return report
	}

	report.Scores = f.Scores
	report.Improvements = append([]string{}, f.Improvements...)
	report.LawsObservation = laws.Fallback(r.signals)
	report.FlowAnalysis = msgStaticFlow
	report.ActionItems = append([]domain.ActionItem{}, f.ActionItems...)
	if len(report.ActionItems) == 0 {
		report.ActionItems = append(report.ActionItems, genericActionItems...)
	}

	if r.renderErr != nil {
		report.Bad = append(report.Bad, renderMessage(r.renderErr))
		report.DebugError = "Render Error: " + r.renderErr.Error()
	}
	switch {
	case r.skipped:
		report.Bad = append(report.Bad, msgSkipped)
	case r.aiErr != nil:
		report.Bad = append(report.Bad, msgAIFailed)
		report.Bad = append(report.Bad, troubleshooting(r.aiErr)...)
		report.DebugError = "Visual/AI Error: " + r.aiErr.Error()
	}

	if len(report.Good) == 0 {
		report.Good = append(report.Good, msgReachable)
	}
	if len(report.Improvements) == 0 {
		report.Improvements = append(report.Improvements, fallbackImprovement(r))
	}
	return report
}

// fallbackImprovement names the next step towards a visual audit.
func fallbackImprovement(r *run) string {
	switch {
	case r.renderErr != nil:
		return msgImproveRender
	case r.skipped:
		return msgImproveConfigure
	default:
		return msgImproveRetry
	}
}

func renderMessage(err error) string {
	var re *domain.RenderError
	if errors.As(err, &re) {
		return "Visual Analysis Failed: " + re.UserMessage() + ". Falling back to Code Analysis."
	}
	return "Visual Analysis Failed: the page could not be rendered. Falling back to Code Analysis."
}

// troubleshooting turns each failed attempt into an actionable line,
// skipping repeats.
func troubleshooting(err error) []string {
	var ex *fallback.ExhaustedError
	if !errors.As(err, &ex) {
		return nil
	}

	seen := make(map[string]bool)
	var lines []string
	for _, a := range ex.Attempts {
		var msg string
		var pe *domain.ProviderError
		var ne *domain.NormalizationError
		switch {
		case errors.As(a.Err, &pe):
			msg = pe.UserMessage()
		case errors.As(a.Err, &ne):
			msg = "The AI response could not be understood."
		default:
			continue
		}
		line := fmt.Sprintf(troubleshootFmt, a.Provider, msg)
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	return lines
}

func attemptsDebug(attempts []fallback.Attempt) string {
	s := "Fallback used after: "
	for i, a := range attempts {
		if i > 0 {
			s += "; "
		}
		s += a.Err.Error()
	}
	return s
}
