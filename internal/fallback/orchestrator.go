// Package fallback drives an ordered chain of AI providers until one returns a
// usable critique.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

const tracerName = "github.com/tjfontaine/ux-auditor/internal/fallback"

// ErrNoProviders is returned when the chain is empty.
var ErrNoProviders = errors.New("no AI providers configured")

// Attempt records one failed provider call.
type Attempt struct {
	Provider string
	Err      error
	Duration time.Duration
}

// ExhaustedError is returned when every provider in the chain failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Err.Error()
	}
	return fmt.Sprintf("all %d providers failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes every attempt error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// NormalizeFunc validates a raw critique. An error makes the orchestrator
// treat the provider as failed and move on.
type NormalizeFunc func(raw *domain.RawCritique) (*domain.Critique, error)

// Observer receives per-attempt outcomes. Result is "success" or an ErrorKind.
type Observer interface {
	ObserveAttempt(provider, result string, d time.Duration)
}

// Result is the winning critique.
type Result struct {
	Provider string
	Model    string
	Critique *domain.Critique
	// Failed lists providers tried before the winner.
	Failed []Attempt
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver records attempt metrics.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTokenEstimator estimates the prompt size once per run. The estimate is
// logged and set on every provider.critique span.
func WithTokenEstimator(estimate func(string) int) Option {
	return func(o *Orchestrator) { o.estimate = estimate }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// Orchestrator tries providers strictly in order, one at a time, and stops
// at the first success. A provider is never called twice in one run.
type Orchestrator struct {
	providers []domain.Provider
	normalize NormalizeFunc
	logger    *slog.Logger
	observer  Observer
	estimate  func(string) int
	tracer    trace.Tracer
}

// New creates an orchestrator over providers in priority order.
func New(providers []domain.Provider, normalize NormalizeFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers: append([]domain.Provider(nil), providers...),
		normalize: normalize,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Providers returns the names of the chain in order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// Run critiques the screenshot. It returns ErrNoProviders for an empty chain
// and *ExhaustedError when every provider failed.
func (o *Orchestrator) Run(ctx context.Context, screenshot []byte, prompt string) (*Result, error) {
	if len(o.providers) == 0 {
		return nil, ErrNoProviders
	}

	tokens := -1
	if o.estimate != nil {
		tokens = o.estimate(prompt)
		o.logger.DebugContext(ctx, "critique prompt prepared",
			"prompt_tokens_estimate", tokens,
			"screenshot_bytes", len(screenshot),
			"providers", o.Providers())
	}

	var failed []Attempt
	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			failed = append(failed, Attempt{Provider: p.Name(), Err: domain.WrapProviderError(p.Name(), err)})
			break
		}

		res, attempt := o.try(ctx, p, screenshot, prompt, tokens)
		if res != nil {
			res.Failed = failed
			return res, nil
		}
		failed = append(failed, attempt)
	}

	return nil, &ExhaustedError{Attempts: failed}
}

// try runs one provider. tokens is the prompt estimate, negative when unknown.
func (o *Orchestrator) try(ctx context.Context, p domain.Provider, screenshot []byte, prompt string, tokens int) (*Result, Attempt) {
	name := p.Name()
	ctx, span := o.tracer.Start(ctx, "provider.critique", trace.WithAttributes(attribute.String("ai.provider", name)))
	defer span.End()
	if tokens >= 0 {
		span.SetAttributes(attribute.Int("ai.prompt_tokens_estimate", tokens))
	}

	start := time.Now()
	raw, err := p.Critique(ctx, screenshot, prompt)
	var critique *domain.Critique
	if err == nil {
		critique, err = o.normalize(raw)
	}
	elapsed := time.Since(start)

	if err != nil {
		var pe *domain.ProviderError
		if !errors.As(err, &pe) {
			var ne *domain.NormalizationError
			if !errors.As(err, &ne) {
				err = domain.WrapProviderError(name, err)
			}
		}
		result := resultLabel(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		o.observe(name, result, elapsed)
		o.logger.WarnContext(ctx, "provider failed, falling back",
			"provider", name,
			"result", result,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return nil, Attempt{Provider: name, Err: err, Duration: elapsed}
	}

	o.observe(name, "success", elapsed)
	o.logger.InfoContext(ctx, "provider succeeded",
		"provider", name,
		"model", raw.Model,
		"duration_ms", elapsed.Milliseconds())
	return &Result{Provider: name, Model: raw.Model, Critique: critique}, Attempt{}
}

func (o *Orchestrator) observe(provider, result string, d time.Duration) {
	if o.observer != nil {
		o.observer.ObserveAttempt(provider, result, d)
	}
}

func resultLabel(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	var ne *domain.NormalizationError
	if errors.As(err, &ne) {
		return "normalization"
	}
	return "error"
}
