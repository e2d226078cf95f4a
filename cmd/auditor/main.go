package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/fallback"
	"github.com/tjfontaine/ux-auditor/internal/fetch"
	"github.com/tjfontaine/ux-auditor/internal/normalize"
	"github.com/tjfontaine/ux-auditor/internal/pipeline"
	"github.com/tjfontaine/ux-auditor/internal/pkg/safehttp"
	"github.com/tjfontaine/ux-auditor/internal/provider"
	"github.com/tjfontaine/ux-auditor/internal/provider/gemini"
	"github.com/tjfontaine/ux-auditor/internal/provider/grok"
	"github.com/tjfontaine/ux-auditor/internal/provider/openai"
	"github.com/tjfontaine/ux-auditor/internal/render"
	"github.com/tjfontaine/ux-auditor/internal/server"
	"github.com/tjfontaine/ux-auditor/internal/telemetry"
	"github.com/tjfontaine/ux-auditor/internal/tokens"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the optional YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, os.Stdout, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	metrics := telemetry.NewMetrics()

	registry, err := provider.NewRegistry(grok.Factory(), gemini.Factory(), openai.Factory())
	if err != nil {
		log.Fatalf("Failed to register providers: %v", err)
	}
	chain, err := registry.BuildChain(cfg.Providers, provider.Options{
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to build provider chain: %v", err)
	}
	if len(chain) == 0 {
		logger.Warn("no AI provider configured; audits will use static analysis only")
	}

	renderer, err := render.New(render.Config{
		Mode:          render.Mode(cfg.Render.Mode),
		RemoteURL:     cfg.Render.RemoteURL,
		ExecPath:      cfg.Render.ExecPath,
		MaxConcurrent: cfg.Render.MaxConcurrent,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to configure renderer: %v", err)
	}

	counter := tokens.NewCounter(cfg.Providers.OpenAI.Model)
	critic := fallback.New(chain, normalize.Critique,
		fallback.WithLogger(logger),
		fallback.WithObserver(metrics),
		fallback.WithTokenEstimator(counter.Estimate),
	)

	ctrl := pipeline.New(newFetcher(cfg.Fetch), renderer, critic, pipeline.Config{
		Budget:        cfg.Pipeline.Budget,
		Viewport:      domain.Viewport{Width: cfg.Render.ViewportWidth, Height: cfg.Render.ViewportHeight},
		RenderTimeout: cfg.Render.Timeout,
	}, pipeline.WithLogger(logger), pipeline.WithRecorder(metrics))

	srv := server.New(ctrl, server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Metrics:        metrics.Handler(),
		Recorder:       metrics,
		Providers:      critic.Providers(),
		Renderer:       string(renderer.Mode()),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("auditor started",
		slog.Any("providers", critic.Providers()),
		slog.String("renderer", string(renderer.Mode())),
		slog.Duration("budget", cfg.Pipeline.Budget))

	// In-flight audits may run up to the request timeout.
	if err := srv.Start(ctx, cfg.Server.RequestTimeout+5*time.Second); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("auditor shutdown complete")
}

func newFetcher(cfg config.FetchConfig) *fetch.Fetcher {
	var transport http.RoundTripper = safehttp.NewTransport()
	if cfg.AllowPrivate {
		transport = http.DefaultTransport
	}
	return fetch.New(
		fetch.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(transport)}),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBody(cfg.MaxBodyBytes),
	)
}
