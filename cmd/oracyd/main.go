// Command oracyd is the oracy tutoring server: it bridges student WebSocket
// connections to a pluggable model provider and persists session records.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nexuslearn/oracy/internal/config"
	"github.com/nexuslearn/oracy/internal/curriculum"
	curriculumpg "github.com/nexuslearn/oracy/internal/curriculum/postgres"
	"github.com/nexuslearn/oracy/internal/health"
	"github.com/nexuslearn/oracy/internal/observe"
	"github.com/nexuslearn/oracy/internal/prompt"
	"github.com/nexuslearn/oracy/internal/report"
	"github.com/nexuslearn/oracy/internal/resilience"
	"github.com/nexuslearn/oracy/internal/session"
	"github.com/nexuslearn/oracy/internal/store"
	storepg "github.com/nexuslearn/oracy/internal/store/postgres"
	"github.com/nexuslearn/oracy/internal/transport"
	oaembed "github.com/nexuslearn/oracy/pkg/provider/embeddings/openai"
	"github.com/nexuslearn/oracy/pkg/provider/voice"
	"github.com/nexuslearn/oracy/pkg/provider/voice/factory"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "oracyd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "oracyd: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("oracyd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "oracyd"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Model provider ────────────────────────────────────────────────────────
	creds := credentials(cfg)
	provider, variant, err := buildProvider(cfg, creds, logger)
	if err != nil {
		slog.Error("failed to build provider", "err", err)
		return 1
	}
	slog.Info("provider ready", "variant", variant, "name", provider.Name())

	// ── Persistence and curriculum ────────────────────────────────────────────
	var (
		sessionStore store.Store
		searcher     curriculum.Searcher
		checkers     []health.Checker
	)
	checkers = append(checkers, health.ProviderChecker(provider))

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := storepg.NewStore(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pg.Close()
		sessionStore = pg
		checkers = append(checkers, health.Checker{Name: "database", Check: rosterCheck(pg)})
		slog.Info("postgres store connected")

		if cfg.Providers.OpenAI.APIKey != "" {
			embedder, err := oaembed.New(cfg.Providers.OpenAI.APIKey, "")
			if err != nil {
				slog.Error("failed to build embeddings provider", "err", err)
				return 1
			}
			cpg, err := curriculumpg.NewStore(ctx, dsn, embedder)
			if err != nil {
				slog.Error("failed to open curriculum index", "err", err)
				return 1
			}
			defer cpg.Close()
			searcher = cpg
			slog.Info("curriculum vector index ready", "model", embedder.ModelID())
		}
	}
	if searcher == nil {
		searcher = curriculum.NewMemStore(curriculum.StarterSnippets())
		slog.Info("using in-memory curriculum index")
	}

	// ── Session manager ───────────────────────────────────────────────────────
	reporter, err := report.NewGenerator(provider, logger)
	if err != nil {
		slog.Error("failed to build report generator", "err", err)
		return 1
	}

	manager, err := session.NewManager(session.Config{
		Provider:              provider,
		Store:                 sessionStore,
		Curriculum:            searcher,
		Reporter:              reporter,
		Metrics:               metrics,
		Logger:                logger,
		ProcessThresholdBytes: cfg.Session.ProcessThresholdBytes,
		MinAudioBytes:         cfg.Session.MinAudioBytes,
		DisconnectTTL:         cfg.Session.DisconnectTTL,
		ProviderTimeout:       cfg.Session.ProviderTimeout,
		RequireKnownStudent:   cfg.Server.RequireKnownStudent,
	})
	if err != nil {
		slog.Error("failed to build session manager", "err", err)
		return 1
	}

	// ── HTTP routes ───────────────────────────────────────────────────────────
	wsHandler, err := transport.NewHandler(manager, logger)
	if err != nil {
		slog.Error("failed to build transport handler", "err", err)
		return 1
	}

	mux := http.NewServeMux()
	wsHandler.Register(mux)
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg, string(variant))
	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutdown signal received, stopping…")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProvider constructs the model provider. A pinned Default builds that
// single variant. With auto-selection, every configured real variant joins a
// failover chain so an outage at the primary vendor degrades to the next one
// instead of to silence. Mock is used only when nothing real is configured.
func buildProvider(cfg *config.Config, creds factory.Credentials, logger *slog.Logger) (voice.Provider, factory.Type, error) {
	if cfg.Providers.Default != "" {
		variant := factory.Type(cfg.Providers.Default)
		p, err := factory.New(variant, creds)
		return p, variant, err
	}

	available := factory.Available(creds)
	var chain []voice.Provider
	for _, t := range available {
		if t == factory.TypeMock && len(chain) > 0 {
			continue
		}
		p, err := factory.New(t, creds)
		if err != nil {
			return nil, "", fmt.Errorf("build %s: %w", t, err)
		}
		chain = append(chain, p)
	}
	if len(chain) == 1 {
		return chain[0], available[0], nil
	}

	f, err := resilience.NewFailover(chain, resilience.BreakerConfig{}, logger)
	if err != nil {
		return nil, "", err
	}
	return f, available[0], nil
}

// credentials maps the loaded config onto the provider factory inputs and
// threads the language-aware prompt builder into every variant.
func credentials(cfg *config.Config) factory.Credentials {
	return factory.Credentials{
		OpenAIAPIKey:        cfg.Providers.OpenAI.APIKey,
		OpenAIModel:         cfg.Providers.OpenAI.Model,
		OpenAIRealtimeModel: cfg.Providers.OpenAI.RealtimeModel,

		AzureEndpoint:   cfg.Providers.AzureOpenAI.Endpoint,
		AzureAPIKey:     cfg.Providers.AzureOpenAI.APIKey,
		AzureDeployment: cfg.Providers.AzureOpenAI.Deployment,
		AzureAPIVersion: cfg.Providers.AzureOpenAI.APIVersion,

		GeminiAPIKey: cfg.Providers.Gemini.APIKey,
		GeminiModel:  cfg.Providers.Gemini.Model,

		Voice:             cfg.Providers.Voice,
		Temperature:       cfg.Providers.Temperature,
		MaxResponseTokens: cfg.Providers.MaxResponseTokens,

		BuildPrompt: prompt.ForSession,
	}
}

// rosterCheck probes the database through a roster lookup. A missing row is
// healthy; only transport or query failures count against readiness.
func rosterCheck(pg *storepg.Store) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := pg.ResolveStudent(ctx, "readiness-probe")
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, variant string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          oracyd — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Provider", variant)
	printRow("Voice", cfg.Providers.Voice)
	if cfg.Storage.PostgresDSN != "" {
		printRow("Persistence", "postgres")
	} else {
		printRow("Persistence", "(in memory)")
	}
	printRow("Roster required", fmt.Sprintf("%t", cfg.Server.RequireKnownStudent))
	printRow("Disconnect TTL", cfg.Session.DisconnectTTL.String())
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-15s : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
