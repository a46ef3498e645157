// Package hisho is the public API for embedding the Hisho assistant
// orchestration core.
//
// Applications import this package to construct the conversational pipeline
// and feed it user text:
//
//	app, err := hisho.New(
//	    hisho.WithLogger(logger),
//	    hisho.WithDispatcher(myTools),
//	    hisho.WithConfirmer(myPrompt),
//	)
//	if err != nil { ... }
//	defer app.Close(context.Background())
//
//	info, _ := app.NewSession(ctx, "")
//	reply, err := app.HandleText(ctx, info.ID, "read notes.txt and launch editor")
//
// The import graph enforces a strict no-cycle rule: hisho (root) imports
// internal/*, but internal/* never imports hisho (root). Public interfaces
// (LLM, Dispatcher, Confirmer) are standalone; the adapters that bridge
// them live here because this is the only file that sees both sides of the
// boundary.
package hisho

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ashita-ai/hisho/internal/brain"
	"github.com/ashita-ai/hisho/internal/config"
	"github.com/ashita-ai/hisho/internal/dispatch"
	"github.com/ashita-ai/hisho/internal/llm"
	"github.com/ashita-ai/hisho/internal/memory"
	"github.com/ashita-ai/hisho/internal/model"
	"github.com/ashita-ai/hisho/internal/plan"
	"github.com/ashita-ai/hisho/internal/router"
	"github.com/ashita-ai/hisho/internal/session"
	"github.com/ashita-ai/hisho/internal/storage"
	"github.com/ashita-ai/hisho/internal/telemetry"
	"github.com/ashita-ai/hisho/migrations"
)

// App is the assembled assistant pipeline. Construct with New(). App has no
// public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	sessions     *session.Manager
	memory       *memory.Manager
	router       *router.Router
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the assistant. It opens the database, runs migrations,
// and wires the full decision pipeline. It does NOT start any goroutines —
// call RunCleanup for periodic session maintenance.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.databasePath != "" {
		cfg.DatabasePath = o.databasePath
	}
	if o.sessionTimeout > 0 {
		cfg.SessionTimeout = o.sessionTimeout
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("hisho starting", "version", version, "db_path", cfg.DatabasePath)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.New(context.Background(), cfg.DatabasePath, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("migrations: %w", err)
	}
	for i, extraFS := range o.extraMigrations {
		if err := db.RunMigrations(context.Background(), extraFS); err != nil {
			_ = db.Close()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("extra migrations[%d]: %w", i, err)
		}
	}

	mem := memory.NewManager(db, logger, cfg.HistoryWindow)
	sessions := session.NewManager(cfg.SessionTimeout)

	var client llm.Client
	if o.llm != nil {
		client = o.llm
	} else {
		client = newLLMClient(cfg, logger)
	}

	var dispatcher dispatch.Dispatcher
	if o.dispatcher != nil {
		dispatcher = &dispatcherAdapter{d: o.dispatcher}
	} else {
		dispatcher = dispatch.NewRegistry()
		logger.Warn("no dispatcher configured, tool and function calls will fail")
	}

	var confirmer router.Confirmer
	if o.confirmer != nil {
		confirmer = o.confirmer
	}

	b := brain.New(client, mem, sessions, logger)
	executor := plan.New(client, b, dispatcher, mem, logger, cfg.LogToolCalls)
	rt := router.New(b, executor, sessions, mem, dispatcher, confirmer, logger, router.Options{
		UseRules:           !o.disableRules,
		LogToolCalls:       cfg.LogToolCalls,
		ConfirmDestructive: cfg.ConfirmDangerous,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		sessions:     sessions,
		memory:       mem,
		router:       rt,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// HandleText processes one user utterance in the given session and returns
// the reply text. Unknown session ids are created on first use.
func (a *App) HandleText(ctx context.Context, sessionID, text string) (string, error) {
	return a.router.HandleText(ctx, sessionID, text)
}

// NewSession creates a fresh session with a generated id and registers it
// both live and durably. An empty name gets the default derived from the id.
func (a *App) NewSession(ctx context.Context, name string) (SessionInfo, error) {
	id := uuid.NewString()
	s := a.sessions.Create(id, name)
	if err := a.memory.CreateSession(ctx, id, s.Name); err != nil {
		return SessionInfo{}, fmt.Errorf("create session: %w", err)
	}
	return toSessionInfo(s), nil
}

// Sessions lists the live sessions, sorted by id. Expired-but-uncleaned
// sessions are included; call CleanupSessions first for a fresh view.
func (a *App) Sessions() []SessionInfo {
	live := a.sessions.List()
	out := make([]SessionInfo, len(live))
	for i, s := range live {
		out[i] = toSessionInfo(s)
	}
	return out
}

// CleanupSessions evicts sessions idle beyond the configured timeout from
// the live table and returns how many were removed. Durable history is
// never deleted.
func (a *App) CleanupSessions() int {
	return a.sessions.CleanupExpired()
}

// RunCleanup runs the periodic session eviction loop until ctx is cancelled.
func (a *App) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.CleanupExpired(); n > 0 {
				a.logger.Info("expired sessions evicted", "count", n)
			}
		}
	}
}

// History returns the durable message log for a session in insertion order,
// as role/content pairs.
func (a *App) History(ctx context.Context, sessionID string) ([][2]string, error) {
	msgs, err := a.memory.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([][2]string, len(msgs))
	for i, m := range msgs {
		out[i] = [2]string{string(m.Role), m.Content}
	}
	return out, nil
}

// Close flushes telemetry and closes the database.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("hisho shutting down")
	_ = a.otelShutdown(ctx)
	return a.db.Close()
}

// ── Adapters (defined here because this file imports both sides) ───────────────

// dispatcherAdapter wraps a public hisho.Dispatcher to satisfy the internal
// dispatch.Dispatcher interface.
type dispatcherAdapter struct {
	d Dispatcher
}

func (a *dispatcherAdapter) Dispatch(ctx context.Context, kind model.Action, target string, params map[string]any) (string, error) {
	return a.d.Dispatch(ctx, string(kind), target, params)
}

// ── Helpers ────────────────────────────────────────────────────────────────────

// newLLMClient picks the model backend: an explicit provider from config,
// or auto-detection preferring a configured OpenRouter key over a local
// Ollama probe.
func newLLMClient(cfg config.Config, logger *slog.Logger) llm.Client {
	switch cfg.LLMProvider {
	case "openrouter":
		logger.Info("llm provider: openrouter", "model", cfg.OpenRouterModel)
		return llm.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	case "ollama":
		logger.Info("llm provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	case "auto":
		fallthrough
	default:
		if cfg.OpenRouterAPIKey != "" {
			logger.Info("llm provider: openrouter (auto-detected)", "model", cfg.OpenRouterModel)
			return llm.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		}
		ollama := llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		if ollama.Reachable(context.Background()) {
			logger.Info("llm provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
			return ollama
		}
		logger.Warn("no llm provider reachable, model calls will fail until one is configured",
			"ollama_url", cfg.OllamaURL)
		return ollama
	}
}

func toSessionInfo(s model.Session) SessionInfo {
	return SessionInfo{
		ID:           s.SessionID,
		Name:         s.Name,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}
