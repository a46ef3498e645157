package hisho

import (
	"io/fs"
	"log/slog"
	"time"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger          *slog.Logger
	version         string
	databasePath    string
	sessionTimeout  time.Duration
	llm             LLM
	dispatcher      Dispatcher
	confirmer       Confirmer
	disableRules    bool
	extraMigrations []fs.FS
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in logs and telemetry.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithDatabasePath overrides the SQLite path from config (HISHO_DB_PATH env var).
func WithDatabasePath(path string) Option {
	return func(o *resolvedOptions) { o.databasePath = path }
}

// WithSessionTimeout overrides the inactivity timeout from config
// (HISHO_SESSION_TIMEOUT env var).
func WithSessionTimeout(d time.Duration) Option {
	return func(o *resolvedOptions) { o.sessionTimeout = d }
}

// WithLLM replaces the auto-detected language model client (OpenRouter/Ollama).
func WithLLM(client LLM) Option {
	return func(o *resolvedOptions) { o.llm = client }
}

// WithDispatcher sets the tool/function dispatcher. Without one, every tool
// and function call fails with an unknown-target error, which surfaces to
// the user as reply text.
func WithDispatcher(d Dispatcher) Option {
	return func(o *resolvedOptions) { o.dispatcher = d }
}

// WithConfirmer sets the yes/no gate invoked before destructive actions.
// Without one, gated actions proceed unprompted.
func WithConfirmer(c Confirmer) Option {
	return func(o *resolvedOptions) { o.confirmer = c }
}

// WithoutRuleRouting disables the deterministic rule pre-pass so every
// utterance goes straight to the model brain.
func WithoutRuleRouting() Option {
	return func(o *resolvedOptions) { o.disableRules = true }
}

// WithExtraMigrations adds an additional SQL migration filesystem to run
// after the embedded migrations. Multiple filesystems may be registered;
// they are applied in registration order.
func WithExtraMigrations(dir fs.FS) Option {
	return func(o *resolvedOptions) { o.extraMigrations = append(o.extraMigrations, dir) }
}
