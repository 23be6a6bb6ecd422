package cli

import (
	"context"
	"io"
	"log/slog"

	"docflow/internal/collection"
	"docflow/internal/config"
	"docflow/internal/gateway"
	"docflow/internal/remote"
	"docflow/internal/resilience"
	"docflow/internal/session"
)

// Browser runs the interactive document browser.
type Browser func(ctx context.Context, a *App) error

// App wires the front-end components for one invocation.
type App struct {
	cfg    *config.ClientConfig
	out    io.Writer
	in     io.Reader
	logger *slog.Logger

	Session *session.Session
	Client  *remote.Client
	Docs    *collection.Synchronizer
	Gateway *gateway.Gateway

	browse Browser
}

type Option func(*App)

// WithInput sets where prompts read from. Defaults to an empty reader.
func WithInput(r io.Reader) Option {
	return func(a *App) { a.in = r }
}

// WithSession replaces the session kept in the configured session file.
func WithSession(s *session.Session) Option {
	return func(a *App) { a.Session = s }
}

func WithBrowser(b Browser) Option {
	return func(a *App) { a.browse = b }
}

// New builds the component graph: session, remote client behind a circuit
// breaker, collection synchronizer and command gateway.
func New(cfg *config.ClientConfig, out io.Writer, logger *slog.Logger, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, out: out, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	if a.in == nil {
		a.in = eofReader{}
	}
	if a.Session == nil {
		s, err := session.Open(session.NewFileStore(cfg.SessionFile))
		if err != nil {
			return nil, err
		}
		a.Session = s
	}

	executor := resilience.NewExecutor(resilience.Config{
		Enabled:      cfg.Breaker.Enabled,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
		OpenTimeout:  cfg.Breaker.OpenTimeout,
	}, logger)
	a.Client = remote.New(cfg.APIURL, a.Session, cfg.Timeout,
		remote.WithExecutor(executor),
		remote.WithLogger(logger),
		remote.WithUnauthorized(a.signOut),
	)
	a.Docs = collection.New(a.Client,
		collection.WithPageSize(cfg.PageSize),
		collection.WithLogger(logger),
	)
	a.Gateway = gateway.New(a.Client, a.Session, a.Docs, logger)
	return a, nil
}

// Config is the client configuration in use.
func (a *App) Config() *config.ClientConfig { return a.cfg }

// Logger is the client logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	return a.Root(ctx).Execute(a.out, args)
}

// Close stops background loading. No snapshot is delivered afterwards.
func (a *App) Close() {
	a.Docs.Dispose()
}

// signOut forgets a token the store no longer accepts.
func (a *App) signOut() {
	if err := a.Session.Close(); err != nil {
		a.logger.Warn("session_close_failed", "error", err.Error())
	}
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
