package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"lingocast/internal/config"
	"lingocast/internal/gateway"
	"lingocast/internal/library"
	"lingocast/internal/localstore"
	"lingocast/internal/logging"
	"lingocast/internal/progress"
	"lingocast/internal/querycache"
	"lingocast/internal/services/ai"
	"lingocast/internal/services/backend"
	"lingocast/internal/session"
	"lingocast/internal/workflow"
)

// Options customizes App construction.
type Options struct {
	// Logger replaces the logger built from the config.
	Logger *slog.Logger
	// Progress receives download progress bars. Nil disables them.
	Progress io.Writer
	// AI adds options to the AI client.
	AI []ai.Option
}

// App holds every service a command needs, built explicitly from the config.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *localstore.Store
	Gateway  *gateway.Client
	Cache    *querycache.Cache
	Backend  *backend.Client
	AI       *ai.Client
	Session  *session.Store
	Router   *Router
	Guard    *Guard
	Workflow *workflow.Service
	Library  *library.Library
	Progress *progress.Tracker
}

// New opens the local store and wires the services together.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	store, err := localstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Store: store}

	a.Gateway = gateway.New(cfg.Backend.BaseURL, cfg.BackendTimeout(),
		gateway.WithTokenSource(a.token),
		gateway.WithSessionGuard(a),
		gateway.WithLogger(logger),
	)
	a.Cache = querycache.New(querycache.Options{
		StaleTime: cfg.StaleTime(),
		Retries:   cfg.Cache.QueryRetries,
		Persister: store,
		Logger:    logger,
	})
	a.Backend = backend.New(a.Gateway)
	a.AI = ai.NewClient(ai.ConfigFromSettings(cfg.GetAI()), append([]ai.Option{ai.WithLogger(logger)}, opts.AI...)...)
	a.Session = session.New(store, a.Backend, a.Cache,
		session.WithLockPath(cfg.SessionLockPath()),
		session.WithLoginHook(a.Gateway.Rearm),
		session.WithLogger(logger),
	)

	a.Router, err = NewRouter(ctx, store, a.Session.IsAuthenticated, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.Guard = NewGuard(a.Router, a.Session, store, logger)

	a.Workflow = workflow.NewService(workflow.Options{
		Store:    store,
		API:      a.Backend,
		AI:       a.AI,
		Cache:    a.Cache,
		AudioDir: cfg.AudioDir(),
		LockPath: cfg.LockPath(),
		Logger:   logger,
	})
	a.Library = library.New(a.Backend, a.Cache, library.WithProgress(opts.Progress), library.WithLogger(logger))
	a.Progress = progress.New(a.Backend, a.Cache, progress.DefaultConcurrency, logger)
	return a, nil
}

// Close releases the local store. Services hold no other resources.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// CurrentRoute implements gateway.SessionGuard.
func (a *App) CurrentRoute() string {
	if a.Guard == nil {
		return ""
	}
	return a.Guard.CurrentRoute()
}

// ForceLogout implements gateway.SessionGuard.
func (a *App) ForceLogout(ctx context.Context) error {
	if a.Guard == nil {
		return nil
	}
	return a.Guard.ForceLogout(ctx)
}

func (a *App) token() string {
	if a.Session == nil {
		return ""
	}
	return a.Session.Token(context.Background())
}
