package app

import (
	"context"
	"fmt"
	"log/slog"

	"lingocast/internal/localstore"
	"lingocast/internal/logging"
)

// sessionInvalidator clears the persisted session.
type sessionInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Guard implements gateway.SessionGuard on top of the router and session.
type Guard struct {
	router  *Router
	session sessionInvalidator
	kv      *localstore.Store
	logger  *slog.Logger
}

// NewGuard constructs the forced-logout hook.
func NewGuard(router *Router, session sessionInvalidator, kv *localstore.Store, logger *slog.Logger) *Guard {
	return &Guard{router: router, session: session, kv: kv, logger: logging.NewComponentLogger(logger, "router")}
}

// CurrentRoute returns the active path.
func (g *Guard) CurrentRoute() string {
	return g.router.CurrentRoute()
}

// ForceLogout clears both session keys, records where the user was and
// navigates to /login.
func (g *Guard) ForceLogout(ctx context.Context) error {
	from := g.router.CurrentRoute()
	if err := g.session.Invalidate(ctx); err != nil {
		return fmt.Errorf("forced logout: %w", err)
	}
	if g.kv != nil {
		if err := g.kv.Set(ctx, localstore.KeyForcedLogout, from); err != nil {
			return fmt.Errorf("forced logout: %w", err)
		}
	}
	g.logger.Info("redirected to login", logging.String("from", from))
	return g.router.Navigate(ctx, PathLogin)
}

// ForcedLogoutFrom reports the route a forced logout interrupted, if any.
// The marker is cleared by the next successful login.
func ForcedLogoutFrom(ctx context.Context, kv *localstore.Store) (string, bool) {
	if kv == nil {
		return "", false
	}
	from, ok, err := kv.Get(ctx, localstore.KeyForcedLogout)
	if err != nil || !ok {
		return "", false
	}
	return from, true
}
