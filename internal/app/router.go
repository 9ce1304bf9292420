package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"lingocast/internal/localstore"
	"lingocast/internal/logging"
)

// RouteName identifies a view.
type RouteName string

const (
	RouteLogin     RouteName = "login"
	RouteDashboard RouteName = "dashboard"
	RoutePodcasts  RouteName = "podcasts"
	RouteProgress  RouteName = "progress"
	RouteQuiz      RouteName = "quiz"
	RouteProfile   RouteName = "profile"
	RouteNotFound  RouteName = "not_found"
)

// Well-known paths.
const (
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
	PathPodcasts  = "/podcasts"
	PathProgress  = "/progress"
	PathProfile   = "/profile"
	PathRoot      = "/"
)

// ErrAuthRequired is returned when a protected route is entered without a session.
var ErrAuthRequired = errors.New("you need to log in first (run `lingocast login`)")

type routeDef struct {
	name      RouteName
	pattern   string
	protected bool
	redirect  string
}

var routeTable = []routeDef{
	{name: RouteLogin, pattern: PathLogin},
	{name: RouteDashboard, pattern: PathDashboard, protected: true},
	{name: RoutePodcasts, pattern: PathPodcasts, protected: true},
	{name: RouteProgress, pattern: PathProgress, protected: true},
	{name: RouteQuiz, pattern: "/quiz/:podcastId", protected: true},
	{name: RouteProfile, pattern: PathProfile, protected: true},
	{pattern: PathRoot, redirect: PathDashboard},
}

// Route is a resolved view.
type Route struct {
	Name      RouteName         `json:"name"`
	Path      string            `json:"path"`
	Params    map[string]string `json:"params,omitempty"`
	Protected bool              `json:"protected"`
	// RedirectedFrom is set when a guard or alias changed the destination.
	RedirectedFrom string `json:"redirected_from,omitempty"`
}

// Param returns a path parameter.
func (r Route) Param(name string) string {
	return r.Params[name]
}

// Resolve matches path against the route table without applying guards.
// Aliases are followed. Unknown paths resolve to RouteNotFound.
func Resolve(path string) Route {
	path = cleanPath(path)
	for _, def := range routeTable {
		params, ok := match(def.pattern, path)
		if !ok {
			continue
		}
		if def.redirect != "" {
			route := Resolve(def.redirect)
			route.RedirectedFrom = path
			return route
		}
		return Route{Name: def.name, Path: path, Params: params, Protected: def.protected}
	}
	return Route{Name: RouteNotFound, Path: path}
}

// QuizPath builds the quiz path for a podcast.
func QuizPath(podcastID string) string {
	return "/quiz/" + strings.TrimSpace(podcastID)
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return PathRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

func match(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return nil, false
	}
	var params map[string]string
	for i, part := range patternParts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			if pathParts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = pathParts[i]
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}
	return params, true
}

// Router tracks the active route and applies the authentication guards. The
// current path persists in the local store between invocations.
type Router struct {
	kv            *localstore.Store
	authenticated func(context.Context) bool
	logger        *slog.Logger

	mu      sync.Mutex
	current Route
}

// NewRouter restores the persisted route. authenticated reports whether a
// session exists.
func NewRouter(ctx context.Context, kv *localstore.Store, authenticated func(context.Context) bool, logger *slog.Logger) (*Router, error) {
	r := &Router{
		kv:            kv,
		authenticated: authenticated,
		logger:        logging.NewComponentLogger(logger, "router"),
		current:       Resolve(PathRoot),
	}
	if kv != nil {
		path, ok, err := kv.Get(ctx, localstore.KeyCurrentRoute)
		if err != nil {
			return nil, fmt.Errorf("restore route: %w", err)
		}
		if ok {
			r.current = Resolve(path)
		}
	}
	return r, nil
}

// Current returns the active route.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CurrentRoute returns the active path.
func (r *Router) CurrentRoute() string {
	return r.Current().Path
}

// Enter navigates to path after applying the guards. A protected route
// without a session lands on /login and returns ErrAuthRequired. The login
// route with a session lands on /dashboard.
func (r *Router) Enter(ctx context.Context, path string) (Route, error) {
	route := Resolve(path)
	authed := r.authenticated != nil && r.authenticated(ctx)

	var guardErr error
	switch {
	case route.Protected && !authed:
		from := route.Path
		route = Resolve(PathLogin)
		route.RedirectedFrom = from
		guardErr = ErrAuthRequired
	case route.Name == RouteLogin && authed:
		route = Resolve(PathDashboard)
		route.RedirectedFrom = PathLogin
	}
	if err := r.navigate(ctx, route); err != nil {
		return route, err
	}
	if route.RedirectedFrom != "" {
		r.logger.Debug("route redirected",
			logging.String("from", route.RedirectedFrom),
			logging.String(logging.FieldRoute, route.Path),
		)
	}
	return route, guardErr
}

// Navigate moves to path without guards.
func (r *Router) Navigate(ctx context.Context, path string) error {
	return r.navigate(ctx, Resolve(path))
}

func (r *Router) navigate(ctx context.Context, route Route) error {
	r.mu.Lock()
	r.current = route
	r.mu.Unlock()
	if r.kv == nil {
		return nil
	}
	if err := r.kv.Set(ctx, localstore.KeyCurrentRoute, route.Path); err != nil {
		return fmt.Errorf("persist route: %w", err)
	}
	return nil
}
