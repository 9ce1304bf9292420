package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lingocast/internal/gateway"
	"lingocast/internal/localstore"
	"lingocast/internal/logging"
	"lingocast/internal/querycache"
	"lingocast/internal/services"
	"lingocast/internal/services/backend"
)

// LoginFallbackMessage is shown when a failed login carries no server message.
const LoginFallbackMessage = "Login failed. Please check your credentials and try again."

// UserQueryPrefix is the cache key prefix invalidated after a login.
const UserQueryPrefix = "user"

// Authenticator is the subset of the backend API the session needs.
type Authenticator interface {
	Login(ctx context.Context, creds backend.Credentials) (backend.LoginResponse, error)
	Logout(ctx context.Context) error
}

// Invalidator drops cached queries.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix ...string) error
	Clear(ctx context.Context) error
}

// Session is the persisted authentication state.
type Session struct {
	Token string
	User  *backend.User
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Store persists the session in the local state database and drives the
// login and logout mutations.
type Store struct {
	kv       *localstore.Store
	api      Authenticator
	cache    Invalidator
	lockPath string
	onLogin  func()
	logger   *slog.Logger

	login  querycache.Mutation[backend.LoginResponse]
	logout querycache.Mutation[struct{}]
}

// Option customizes the store.
type Option func(*Store)

// WithLoginHook registers fn to run after every successful login.
func WithLoginHook(fn func()) Option {
	return func(s *Store) {
		s.onLogin = fn
	}
}

// WithLockPath serializes session writes across processes with a file lock.
func WithLockPath(path string) Option {
	return func(s *Store) {
		s.lockPath = path
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New constructs a session store. api and cache may be nil when the caller
// only reads the persisted state.
func New(kv *localstore.Store, api Authenticator, cache Invalidator, opts ...Option) *Store {
	s := &Store{kv: kv, api: api, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "session")
	return s
}

// Load reads the persisted session. A corrupt user record is dropped and the
// token alone still counts as authenticated.
func (s *Store) Load(ctx context.Context) (Session, error) {
	token, _, err := s.kv.Get(ctx, localstore.KeyAuthToken)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	sess := Session{Token: token}
	if !sess.Authenticated() {
		return sess, nil
	}
	raw, ok, err := s.kv.Get(ctx, localstore.KeyUserData)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if ok && raw != "" {
		var user backend.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Warn("stored user record unreadable",
				logging.String(logging.FieldEventType, "session_user_decode_failed"),
				logging.Error(err),
			)
		} else {
			sess.User = &user
		}
	}
	return sess, nil
}

// IsAuthenticated reports whether a token is persisted.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	sess, err := s.Load(ctx)
	return err == nil && sess.Authenticated()
}

// Token returns the persisted bearer token or "".
func (s *Store) Token(ctx context.Context) string {
	sess, err := s.Load(ctx)
	if err != nil {
		return ""
	}
	return sess.Token
}

// User returns the persisted user when authenticated.
func (s *Store) User(ctx context.Context) (backend.User, bool) {
	sess, err := s.Load(ctx)
	if err != nil || sess.User == nil {
		return backend.User{}, false
	}
	return *sess.User, true
}

// LoginInFlight reports whether a login call is pending.
func (s *Store) LoginInFlight() bool { return s.login.Pending() }

// LogoutInFlight reports whether a logout call is pending.
func (s *Store) LogoutInFlight() bool { return s.logout.Pending() }

// Login authenticates against the backend. On success the token and user are
// persisted, user queries are invalidated and true is returned. Failures
// carry the server's message or LoginFallbackMessage. It never retries.
func (s *Store) Login(ctx context.Context, creds backend.Credentials) (bool, error) {
	if s.api == nil {
		return false, services.Wrap(services.ErrConfiguration, "session", "login", "No backend configured", nil)
	}
	_, err := s.login.Mutate(ctx, func(ctx context.Context) (backend.LoginResponse, error) {
		resp, err := s.api.Login(ctx, creds)
		if err != nil {
			return resp, err
		}
		return resp, s.persist(ctx, resp)
	}, querycache.Callbacks[backend.LoginResponse]{
		OnSuccess: func(resp backend.LoginResponse) {
			if s.cache != nil {
				if err := s.cache.Invalidate(ctx, UserQueryPrefix); err != nil {
					s.logger.Warn("invalidate user queries failed", logging.Error(err))
				}
			}
			if s.onLogin != nil {
				s.onLogin()
			}
			s.logger.Info("logged in", logging.String("user_id", resp.User.ID.String()))
		},
	})
	if err != nil {
		return false, &LoginError{Message: gateway.ServerMessageOr(err, LoginFallbackMessage), Err: err}
	}
	return true, nil
}

func (s *Store) persist(ctx context.Context, resp backend.LoginResponse) error {
	user, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.withLock(ctx, func() error {
		if err := s.kv.SetMany(ctx, map[string]string{
			localstore.KeyAuthToken: resp.Token,
			localstore.KeyUserData:  string(user),
		}); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
		if err := s.kv.Delete(ctx, localstore.KeyForcedLogout); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
		return nil
	})
}

// Logout ends the session. Local state and the query cache are cleared even
// when the backend call fails; that failure is logged, not returned.
func (s *Store) Logout(ctx context.Context) error {
	var clearErr error
	_, _ = s.logout.Mutate(ctx, func(ctx context.Context) (struct{}, error) {
		if s.api == nil {
			return struct{}{}, nil
		}
		return struct{}{}, s.api.Logout(ctx)
	}, querycache.Callbacks[struct{}]{
		OnError: func(err error) {
			logging.WarnWithContext(s.logger, "backend logout failed", "logout_failed",
				"local session cleared anyway", logging.Error(err))
		},
		OnSettled: func(struct{}, error) {
			clearErr = s.Invalidate(ctx)
			if s.cache != nil {
				if err := s.cache.Clear(ctx); err != nil && clearErr == nil {
					clearErr = err
				}
			}
		},
	})
	return clearErr
}

// Invalidate removes the persisted token and user without calling the backend.
func (s *Store) Invalidate(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		if err := s.kv.Delete(ctx, localstore.KeyAuthToken, localstore.KeyUserData); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		return nil
	})
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if s.lockPath == "" {
		return fn()
	}
	return localstore.WithLock(ctx, s.lockPath, fn)
}

// LoginError is returned by Login. Message is the line shown to the user.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }

func (e *LoginError) Unwrap() error { return e.Err }

// IsLoginError reports whether err came from a failed login.
func IsLoginError(err error) bool {
	var loginErr *LoginError
	return errors.As(err, &loginErr)
}
