// Package auth drives the client side session through login, registration, logout
// and silent background refresh.
package auth

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/sessions"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/jrsteele09/lively-auth/verification"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Client routes navigated to after each flow
const (
	RouteHome            = "/"
	RouteEvents          = "/events"
	RouteRegisterSuccess = "/user/registerSuccess"
)

const DefaultRefreshTimeout = 15 * time.Second

// IdentityProvider is the account API as seen by the client
type IdentityProvider interface {
	Authenticate(ctx context.Context, creds users.Credentials) (*users.User, error)
	Register(ctx context.Context, creds users.Credentials) error
	Refresh(ctx context.Context, token string) (*users.User, error)
	CurrentUser(ctx context.Context, token string) (*users.User, error)
}

type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// Notifier surfaces errors the user should see, such as a forced logout
type Notifier func(err error)

type Controller struct {
	identity       IdentityProvider
	sessions       *sessions.Store
	navigator      Navigator
	notifier       Notifier
	refreshTimeout time.Duration
}

type Option func(*Controller)

func WithNavigator(navigator Navigator) Option {
	return func(c *Controller) {
		c.navigator = navigator
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(c *Controller) {
		c.notifier = notifier
	}
}

// WithRefreshTimeout bounds each background refresh call
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.refreshTimeout = timeout
		}
	}
}

func NewController(identity IdentityProvider, store *sessions.Store, options ...Option) (*Controller, error) {
	if identity == nil {
		return nil, errors.New("[NewController] identity provider is required")
	}
	if store == nil {
		return nil, errors.New("[NewController] session store is required")
	}
	c := &Controller{
		identity:       identity,
		sessions:       store,
		navigator:      NavigatorFunc(func(string) {}),
		notifier:       func(error) {},
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Start routes refresh timer fires to BackgroundRefresh. Each refresh runs under a
// timeout derived from ctx; cancelling ctx aborts refreshes in flight.
func (c *Controller) Start(ctx context.Context) {
	c.sessions.SetRefreshHandler(func() {
		refreshCtx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
		defer cancel()
		if err := c.BackgroundRefresh(refreshCtx); err != nil {
			log.Debug().Err(err).Msg("Background refresh did not renew the session")
		}
	})
}

// Login authenticates and, on success, establishes the session and navigates to the events page.
// On failure the session is left untouched.
func (c *Controller) Login(ctx context.Context, creds users.Credentials) (*users.User, error) {
	user, err := c.identity.Authenticate(ctx, creds)
	if err != nil {
		return nil, authError(err, "login")
	}
	if user == nil || user.Token == "" {
		return nil, authError(errors.New("no token in login response"), "login")
	}

	if err := c.sessions.SetSession(ctx, user, user.Token); err != nil {
		if !c.sessions.IsLoggedIn() {
			return nil, err
		}
		log.Warn().Err(err).Msg("Logged in but the session was not persisted")
	}

	log.Info().Str("userId", user.ID).Msg("Logged in")
	c.navigator.Navigate(RouteEvents)
	return c.sessions.Current().User, nil
}

// Register creates an account without establishing a session. The user must verify
// their email before the first login.
func (c *Controller) Register(ctx context.Context, creds users.Credentials) error {
	if err := c.identity.Register(ctx, creds); err != nil {
		return authError(err, "register")
	}
	c.navigator.Navigate(RegisterSuccessPath(creds.Email))
	return nil
}

func RegisterSuccessPath(email string) string {
	return RouteRegisterSuccess + "?email=" + verification.EscapeQueryValue(email)
}

// Logout clears the local session. It always succeeds; a failure to remove the
// persisted token is logged.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.sessions.Clear(ctx); err != nil {
		log.Err(err).Msg("Logout could not remove the persisted token")
	}
	log.Info().Msg("Logged out")
	c.navigator.Navigate(RouteHome)
}

// BackgroundRefresh renews the current token. A result that arrives after the
// session changed is discarded with ErrSessionChanged. Any other failure forces a logout.
func (c *Controller) BackgroundRefresh(ctx context.Context) error {
	current := c.sessions.Current()
	if !current.LoggedIn() {
		return apperrors.ErrNoSession
	}

	user, err := c.identity.Refresh(ctx, current.Token)
	if err == nil && (user == nil || user.Token == "") {
		err = errors.New("no token in refresh response")
	}
	if err != nil {
		return c.forceLogout(ctx, current.Generation, authError(err, "refresh"))
	}

	err = c.sessions.SetSessionIfCurrent(ctx, current.Generation, user, user.Token)
	switch {
	case apperrors.Is(err, sessions.ErrSessionChanged):
		log.Info().Msg("Discarding refresh result, session changed while it was in flight")
		return err
	case apperrors.Is(err, apperrors.ErrMalformedToken):
		// the store has already cleared itself
		c.notifier(err)
		c.navigator.Navigate(RouteHome)
		return err
	case err != nil:
		log.Warn().Err(err).Msg("Session refreshed but not persisted")
	}

	log.Debug().Str("userId", user.ID).Msg("Session refreshed")
	return nil
}

// Restore resolves a token persisted by an earlier process into a session with
// a "who am I" call. If the token is rejected it is removed.
func (c *Controller) Restore(ctx context.Context) error {
	if err := c.sessions.Load(ctx); err != nil {
		return err
	}
	pending := c.sessions.PendingToken()
	if pending == "" {
		return nil
	}
	generation := c.sessions.Generation()

	user, err := c.identity.CurrentUser(ctx, pending)
	if err == nil && user == nil {
		err = errors.New("empty user")
	}
	if err != nil {
		if clearErr := c.sessions.ClearIfCurrent(ctx, generation); clearErr != nil && !apperrors.Is(clearErr, sessions.ErrSessionChanged) {
			log.Err(clearErr).Msg("Failed to remove rejected persisted token")
		}
		return authError(err, "restore session")
	}

	raw := user.Token
	if raw == "" {
		raw = pending
	}
	if err := c.sessions.SetSessionIfCurrent(ctx, generation, user, raw); err != nil && !c.sessions.IsLoggedIn() {
		return err
	}
	log.Info().Str("userId", user.ID).Msg("Session restored")
	return nil
}

func (c *Controller) forceLogout(ctx context.Context, generation uint64, cause error) error {
	err := c.sessions.ClearIfCurrent(ctx, generation)
	if apperrors.Is(err, sessions.ErrSessionChanged) {
		log.Info().Err(cause).Msg("Refresh failed after the session changed, ignoring")
		return err
	}
	if err != nil {
		log.Err(err).Msg("Forced logout could not remove the persisted token")
	}

	log.Warn().Err(cause).Msg("Background refresh failed, logging out")
	c.notifier(cause)
	c.navigator.Navigate(RouteHome)
	return cause
}

// authError makes sure err carries ErrAuth while keeping any more specific sentinel in its chain
func authError(err error, action string) error {
	if apperrors.Is(err, apperrors.ErrAuth) {
		return apperrors.Wrapf(err, "%s", action)
	}
	return fmt.Errorf("%s: %w: %w", action, apperrors.ErrAuth, err)
}
