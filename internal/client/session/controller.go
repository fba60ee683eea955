// Package session implements the authentication lifecycle: hydration of a
// persisted token, verification against the server, login/register/logout
// and the forced local logout when any request is rejected.
//
// It is the only component the rest of the application talks to for "who am
// I". The credential store is owned here; no other code writes to it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cvkitdev/cvkit/internal/client/api"
	"github.com/cvkitdev/cvkit/internal/client/credentials"
	"github.com/cvkitdev/cvkit/internal/client/models"
	"github.com/cvkitdev/cvkit/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// State is the session lifecycle position.
type State string

const (
	// StateUnresolved means durable storage has not been consulted yet.
	// Callers must treat it as "loading", never as "logged out".
	StateUnresolved State = "unresolved"

	// StateAnonymous means no token is active.
	StateAnonymous State = "anonymous"

	// StateVerifying means a token exists but the profile fetch that
	// confirms it is still in flight.
	StateVerifying State = "verifying"

	// StateAuthenticated means the token was accepted and the profile
	// snapshot is loaded.
	StateAuthenticated State = "authenticated"
)

// DefaultHydrationTimeout bounds how long Start waits for durable storage
// before forcing hydration to complete.
const DefaultHydrationTimeout = 2 * time.Second

// Controller drives the session state machine.
type Controller struct {
	client           api.Client
	creds            *credentials.Store
	log              logging.Logger
	hydrationTimeout time.Duration

	mu    sync.RWMutex
	state State
	subs  []func(State)
}

// NewController wires the controller to the credential store and the API
// client, registering itself as the client's unauthorized observer: a
// rejected credential anywhere tears the session down.
func NewController(client api.Client, creds *credentials.Store, log logging.Logger, hydrationTimeout time.Duration) *Controller {
	if hydrationTimeout <= 0 {
		hydrationTimeout = DefaultHydrationTimeout
	}
	c := &Controller{
		client:           client,
		creds:            creds,
		log:              log,
		hydrationTimeout: hydrationTimeout,
		state:            StateUnresolved,
	}
	client.OnUnauthorized(c.handleUnauthorized)
	return c
}

// Start resolves the initial session state: hydrate the credential store
// (bounded by the hydration timeout), then verify any persisted token with
// a profile fetch.
//
// A failed verification clears the stored credential and lands in the
// anonymous state without surfacing an error: there is nothing useful a
// caller could do with it at startup, and a stale token left active would
// block the anonymous path for good.
func (c *Controller) Start(ctx context.Context) {
	hctx, cancel := context.WithTimeout(ctx, c.hydrationTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.creds.Hydrate(hctx)
		close(done)
	}()

	select {
	case <-done:
	case <-hctx.Done():
		c.log.Warn(ctx, "hydration stalled, forcing completion")
		c.creds.MarkHydrated()
	}

	token := c.creds.Token()
	if token == "" {
		c.setState(StateAnonymous)
		return
	}

	c.setState(StateVerifying)
	if err := c.loadUser(ctx, token); err != nil {
		c.log.Warn(ctx, "session verification failed, clearing credential", "error", err)
		c.creds.Clear(ctx)
		c.setState(StateAnonymous)
		return
	}
	c.setState(StateAuthenticated)
}

// Login authenticates and loads the profile before returning, so a nil
// error means the session is fully authenticated.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	res, err := c.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return c.adopt(ctx, res.Token)
}

// Register creates an account and, like Login, returns only once the
// session is fully authenticated.
func (c *Controller) Register(ctx context.Context, email, password, name string) error {
	res, err := c.client.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	return c.adopt(ctx, res.Token)
}

// adopt stores a freshly issued token and drives verifying->authenticated.
func (c *Controller) adopt(ctx context.Context, token string) error {
	c.creds.SetToken(ctx, token)
	c.setState(StateVerifying)

	if err := c.loadUser(ctx, token); err != nil {
		c.creds.Clear(ctx)
		c.setState(StateAnonymous)
		return fmt.Errorf("loading profile: %w", err)
	}
	c.setState(StateAuthenticated)
	return nil
}

// Logout clears the credential. Always succeeds locally; the server holds
// no session state to invalidate.
func (c *Controller) Logout(ctx context.Context) {
	c.creds.Clear(ctx)
	c.setState(StateAnonymous)
}

// RefreshUser refetches the profile with the current token. A no-op when
// anonymous. Unlike Start, failures propagate: the caller has a UI to show
// them in, and a 401 already tears the session down via the observer.
func (c *Controller) RefreshUser(ctx context.Context) error {
	token := c.creds.Token()
	if token == "" {
		return nil
	}
	return c.loadUser(ctx, token)
}

// UpdateProfile sends a partial profile update and replaces the cached
// snapshot with the server's whole-object response.
func (c *Controller) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*models.User, error) {
	token := c.creds.Token()
	user, err := c.client.UpdateProfile(ctx, api.Credentials{Bearer: token}, upd)
	if err != nil {
		return nil, err
	}
	c.creds.SetUser(user)
	return user, nil
}

func (c *Controller) loadUser(ctx context.Context, token string) error {
	user, err := c.client.Me(ctx, api.Credentials{Bearer: token})
	if err != nil {
		return err
	}
	c.creds.SetUser(user)
	return nil
}

// handleUnauthorized is the cross-cutting reaction to a rejected
// credential: clear the credential store and fall back to anonymous. The
// capability map is an independent store and is deliberately not touched.
func (c *Controller) handleUnauthorized() {
	c.creds.Clear(context.Background())
	c.setState(StateAnonymous)
}

// State returns the current lifecycle position.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentUser returns the confirmed profile snapshot, or nil.
func (c *Controller) CurrentUser() *models.User {
	return c.creds.User()
}

// Token returns the active bearer token, or "" when anonymous.
func (c *Controller) Token() string {
	return c.creds.Token()
}

// TokenExpiry reports the token's exp claim when the token happens to be a
// JWT. Display-only; the claim is read without signature verification and
// the token is otherwise treated as opaque.
func (c *Controller) TokenExpiry() (time.Time, bool) {
	token := c.creds.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subscribe registers fn to run after every state transition. Callbacks run
// outside the lock and must not block.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	subs := make([]func(State), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
