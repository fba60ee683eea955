// Package credentials is the single source of truth for "who is logged in":
// the bearer token, mirrored into the local database so a restart keeps the
// session, and the user snapshot, which is memory-only and refetched on
// start so stale profile data is never shown.
//
// The store is an explicitly constructed dependency passed to its consumers;
// there is no package-level instance. Consumers that need to react to
// changes register a callback via Subscribe.
package credentials

import (
	"context"
	"sync"

	"github.com/cvkitdev/cvkit/internal/client/models"
	"github.com/cvkitdev/cvkit/internal/client/repositories/metadata"
	"github.com/cvkitdev/cvkit/internal/common"
	"github.com/cvkitdev/cvkit/internal/logging"
)

// Store holds the current credential. All mutations replace whole values,
// so readers never observe a partially applied update.
type Store struct {
	meta metadata.Repository
	log  logging.Logger

	mu       sync.RWMutex
	token    string
	user     *models.User
	hydrated bool
	subs     []func()
}

func NewStore(meta metadata.Repository, log logging.Logger) *Store {
	return &Store{meta: meta, log: log}
}

// SetToken stores the token in memory and in the local database. A failed
// durable write degrades to a memory-only session and is logged, never
// surfaced: losing persistence only costs the user a re-login after restart.
func (s *Store) SetToken(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.meta.Set(ctx, common.TokenKey, []byte(token)); err != nil {
		s.log.Warn(ctx, "persisting token", "error", err)
	}
	s.notify()
}

// SetUser replaces the cached profile wholesale.
func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.notify()
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the last confirmed profile snapshot, or nil. It is only
// trustworthy while a token is present; a token without a user snapshot is
// the transient "verifying" state owned by the session controller.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Clear removes the token from memory and the local database and drops the
// user snapshot. Clearing an already-empty store is a no-op.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	changed := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.meta.Delete(ctx, common.TokenKey); err != nil {
		s.log.Warn(ctx, "clearing persisted token", "error", err)
	}
	if changed {
		s.notify()
	}
}

// Hydrate consults the local database once for a persisted token and then
// marks the store hydrated. Until that happens, readers must treat "no
// token" as a loading state, not as logged out. A read failure hydrates to
// the anonymous state rather than blocking forever.
func (s *Store) Hydrate(ctx context.Context) {
	value, err := s.meta.Get(ctx, common.TokenKey)
	if err != nil {
		s.log.Warn(ctx, "reading persisted token", "error", err)
	}

	s.mu.Lock()
	if s.token == "" && len(value) > 0 {
		s.token = string(value)
	}
	s.mu.Unlock()

	s.MarkHydrated()
}

// MarkHydrated records that durable storage has been consulted at least
// once. Idempotent; the session controller also calls it when hydration
// stalls past its deadline so the app never hangs in the loading state.
func (s *Store) MarkHydrated() {
	s.mu.Lock()
	already := s.hydrated
	s.hydrated = true
	s.mu.Unlock()

	if !already {
		s.notify()
	}
}

// Hydrated reports whether durable storage has been consulted.
func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Subscribe registers fn to run after every state change. Callbacks run
// outside the store's lock and must not block.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}
