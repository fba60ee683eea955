// Package capabilities retains mutation rights over resumes created without
// an account. At anonymous creation time the server issues a one-time edit
// secret; this store keeps the resume-id -> secret map plus the index of
// resume ids created from this machine, mirrored into the local database.
//
// The map is only consulted while no bearer token is active: once a user
// authenticates, their server-side identity supersedes the secrets for
// everything they can see. Secrets for unclaimed resumes stay valid and
// stay stored.
package capabilities

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/cvkitdev/cvkit/internal/client/repositories/metadata"
	"github.com/cvkitdev/cvkit/internal/common"
	"github.com/cvkitdev/cvkit/internal/dbx"
	"github.com/cvkitdev/cvkit/internal/logging"
)

// MaxOwnedResumes caps the owned-resume index. Beyond it the oldest entries
// are evicted; the index is ordered most recent first.
const MaxOwnedResumes = 100

// Store is the capability map plus owned-resume index. Durable writes that
// fail degrade to memory-only state: an anonymous user may lose edit rights
// after a restart, which is an accepted soft failure, so no mutation here
// returns an error.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu      sync.RWMutex
	secrets map[string]string
	owned   []string
}

// NewStore loads any persisted capability state from db. Unreadable or
// malformed persisted state is dropped and logged, never fatal.
func NewStore(ctx context.Context, db *sql.DB, log logging.Logger) *Store {
	s := &Store{db: db, log: log, secrets: make(map[string]string)}

	repo := metadata.NewSQLiteRepository(db)

	if raw, err := repo.Get(ctx, common.EditTokensKey); err != nil {
		log.Warn(ctx, "reading edit secrets", "error", err)
	} else if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.secrets); err != nil {
			log.Warn(ctx, "decoding edit secrets", "error", err)
			s.secrets = make(map[string]string)
		}
	}

	if raw, err := repo.Get(ctx, common.ResumeIDsKey); err != nil {
		log.Warn(ctx, "reading owned-resume index", "error", err)
	} else if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.owned); err != nil {
			log.Warn(ctx, "decoding owned-resume index", "error", err)
			s.owned = nil
		}
	}

	return s
}

// PutCapability records the edit secret for a resume, overwriting any
// previous secret: a resume has exactly one active capability at a time.
func (s *Store) PutCapability(ctx context.Context, resumeID, secret string) {
	s.mu.Lock()
	s.secrets[resumeID] = secret
	s.mu.Unlock()

	s.persist(ctx)
}

// Capability returns the edit secret for a resume, if one is held.
func (s *Store) Capability(resumeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[resumeID]
	return secret, ok
}

// AddOwnedResume inserts resumeID at the front of the owned index. An id
// already present keeps its position; the index is truncated to
// MaxOwnedResumes, evicting the oldest entries.
func (s *Store) AddOwnedResume(ctx context.Context, resumeID string) {
	s.mu.Lock()
	found := false
	for _, id := range s.owned {
		if id == resumeID {
			found = true
			break
		}
	}
	if !found {
		s.owned = append([]string{resumeID}, s.owned...)
		if len(s.owned) > MaxOwnedResumes {
			s.owned = s.owned[:MaxOwnedResumes]
		}
	}
	s.mu.Unlock()

	if !found {
		s.persist(ctx)
	}
}

// RemoveOwnedResume drops resumeID from the index and deletes its edit
// secret. Called when the owner deletes the resume.
func (s *Store) RemoveOwnedResume(ctx context.Context, resumeID string) {
	s.mu.Lock()
	kept := s.owned[:0]
	for _, id := range s.owned {
		if id != resumeID {
			kept = append(kept, id)
		}
	}
	s.owned = kept
	delete(s.secrets, resumeID)
	s.mu.Unlock()

	s.persist(ctx)
}

// OwnedResumes returns the owned ids, most recent first.
func (s *Store) OwnedResumes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.owned))
	copy(out, s.owned)
	return out
}

// persist writes both durable keys in one transaction so the map and the
// index never diverge on disk. Failure is logged and the in-memory state
// stays authoritative for the rest of the process lifetime.
func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	secrets, _ := json.Marshal(s.secrets)
	ids, _ := json.Marshal(s.owned)
	s.mu.RUnlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.EditTokensKey, secrets); err != nil {
			return err
		}
		return repo.Set(ctx, common.ResumeIDsKey, ids)
	})
	if err != nil {
		s.log.Warn(ctx, "persisting capability state", "error", err)
	}
}
