// Package services contains the application services of the cvkit client.
// The resume service decides which credential each call carries and keeps
// the capability map in step with resource lifecycle events.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/cvkitdev/cvkit/internal/client/api"
	"github.com/cvkitdev/cvkit/internal/client/capabilities"
	"github.com/cvkitdev/cvkit/internal/client/models"
	"github.com/cvkitdev/cvkit/internal/client/session"
	"github.com/cvkitdev/cvkit/internal/logging"
	"github.com/sethvargo/go-retry"
)

// readAttempts bounds retries of idempotent reads. Mutations are never
// retried, and neither is anything after a credential rejection.
const readAttempts = 3

// ResumeService exposes resume operations to the CLI. It consults the
// capability map only while the session has no bearer token; once
// authenticated, the server-side identity supersedes the secrets.
type ResumeService struct {
	client  api.Client
	session *session.Controller
	caps    *capabilities.Store
	log     logging.Logger
}

func NewResumeService(client api.Client, sess *session.Controller, caps *capabilities.Store, log logging.Logger) *ResumeService {
	return &ResumeService{client: client, session: sess, caps: caps, log: log}
}

// credentialsFor builds the credential set for a call scoped to resumeID.
// The edit secret is attached only when no bearer token is active.
func (s *ResumeService) credentialsFor(resumeID string) api.Credentials {
	creds := api.Credentials{Bearer: s.session.Token()}
	if creds.Bearer == "" && resumeID != "" {
		if secret, ok := s.caps.Capability(resumeID); ok {
			creds.EditToken = secret
		}
	}
	return creds
}

// recordAnonymousCreation captures the issued edit secret and ownership of
// a resume created without an account.
func (s *ResumeService) recordAnonymousCreation(ctx context.Context, r *models.Resume) {
	if r.EditToken != "" {
		s.caps.PutCapability(ctx, r.ID, r.EditToken)
	}
	s.caps.AddOwnedResume(ctx, r.ID)
}

// Generate creates a resume from a prompt. When the caller is anonymous the
// server issues an edit secret in the response; it is stored so the creator
// keeps mutation rights, and the resume id is recorded as owned.
func (s *ResumeService) Generate(ctx context.Context, req api.GenerateRequest) (*models.Resume, error) {
	creds := api.Credentials{Bearer: s.session.Token()}

	r, err := s.client.GenerateResume(ctx, creds, req)
	if err != nil {
		return nil, err
	}
	if creds.Bearer == "" {
		s.recordAnonymousCreation(ctx, r)
	}
	return r, nil
}

// Get fetches a resume by id or slug. Idempotent, so transport failures are
// retried a bounded number of times.
func (s *ResumeService) Get(ctx context.Context, idOrSlug string) (*models.Resume, error) {
	var out *models.Resume
	err := s.retryRead(ctx, func(ctx context.Context) error {
		r, err := s.client.GetResume(ctx, s.credentialsFor(""), idOrSlug)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// List returns the caller's resumes: all of them when authenticated, the
// anonymously created ones (by owned id) otherwise. An anonymous caller
// with no owned resumes gets an empty list without a round trip.
func (s *ResumeService) List(ctx context.Context) ([]models.ResumeListItem, error) {
	creds := api.Credentials{Bearer: s.session.Token()}

	var ids []string
	if creds.Bearer == "" {
		ids = s.caps.OwnedResumes()
		if len(ids) == 0 {
			return nil, nil
		}
	}

	var out []models.ResumeListItem
	err := s.retryRead(ctx, func(ctx context.Context) error {
		items, err := s.client.ListResumes(ctx, creds, ids)
		if err != nil {
			return err
		}
		out = items
		return nil
	})
	return out, err
}

// Update applies a partial edit. Not retried: mutations are the caller's
// to re-issue.
func (s *ResumeService) Update(ctx context.Context, id string, req api.UpdateResumeRequest) (*models.Resume, error) {
	return s.client.UpdateResume(ctx, s.credentialsFor(id), id, req)
}

// Delete removes a resume and, on success, forgets its ownership and edit
// secret.
func (s *ResumeService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteResume(ctx, s.credentialsFor(id), id); err != nil {
		return err
	}
	s.caps.RemoveOwnedResume(ctx, id)
	return nil
}

// Duplicate copies a resume. The copy may come back with a freshly issued
// edit secret when the caller is anonymous.
func (s *ResumeService) Duplicate(ctx context.Context, id string) (*models.Resume, error) {
	creds := s.credentialsFor(id)

	r, err := s.client.DuplicateResume(ctx, creds, id)
	if err != nil {
		return nil, err
	}
	if creds.Bearer == "" {
		s.recordAnonymousCreation(ctx, r)
	}
	return r, nil
}

// Improve asks the backend to rewrite one section of a resume.
func (s *ResumeService) Improve(ctx context.Context, req api.ImproveRequest) (*api.ImproveResponse, error) {
	return s.client.ImproveResume(ctx, s.credentialsFor(req.ResumeID), req)
}

// GeneratePDF renders the resume and returns the download URL.
func (s *ResumeService) GeneratePDF(ctx context.Context, id string) (string, error) {
	return s.client.GeneratePDF(ctx, s.credentialsFor(id), id)
}

// retryRead runs fn with bounded retries. Only transport failures are
// retryable; a credential rejection or a business error is terminal.
func (s *ResumeService) retryRead(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(readAttempts-1, retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, api.ErrUnavailable) {
			s.log.Warn(ctx, "retrying read", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}
