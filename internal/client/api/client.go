// Package api implements the REST client for the resume backend. It is the
// single chokepoint for all backend calls: it attaches credentials, enforces
// the request timeout, classifies failures and publishes unauthorized
// rejections to registered observers.
package api

import (
	"context"
	"encoding/json"

	"github.com/cvkitdev/cvkit/internal/client/models"
)

// Credentials selects what gets attached to a single call. Both fields may
// be set at once (e.g. a just-authenticated user still migrating a resume it
// created anonymously); the server is the final arbiter of precedence.
// Passing them explicitly keeps the client free of hidden store reads.
type Credentials struct {
	// Bearer is the access token, sent as "Authorization: Bearer <token>".
	Bearer string

	// EditToken is the per-resume edit secret, sent as X-Edit-Token.
	EditToken string
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// ProfileUpdate carries the PATCH /auth/profile body. Nil fields are
// omitted; the server responds with the whole updated profile.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
	Website   *string `json:"website,omitempty"`
	LinkedIn  *string `json:"linkedIn,omitempty"`
}

// GenerateRequest carries the POST /resumes/generate body.
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	Language   string `json:"language"`
	Title      string `json:"title,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	Model      string `json:"model,omitempty"`
}

// UpdateResumeRequest carries the PATCH /resumes/{id} body.
type UpdateResumeRequest struct {
	Title      *string         `json:"title,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	TemplateID *string         `json:"templateId,omitempty"`
	Language   *string         `json:"language,omitempty"`
}

// ImproveRequest carries the POST /resumes/improve body.
type ImproveRequest struct {
	ResumeID     string `json:"resumeId"`
	Section      string `json:"section"`
	Instructions string `json:"instructions"`
	Language     string `json:"language,omitempty"`
	Model        string `json:"model,omitempty"`
}

// ImproveResponse is the rewritten section content for a resume.
type ImproveResponse struct {
	ID      string          `json:"id"`
	Content json.RawMessage `json:"content"`
}

// Client is the backend API surface consumed by the session controller and
// the resume service. Implementations must classify failures into the
// package's error taxonomy and must never retry on their own.
type Client interface {
	Close() error

	// OnUnauthorized registers an observer invoked whenever any call is
	// rejected with a credential error. Observers must be fast and must not
	// issue requests.
	OnUnauthorized(fn func())

	Register(ctx context.Context, email, password, name string) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Me(ctx context.Context, creds Credentials) (*models.User, error)
	UpdateProfile(ctx context.Context, creds Credentials, upd ProfileUpdate) (*models.User, error)

	GenerateResume(ctx context.Context, creds Credentials, req GenerateRequest) (*models.Resume, error)
	GetResume(ctx context.Context, creds Credentials, idOrSlug string) (*models.Resume, error)
	ListResumes(ctx context.Context, creds Credentials, ids []string) ([]models.ResumeListItem, error)
	UpdateResume(ctx context.Context, creds Credentials, id string, req UpdateResumeRequest) (*models.Resume, error)
	DeleteResume(ctx context.Context, creds Credentials, id string) error
	DuplicateResume(ctx context.Context, creds Credentials, id string) (*models.Resume, error)
	ImproveResume(ctx context.Context, creds Credentials, req ImproveRequest) (*ImproveResponse, error)
	GeneratePDF(ctx context.Context, creds Credentials, id string) (string, error)
}
