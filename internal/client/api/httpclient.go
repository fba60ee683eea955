package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cvkitdev/cvkit/internal/client/models"
	"github.com/cvkitdev/cvkit/internal/common"
	"github.com/cvkitdev/cvkit/internal/logging"
	"github.com/google/uuid"
)

// DefaultTimeout bounds every request. On expiry the in-flight call is
// aborted and surfaced as ErrUnavailable rather than left hanging.
const DefaultTimeout = 15 * time.Second

// HTTPClient is the Client implementation over the backend's REST surface.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     logging.Logger

	mu             sync.Mutex
	unauthorizedCb []func()
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the API rooted at baseURL (e.g.
// "http://localhost:3000/api"). A non-positive timeout selects
// DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		log:     log,
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// OnUnauthorized registers fn to be called whenever a call is rejected with
// a credential error.
func (c *HTTPClient) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorizedCb = append(c.unauthorizedCb, fn)
}

func (c *HTTPClient) notifyUnauthorized() {
	c.mu.Lock()
	cbs := make([]func(), len(c.unauthorizedCb))
	copy(cbs, c.unauthorizedCb)
	c.mu.Unlock()

	for _, fn := range cbs {
		fn()
	}
}

// do issues a single request. body (when non-nil) is marshalled as JSON;
// out (when non-nil) receives the decoded response body. A no-content or
// empty success response leaves out untouched. No call is ever retried here;
// retry policy belongs to the caller.
func (c *HTTPClient) do(ctx context.Context, method, path string, creds Credentials, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.RequestIDHeader, uuid.NewString())
	if creds.Bearer != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+creds.Bearer)
	}
	if creds.EditToken != "" {
		req.Header.Set(common.EditTokenHeader, creds.EditToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.classifyTransportError(ctx, method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn(ctx, "credential rejected", "method", method, "path", path)
		c.notifyUnauthorized()
		return ErrUnauthorized
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			// Success with an empty body: nothing to decode.
			return nil
		}
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// classifyTransportError folds timeouts and connection failures into
// ErrUnavailable. Caller-initiated cancellation passes through unchanged.
func (c *HTTPClient) classifyTransportError(ctx context.Context, method, path string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		c.log.Warn(ctx, "request did not reach the server", "method", method, "path", path, "error", err)
		return ErrUnavailable
	}
	return fmt.Errorf("request failed: %w", err)
}

// decodeAPIError builds an *APIError from a non-2xx response, reading the
// structured body when the server sent one.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{
		Status:     resp.StatusCode,
		StatusText: resp.Status,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Error   string              `json:"error"`
			Message string              `json:"message"`
			Details map[string][]string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			apiErr.Reason = body.Error
			apiErr.Message = body.Message
			apiErr.Details = body.Details
		}
	}

	return apiErr
}

func (c *HTTPClient) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	if name != "" {
		body["name"] = name
	}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", Credentials{}, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", Credentials{}, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Me(ctx context.Context, creds Credentials) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", creds, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, creds Credentials, upd ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPatch, "/auth/profile", creds, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GenerateResume(ctx context.Context, creds Credentials, req GenerateRequest) (*models.Resume, error) {
	var out models.Resume
	if err := c.do(ctx, http.MethodPost, "/resumes/generate", creds, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetResume(ctx context.Context, creds Credentials, idOrSlug string) (*models.Resume, error) {
	var out models.Resume
	if err := c.do(ctx, http.MethodGet, "/resumes/"+url.PathEscape(idOrSlug), creds, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListResumes(ctx context.Context, creds Credentials, ids []string) ([]models.ResumeListItem, error) {
	path := "/resumes"
	if len(ids) > 0 {
		q := url.Values{"ids": {strings.Join(ids, ",")}}
		path += "?" + q.Encode()
	}
	var out struct {
		Resumes []models.ResumeListItem `json:"resumes"`
	}
	if err := c.do(ctx, http.MethodGet, path, creds, nil, &out); err != nil {
		return nil, err
	}
	return out.Resumes, nil
}

func (c *HTTPClient) UpdateResume(ctx context.Context, creds Credentials, id string, req UpdateResumeRequest) (*models.Resume, error) {
	var out models.Resume
	if err := c.do(ctx, http.MethodPatch, "/resumes/"+url.PathEscape(id), creds, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteResume(ctx context.Context, creds Credentials, id string) error {
	return c.do(ctx, http.MethodDelete, "/resumes/"+url.PathEscape(id), creds, nil, nil)
}

func (c *HTTPClient) DuplicateResume(ctx context.Context, creds Credentials, id string) (*models.Resume, error) {
	body := map[string]string{"resumeId": id}
	var out models.Resume
	if err := c.do(ctx, http.MethodPost, "/resumes/duplicate", creds, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ImproveResume(ctx context.Context, creds Credentials, req ImproveRequest) (*ImproveResponse, error) {
	var out ImproveResponse
	if err := c.do(ctx, http.MethodPost, "/resumes/improve", creds, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GeneratePDF(ctx context.Context, creds Credentials, id string) (string, error) {
	body := map[string]string{"resumeId": id}
	var out struct {
		PDFURL string `json:"pdfUrl"`
	}
	if err := c.do(ctx, http.MethodPost, "/resumes/generate-pdf", creds, body, &out); err != nil {
		return "", err
	}
	return out.PDFURL, nil
}
