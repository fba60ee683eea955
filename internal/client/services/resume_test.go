package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cvkitdev/cvkit/internal/client/api"
	"github.com/cvkitdev/cvkit/internal/client/capabilities"
	"github.com/cvkitdev/cvkit/internal/client/credentials"
	"github.com/cvkitdev/cvkit/internal/client/repositories/metadata"
	"github.com/cvkitdev/cvkit/internal/client/session"
	"github.com/cvkitdev/cvkit/internal/common"
	"github.com/cvkitdev/cvkit/internal/logging"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

type fixture struct {
	svc   *ResumeService
	caps  *capabilities.Store
	creds *credentials.Store
}

func setup(t *testing.T, baseURL string) *fixture {
	t.Helper()
	db := setupDB(t)
	log := testLogger()

	creds := credentials.NewStore(metadata.NewSQLiteRepository(db), log)
	caps := capabilities.NewStore(context.Background(), db, log)
	client := api.NewHTTPClient(baseURL, time.Second, log)
	t.Cleanup(func() { _ = client.Close() })
	sess := session.NewController(client, creds, log, 0)

	return &fixture{
		svc:   NewResumeService(client, sess, caps, log),
		caps:  caps,
		creds: creds,
	}
}

func TestGenerate_AnonymousStoresCapabilityAndOwnership(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/resumes/generate", r.URL.Path)
		require.Empty(t, r.Header.Get(common.AuthorizationHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","title":"My CV","editToken":"e1"}`))
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	ctx := context.Background()

	r, err := f.svc.Generate(ctx, api.GenerateRequest{Prompt: "software engineer", Language: "en"})
	require.NoError(t, err)
	require.Equal(t, "r1", r.ID)

	secret, ok := f.caps.Capability("r1")
	require.True(t, ok)
	require.Equal(t, "e1", secret)
	require.Equal(t, []string{"r1"}, f.caps.OwnedResumes())
}

func TestGenerate_AuthenticatedSkipsCapabilityMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer t1", r.Header.Get(common.AuthorizationHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","title":"My CV"}`))
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	f.creds.SetToken(context.Background(), "t1")

	_, err := f.svc.Generate(context.Background(), api.GenerateRequest{Prompt: "p", Language: "en"})
	require.NoError(t, err)

	_, ok := f.caps.Capability("r1")
	require.False(t, ok)
	require.Empty(t, f.caps.OwnedResumes())
}

func TestDelete_AttachesEditSecretAndForgetsResume(t *testing.T) {
	var gotEdit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"r1","title":"My CV","editToken":"e1"}`))
		case r.Method == http.MethodDelete:
			require.Equal(t, "/resumes/r1", r.URL.Path)
			gotEdit = r.Header.Get(common.EditTokenHeader)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, api.GenerateRequest{Prompt: "p", Language: "en"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "r1"))

	require.Equal(t, "e1", gotEdit, "anonymous delete must carry the issued edit secret")
	require.NotContains(t, f.caps.OwnedResumes(), "r1")
	_, ok := f.caps.Capability("r1")
	require.False(t, ok)
}

func TestDelete_FailureKeepsCapabilityState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"r1","title":"My CV","editToken":"e1"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"not allowed"}`))
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, api.GenerateRequest{Prompt: "p", Language: "en"})
	require.NoError(t, err)

	require.Error(t, f.svc.Delete(ctx, "r1"))
	require.Contains(t, f.caps.OwnedResumes(), "r1")
}

func TestList_AnonymousUsesOwnedIDs(t *testing.T) {
	var gotIDs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resumes":[{"id":"r2","title":"two"},{"id":"r1","title":"one"}]}`))
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	ctx := context.Background()
	f.caps.AddOwnedResume(ctx, "r1")
	f.caps.AddOwnedResume(ctx, "r2")

	items, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "r2,r1", gotIDs, "owned ids are sent most recent first")
	require.Len(t, items, 2)
}

func TestList_AnonymousWithNothingOwnedSkipsRoundTrip(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)

	items, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
	require.Zero(t, calls)
}

func TestList_RetriesTransportFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// Drop the connection mid-response to simulate an unreachable
			// server without waiting out a timeout.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resumes":[{"id":"r1","title":"one"}]}`))
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	f.caps.AddOwnedResume(context.Background(), "r1")

	items, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Len(t, items, 1)
}

func TestList_NeverRetriesUnauthorized(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	f.creds.SetToken(context.Background(), "stale")

	_, err := f.svc.List(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
	require.Equal(t, 1, attempts, "a rejected credential must never be retried")
}

func TestDuplicate_AnonymousRecordsReissuedSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resumes/generate":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"r1","title":"My CV","editToken":"e1"}`))
		case "/resumes/duplicate":
			require.Equal(t, "e1", r.Header.Get(common.EditTokenHeader))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "r1", body["resumeId"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"r2","title":"My CV (copy)","editToken":"e2"}`))
		}
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, api.GenerateRequest{Prompt: "p", Language: "en"})
	require.NoError(t, err)

	copyResume, err := f.svc.Duplicate(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "r2", copyResume.ID)

	secret, ok := f.caps.Capability("r2")
	require.True(t, ok)
	require.Equal(t, "e2", secret)
	require.Equal(t, []string{"r2", "r1"}, f.caps.OwnedResumes())
}

func TestUpdate_AuthenticatedOmitsEditSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer t1", r.Header.Get(common.AuthorizationHeader))
		require.Empty(t, r.Header.Get(common.EditTokenHeader), "capability map must not be consulted while authenticated")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","title":"renamed"}`))
	}))
	t.Cleanup(srv.Close)

	f := setup(t, srv.URL)
	ctx := context.Background()
	// A leftover secret from an earlier anonymous period.
	f.caps.PutCapability(ctx, "r1", "e1")
	f.creds.SetToken(ctx, "t1")

	title := "renamed"
	r, err := f.svc.Update(ctx, "r1", api.UpdateResumeRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "renamed", r.Title)
}
