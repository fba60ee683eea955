// Package common contains shared constants and small helpers used across
// the cvkit client packages.
package common

// Request headers attached by the API client.
const (
	// AuthorizationHeader carries the bearer token ("Bearer <token>").
	AuthorizationHeader = "Authorization"

	// EditTokenHeader carries the per-resume edit secret issued to an
	// anonymous creator. It is always a separate header from the bearer
	// token; the server decides precedence when both are present.
	EditTokenHeader = "X-Edit-Token"

	// RequestIDHeader correlates client-side log records with server logs.
	RequestIDHeader = "X-Request-Id"
)

// Keys in the local metadata table.
const (
	// TokenKey stores the bearer token. Only the token survives a restart;
	// the user snapshot is refetched so stale profile data is never shown.
	TokenKey = "token"

	// EditTokensKey stores the resume-id -> edit-secret map as JSON.
	EditTokensKey = "edit_tokens"

	// ResumeIDsKey stores the ids of resumes created anonymously from this
	// machine, as a JSON array, most recent first.
	ResumeIDsKey = "resume_ids"
)
