package api

import (
	"errors"
	"sort"
)

var (
	// ErrUnavailable indicates the server did not answer within the request
	// deadline or could not be reached at all. Never conflated with a
	// validation error.
	ErrUnavailable = errors.New("server unreachable")

	// ErrUnauthorized indicates the attached credential was rejected.
	// Receiving it also triggers the unauthorized observers.
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a structured non-2xx response. Reason and Message come from
// the "error" and "message" body fields; Details holds per-field validation
// messages keyed by field name.
type APIError struct {
	Status     int
	StatusText string
	Reason     string
	Message    string
	Details    map[string][]string
}

// Error surfaces the most actionable message available: the first
// field-level validation message wins, then the general error, then the
// free-form message, then the transport status text. Field order inside a
// JSON object is not preserved by decoding, so "first" is the first field
// in lexical order.
func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		fields := make([]string, 0, len(e.Details))
		for f, msgs := range e.Details {
			if len(msgs) > 0 {
				fields = append(fields, f)
			}
		}
		sort.Strings(fields)
		if len(fields) > 0 {
			return e.Details[fields[0]][0]
		}
	}
	if e.Reason != "" {
		return e.Reason
	}
	if e.Message != "" {
		return e.Message
	}
	return e.StatusText
}
