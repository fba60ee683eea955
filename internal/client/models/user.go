// Package models defines client-side snapshots of server entities used by
// the cvkit CLI. Snapshots are replaced wholesale with server responses,
// never patched field by field, so a partially applied profile can never be
// observed.
package models

// User is the authenticated profile as last returned by the server.
// Timestamps stay as the server's strings; the client never computes on them.
type User struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        *string `json:"name"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Location    *string `json:"location,omitempty"`
	Website     *string `json:"website,omitempty"`
	LinkedIn    *string `json:"linkedIn,omitempty"`
	Tokens      int     `json:"tokens"`
	ResumeCount int     `json:"resumeCount"`
	PlanID      *string `json:"planId,omitempty"`
	IsAdmin     bool    `json:"isAdmin,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

// DisplayName returns the profile name when set, otherwise the email.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
