package models

import "encoding/json"

// Resume is the full resume document returned by create/get/update calls.
//
// EditToken is only present on responses to anonymous creation or
// duplication; it is the one-time issued secret granting the creator
// mutation rights without an account.
type Resume struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Slug       string          `json:"slug,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	TemplateID string          `json:"templateId,omitempty"`
	Language   string          `json:"language,omitempty"`
	PDFURL     *string         `json:"pdfUrl,omitempty"`
	CreatedAt  string          `json:"createdAt,omitempty"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
	EditToken  string          `json:"editToken,omitempty"`
}

// ResumeListItem is the abbreviated form used in listings.
type ResumeListItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Slug      string `json:"slug,omitempty"`
	Language  string `json:"language,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}
