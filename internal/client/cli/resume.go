package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cvkitdev/cvkit/internal/client/api"
)

// Generate creates a resume from a free-form prompt. Anonymous callers keep
// edit rights through a locally stored secret.
func (a *App) Generate(ctx context.Context) error {
	prompt, err := getMultiline(a.reader, "Describe your experience and the role you are targeting", os.Stdout)
	if err != nil {
		return err
	}
	if prompt == "" {
		fmt.Println("Nothing to generate from.")
		return nil
	}

	title, err := getSimpleText(a.reader, "Title (optional)", os.Stdout)
	if err != nil {
		return err
	}

	language, err := getSimpleText(a.reader, "Language (default: en)", os.Stdout)
	if err != nil {
		return err
	}
	if language == "" {
		language = "en"
	}

	fmt.Println("Generating...")
	r, err := a.resumes.Generate(ctx, api.GenerateRequest{
		Prompt:   prompt,
		Title:    title,
		Language: language,
	})
	if err != nil {
		fmt.Println("Generation failed:", err)
		return err
	}

	fmt.Printf("Created %q (%s)\n", r.Title, r.ID)
	if !a.isLoggedIn() {
		fmt.Println("Edit rights for this resume are kept on this machine. Register to keep them across devices.")
	}
	return nil
}

// List prints the caller's resumes.
func (a *App) List(ctx context.Context) error {
	items, err := a.resumes.List(ctx)
	if err != nil {
		fmt.Println("Listing failed:", err)
		return err
	}
	if len(items) == 0 {
		fmt.Println("No resumes yet. Try 'generate'.")
		return nil
	}

	for _, item := range items {
		fmt.Printf("%s  %-30q  updated %s\n", item.ID, item.Title, item.UpdatedAt)
	}
	return nil
}

// Show prints a single resume, content pretty-printed.
func (a *App) Show(ctx context.Context, idOrSlug string) error {
	r, err := a.resumes.Get(ctx, idOrSlug)
	if err != nil {
		fmt.Println("Fetch failed:", err)
		return err
	}

	fmt.Printf("Title: %s\n", r.Title)
	if r.Slug != "" {
		fmt.Printf("Slug: %s\n", r.Slug)
	}
	if r.Language != "" {
		fmt.Printf("Language: %s\n", r.Language)
	}
	if r.UpdatedAt != "" {
		fmt.Printf("Updated: %s\n", r.UpdatedAt)
	}
	if r.PDFURL != nil {
		fmt.Printf("PDF: %s\n", *r.PDFURL)
	}
	if len(r.Content) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, r.Content, "", "  "); err == nil {
			fmt.Println(buf.String())
		}
	}
	return nil
}

// Rename changes a resume's title.
func (a *App) Rename(ctx context.Context, id string) error {
	title, err := getSimpleText(a.reader, "New title", os.Stdout)
	if err != nil {
		return err
	}
	if title == "" {
		fmt.Println("Title unchanged.")
		return nil
	}

	r, err := a.resumes.Update(ctx, id, api.UpdateResumeRequest{Title: &title})
	if err != nil {
		fmt.Println("Update failed:", err)
		return err
	}

	fmt.Printf("Renamed to %q\n", r.Title)
	return nil
}

// Delete removes a resume after confirmation.
func (a *App) Delete(ctx context.Context, id string) error {
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %s? (yes/no)", id), os.Stdout)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := a.resumes.Delete(ctx, id); err != nil {
		fmt.Println("Delete failed:", err)
		return err
	}

	fmt.Println("Deleted.")
	return nil
}

// Duplicate copies a resume.
func (a *App) Duplicate(ctx context.Context, id string) error {
	r, err := a.resumes.Duplicate(ctx, id)
	if err != nil {
		fmt.Println("Duplicate failed:", err)
		return err
	}

	fmt.Printf("Created copy %q (%s)\n", r.Title, r.ID)
	return nil
}

// Improve asks the backend to rewrite one section of a resume.
func (a *App) Improve(ctx context.Context, id string) error {
	section, err := getSimpleText(a.reader, "Section to improve (e.g. summary, experience)", os.Stdout)
	if err != nil {
		return err
	}

	instructions, err := getMultiline(a.reader, "Instructions for the rewrite", os.Stdout)
	if err != nil {
		return err
	}

	fmt.Println("Improving...")
	res, err := a.resumes.Improve(ctx, api.ImproveRequest{
		ResumeID:     id,
		Section:      section,
		Instructions: instructions,
	})
	if err != nil {
		fmt.Println("Improve failed:", err)
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, res.Content, "", "  "); err == nil {
		fmt.Println(buf.String())
	}
	fmt.Println("Section updated.")
	return nil
}

// PDF renders the resume and prints the download URL.
func (a *App) PDF(ctx context.Context, id string) error {
	fmt.Println("Rendering...")
	url, err := a.resumes.GeneratePDF(ctx, id)
	if err != nil {
		fmt.Println("PDF generation failed:", err)
		return err
	}

	fmt.Println("Download:", url)
	return nil
}
