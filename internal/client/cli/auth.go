package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cvkitdev/cvkit/internal/client/api"
	"github.com/cvkitdev/cvkit/internal/common"
)

// Test seams for interactive input.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

// Register creates an account and logs the session in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	name, err := getSimpleText(a.reader, "Enter name (optional)", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Register(ctx, email, string(password), name); err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	fmt.Println("Success! You are now logged in.")
	return nil
}

// Login authenticates an existing account.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, email, string(password)); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	fmt.Println("Success! You are now logged in.")
	return nil
}

// Logout clears the local session. Always succeeds.
func (a *App) Logout(ctx context.Context) {
	a.session.Logout(ctx)
	fmt.Println("Logged out.")
}

// Whoami prints the current profile snapshot.
func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	u := a.session.CurrentUser()
	if u == nil {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Printf("Name: %s\n", u.DisplayName())
	fmt.Printf("Email: %s\n", u.Email)
	fmt.Printf("Tokens: %d\n", u.Tokens)
	fmt.Printf("Resumes: %d\n", u.ResumeCount)
	if u.IsAdmin {
		fmt.Println("Role: admin")
	}
	if exp, ok := a.session.TokenExpiry(); ok {
		fmt.Printf("Session expires: %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

// Profile updates parts of the profile. Prompts left empty are not sent, so
// the server only sees the fields the user actually changed.
func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	upd := api.ProfileUpdate{}
	fields := []struct {
		prompt string
		dst    **string
	}{
		{"Name (empty to keep)", &upd.Name},
		{"Phone (empty to keep)", &upd.Phone},
		{"Location (empty to keep)", &upd.Location},
		{"Website (empty to keep)", &upd.Website},
		{"LinkedIn (empty to keep)", &upd.LinkedIn},
		{"Bio (empty to keep)", &upd.Bio},
	}

	changed := false
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt, os.Stdout)
		if err != nil {
			return err
		}
		if v != "" {
			*f.dst = &v
			changed = true
		}
	}

	if !changed {
		fmt.Println("Nothing to update.")
		return nil
	}

	u, err := a.session.UpdateProfile(ctx, upd)
	if err != nil {
		fmt.Println("Profile update failed:", err)
		return err
	}

	fmt.Printf("Profile updated for %s.\n", u.DisplayName())
	return nil
}

// Refresh refetches the profile from the server.
func (a *App) Refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	if err := a.session.RefreshUser(ctx); err != nil {
		fmt.Println("Refresh failed:", err)
		return err
	}

	return a.Whoami(ctx)
}
