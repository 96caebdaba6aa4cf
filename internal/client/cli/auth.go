package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a name, an email and a password and creates the
// account. The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	if len([]rune(name)) < common.MinNameLength {
		return a.report(fmt.Errorf("name must be at least %d characters", common.MinNameLength))
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.users.Register(ctx, name, email, password)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Registered %s <%s>\n", p.Name, p.Email)
	return nil
}

// Login prompts for credentials and authenticates. The server keeps the
// session in cookies held by the API client.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.users.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.profile = p
	fmt.Fprintf(a.out, "Logged in as %s\n", p.Name)
	return nil
}

// Me prints the profile of the logged-in user.
func (a *App) Me(ctx context.Context) error {
	p, err := a.users.Me(ctx)
	if err != nil {
		return a.report(err)
	}
	a.profile = p
	fmt.Fprintf(a.out, "id:    %s\nname:  %s\nemail: %s\n", p.ID, p.Name, p.Email)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	p, err := a.users.Refresh(ctx)
	if err != nil {
		return a.report(err)
	}
	a.profile = p
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

// ChangePassword asks for the current password and the new one twice.
func (a *App) ChangePassword(ctx context.Context) error {
	current, err := getPassword(a.out, "Current password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getPassword(a.out, "New password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	confirm, err := getPassword(a.out, "Repeat new password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(next) != string(confirm) {
		return a.report(errors.New("passwords do not match"))
	}
	if len([]rune(strings.TrimSpace(string(next)))) < common.MinPasswordLength {
		return a.report(fmt.Errorf("new password must be at least %d characters", common.MinPasswordLength))
	}

	if err := a.users.ChangePassword(ctx, current, next); err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	cleared, err := a.users.Logout(ctx)
	if err != nil {
		return a.report(err)
	}
	a.profile = nil

	if cleared {
		fmt.Fprintln(a.out, "Logged out")
	} else {
		fmt.Fprintln(a.out, "Nothing to log out from")
	}
	return nil
}

// report prints err in a user-facing form and returns it.
func (a *App) report(err error) error {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintf(a.out, "Error: %s\n", apiErr.Message)
		if apiErr.StatusCode == http.StatusUnauthorized {
			a.profile = nil
		}
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Error: server unavailable")
		a.setMode(ModeOffline)
	default:
		fmt.Fprintf(a.out, "Error: %s\n", err)
	}
	return err
}
