package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/usermanager/internal/client/api"
	"github.com/dmitrijs2005/usermanager/internal/common"
)

var errNotLoggedIn = errors.New("not logged in")

func (a *App) report(err error) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		printlnFn("Invalid credentials or session")
	case errors.Is(err, api.ErrUnavailable):
		printlnFn("Server unavailable")
	default:
		printlnFn("Error:", err.Error())
	}
	return err
}

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return a.report(err)
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report(err)
	}
	role, err := GetSimpleText(a.reader, "Enter role (Admin, User, HR)", a.out)
	if err != nil {
		return a.report(err)
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(password)

	env, err := a.client.Register(ctx, username, email, string(password), role)
	if err != nil {
		return a.report(err)
	}
	printlnFn(env.Message)
	return nil
}

// Confirm redeems a confirmation token. The token may be pasted on its own or
// as the full link from the email.
func (a *App) Confirm(ctx context.Context) error {
	input, err := GetSimpleText(a.reader, "Paste confirmation link or token", a.out)
	if err != nil {
		return a.report(err)
	}

	token, email := parseConfirmation(input)
	if token == "" {
		return a.report(errors.New("missing token"))
	}
	if email == "" {
		email, err = GetSimpleText(a.reader, "Enter email", a.out)
		if err != nil {
			return a.report(err)
		}
	}

	env, err := a.client.ConfirmEmail(ctx, token, email)
	if err != nil {
		return a.report(err)
	}
	printlnFn(env.Message)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report(err)
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}
	defer common.WipeByteArray(password)

	s, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return a.report(err)
	}

	a.email = s.Email
	a.token = s.Token
	a.expiresAt = s.Expiration
	printlnFn(fmt.Sprintf("Logged in, session valid until %s", s.Expiration.Local().Format(time.RFC1123)))
	return nil
}

func (a *App) Me(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(errNotLoggedIn)
	}

	p, err := a.client.Me(ctx, a.token)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			a.clearSession()
		}
		return a.report(err)
	}

	roles := "-"
	if len(p.Roles) > 0 {
		roles = strings.Join(p.Roles, ", ")
	}
	printlnFn(fmt.Sprintf("User: %s\nRoles: %s\nExpires: %s", p.Username, roles, p.Expiration.Local().Format(time.RFC1123)))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.clearSession()
	printlnFn("Logged out")
	return nil
}

func (a *App) clearSession() {
	a.email = ""
	a.token = ""
	a.expiresAt = time.Time{}
}
