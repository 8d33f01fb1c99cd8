// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/smartdocs-tui/internal/api"
	"github.com/jeranaias/smartdocs-tui/internal/session"
)

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

type loginResult struct {
	Username  string     `json:"username"`
	Server    string     `json:"server"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleLogin asks for a password, exchanges it for a token and saves it.
// The username comes from the argument, then auth.username, then a prompt.
func HandleLogin(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "login", func() (any, error) {
		username := args.Username
		if username == "" {
			username = env.Config.Auth.Username
		}
		if username == "" {
			fmt.Fprint(env.stderr(), "Username: ")
			u, err := readLine(env.stdin())
			if err != nil {
				return nil, ErrMissingArgument("username", "smartdocs login ada")
			}
			username = u
		}

		read := env.ReadPassword
		if read == nil {
			read = TerminalPassword(env.stdin(), env.stderr())
		}
		password, err := read("Password: ")
		if err != nil {
			return nil, ErrMissingArgument("password", "smartdocs login ada")
		}

		tokens, err := env.Client.Login(ctx, username, password)
		if err != nil {
			if errors.Is(err, api.ErrAuthExpired) {
				return nil, wrap("login", username, errors.New("invalid username or password"))
			}
			return nil, wrap("login", username, err)
		}

		if err := env.Session.Login(session.Credentials{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			Username:     username,
			ServerURL:    env.Config.Server.BaseURL,
		}); err != nil {
			return nil, wrap("login", "save", err)
		}
		env.Client.SetToken(tokens.AccessToken)
		env.logf("CLI_LOGIN | user=%s", username)

		status := env.Session.GetStatus()
		res := loginResult{Username: username, Server: status.ServerURL}
		if !status.ExpiresAt.IsZero() {
			res.ExpiresAt = &status.ExpiresAt
		}
		if !args.JSON && !args.Quiet {
			fmt.Fprintf(env.stdout(), "%s logged in as %s\n", SuccessStyle.Render("[OK]"), username)
			if res.ExpiresAt != nil {
				fmt.Fprintln(env.stdout(), DimStyle.Render("session expires in "+session.FormatDuration(env.Session.RemainingTime())))
			}
		}
		return res, nil
	})
}

// HandleLogout removes the saved token.
func HandleLogout(env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "logout", func() (any, error) {
		was := env.Session.Username()
		if err := env.Session.Logout(); err != nil {
			return nil, wrap("logout", "remove token", err)
		}
		env.Client.SetToken("")
		if !args.JSON && !args.Quiet {
			if was == "" {
				fmt.Fprintln(env.stdout(), DimStyle.Render("not logged in"))
			} else {
				fmt.Fprintf(env.stdout(), "%s logged out %s\n", SuccessStyle.Render("[OK]"), was)
			}
		}
		return map[string]string{"username": was}, nil
	})
}

// =============================================================================
// WHOAMI
// =============================================================================

type whoamiResult struct {
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Server    string     `json:"server"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleWhoami confirms the token with the server and prints the user.
func HandleWhoami(ctx context.Context, env *Env, args Args) error {
	return OutputJSON(env.stdout(), args.JSON, "whoami", func() (any, error) {
		if err := env.requireLogin(); err != nil {
			return nil, err
		}
		user, err := env.Client.Me(ctx)
		if err != nil {
			return nil, wrap("whoami", "fetch user", err)
		}

		status := env.Session.GetStatus()
		res := whoamiResult{
			Username: user.Username,
			Email:    user.Email,
			Server:   status.ServerURL,
			IssuedAt: status.IssuedAt,
		}
		if !status.ExpiresAt.IsZero() {
			res.ExpiresAt = &status.ExpiresAt
		}
		if args.JSON {
			return res, nil
		}

		w := env.stdout()
		fmt.Fprintln(w, RenderField("User", user.DisplayName()))
		if user.Email != "" {
			fmt.Fprintln(w, RenderField("Email", user.Email))
		}
		fmt.Fprintln(w, RenderField("Server", status.ServerURL))
		if res.ExpiresAt != nil {
			fmt.Fprintln(w, RenderField("Expires in", session.FormatDuration(env.Session.RemainingTime())))
		}
		return res, nil
	})
}
