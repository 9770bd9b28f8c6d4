package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/infusionsoft/internal/app"
)

var errEnvStorage = errors.New("env storage is read-only, configure file or keyring storage")

// authCommand returns the 'auth' subcommand for managing provider authentication.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Infusionsoft authentication",
		Commands: []*cli.Command{
			authURLCommand(),
			authLoginCommand(),
			authRefreshCommand(),
			authLogoutCommand(),
		},
	}
}

func authURLCommand() *cli.Command {
	return &cli.Command{
		Name:  "url",
		Usage: "Print the authorization URL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "redirect-uri",
				Usage: "redirect URI registered for the application, inserted verbatim (defaults to auth.redirect_url)",
			},
		},
		Action: authURLAction,
	}
}

func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authorize the application and save the token",
		Action: authLoginAction,
	}
}

func authRefreshCommand() *cli.Command {
	return &cli.Command{
		Name:   "refresh",
		Usage:  "Refresh the stored token",
		Action: authRefreshAction,
	}
}

func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Clear the stored token",
		Action: authLogoutAction,
	}
}

func authURLAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	_, err = fmt.Fprintln(cmd.Root().Writer, s.AuthCodeURL(cmd.String("redirect-uri")))
	return err
}

// authLoginAction runs the authorization-code flow. The code arrives on the
// local callback server for loopback redirects and is typed in otherwise.
func authLoginAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if s.cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return fmt.Errorf("cannot login: %w", errEnvStorage)
	}

	w := cmd.Root().Writer
	fmt.Fprintln(w, "=== Infusionsoft OAuth Login ===")
	fmt.Fprintln(w)

	var code, redirectURL string
	if s.CanReceiveRedirect() {
		code, redirectURL, err = s.ReceiveCode(ctx, func(authURL string) {
			fmt.Fprintf(w, "1. Visit this URL in your browser:\n   %s\n\n", authURL)
			fmt.Fprintln(w, "2. Authorize the application")
			fmt.Fprintln(w, "3. Waiting for the redirect...")
		})
	} else {
		fmt.Fprintf(w, "1. Visit this URL in your browser:\n   %s\n\n", s.AuthCodeURL(""))
		fmt.Fprintln(w, "2. Authorize the application")
		fmt.Fprintln(w, "3. Paste the code parameter of the redirect URL")
		code, err = readSecureInput(ctx, w, "\nEnter authorization code: ")
	}
	if err != nil {
		return fmt.Errorf("oauth login failed: %w", err)
	}
	if code = strings.TrimSpace(code); code == "" {
		return fmt.Errorf("authorization code cannot be empty")
	}

	pair, err := s.CompleteLogin(ctx, code, redirectURL)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Login Successful ===")
	fmt.Fprintf(w, "Token saved to %s storage, access token valid for %s\n",
		s.cfg.Auth.Storage, time.Duration(pair.ExpiresIn)*time.Second)
	return nil
}

func authRefreshAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if s.cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return fmt.Errorf("cannot refresh: %w", errEnvStorage)
	}

	token, err := s.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	_, err = fmt.Fprintf(cmd.Root().Writer, "Token refreshed, expires at %s\n", token.Expiry.Format(time.RFC3339))
	return err
}

func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if s.cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return fmt.Errorf("cannot logout: %w", errEnvStorage)
	}

	if err := s.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, "Credentials cleared from configured storage")
	return err
}

// readSecureInput reads user input with hidden display and context cancellation support.
// term.ReadPassword has no context support, hence the goroutine.
func readSecureInput(ctx context.Context, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	defer fmt.Fprintln(w)

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}
