package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/infusionsoft/internal/callback"
	"github.com/florianilch/infusionsoft/internal/crm"
	"github.com/florianilch/infusionsoft/internal/tokensource"
	"github.com/florianilch/infusionsoft/internal/transport"
)

// shutdownTimeout bounds how long the callback server may take to stop.
const shutdownTimeout = 5 * time.Second

// App wires configuration, the token flow, the API client and token storage.
type App struct {
	cfg        *Config
	authorizer *tokensource.Authorizer
	client     *crm.Client
	store      TokenStore
	now        func() time.Time
}

// New creates an App from a validated configuration.
func New(cfg *Config) (*App, error) {
	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	httpClient := &http.Client{
		Transport: transport.Logging(http.DefaultTransport),
		Timeout:   cfg.API.Timeout,
	}

	authorizer := tokensource.NewAuthorizer(cfg.Auth.Credentials(),
		tokensource.WithEndpoint(oauth2.Endpoint{
			AuthURL:  cfg.API.AuthURL,
			TokenURL: cfg.API.TokenURL,
		}),
		tokensource.WithHTTPClient(httpClient),
	)

	client := crm.New(
		crm.WithBaseURL(cfg.API.BaseURL),
		crm.WithHTTPClient(httpClient),
	)

	return &App{
		cfg:        cfg,
		authorizer: authorizer,
		client:     client,
		store:      store,
		now:        time.Now,
	}, nil
}

// Client returns the API client.
func (a *App) Client() *crm.Client {
	return a.client
}

// Store returns the configured token store.
func (a *App) Store() TokenStore {
	return a.store
}

// AuthCodeURL returns the consent URL for redirectURL, or the configured one when empty.
func (a *App) AuthCodeURL(redirectURL string) string {
	if redirectURL == "" {
		redirectURL = a.cfg.Auth.RedirectURL
	}
	return a.authorizer.AuthCodeURL(redirectURL)
}

// CanReceiveRedirect reports whether Login can capture the redirect itself.
func (a *App) CanReceiveRedirect() bool {
	return callback.IsLoopback(a.cfg.Auth.RedirectURL)
}

// ReceiveCode runs the callback server until the redirect arrives or ctx is done.
// announce is called with the consent URL once the server is listening.
// The returned redirect URL is the one announced, with the bound port, and must
// be passed to CompleteLogin.
func (a *App) ReceiveCode(ctx context.Context, announce func(authURL string)) (code, redirectURL string, err error) {
	srv, err := callback.New(a.cfg.Auth.RedirectURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to create callback server: %w", err)
	}

	serveErrCh, err := srv.Start(ctx)
	if err != nil {
		return "", "", fmt.Errorf("callback server startup failed: %w", err)
	}

	redirectURL = srv.RedirectURL()
	announce(a.AuthCodeURL(redirectURL))

	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	g, gCtx := errgroup.WithContext(waitCtx)

	g.Go(func() error {
		defer stopWaiting()
		var err error
		code, err = srv.Wait(gCtx)
		return err
	})

	// Monitor serve errors; errgroup cancels gCtx on the first error, which also ends Wait.
	g.Go(func() error {
		select {
		case err := <-serveErrCh:
			if err != nil {
				return fmt.Errorf("callback server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	waitErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if waitErr != nil {
		errs = append(errs, waitErr)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "callback server shutdown failed", "error", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return "", "", errors.Join(errs...)
	}
	return code, redirectURL, nil
}

// CompleteLogin exchanges code and stores the resulting token. redirectURL must
// be the one the code was issued for; empty means the configured one.
func (a *App) CompleteLogin(ctx context.Context, code, redirectURL string) (*tokensource.TokenPair, error) {
	if redirectURL == "" {
		redirectURL = a.cfg.Auth.RedirectURL
	}

	issuedAt := a.now()
	pair, err := a.authorizer.Exchange(ctx, code, redirectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := a.store.Write(ctx, pair.Token(issuedAt)); err != nil {
		return nil, fmt.Errorf("failed to write token: %w", err)
	}
	return pair, nil
}

// Refresh forces a refresh of the stored token and stores the result.
func (a *App) Refresh(ctx context.Context) (*oauth2.Token, error) {
	current, err := a.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	if current.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token stored: %w", ErrNoToken)
	}

	token, err := a.refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}

	if err := a.store.Write(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to write token: %w", err)
	}
	return token, nil
}

// Logout removes the stored token.
func (a *App) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// TokenSource returns a token source that refreshes and persists expired tokens.
func (a *App) TokenSource(ctx context.Context) oauth2.TokenSource {
	return NewTokenSource(ctx, a.store, RefresherFunc(a.refresh))
}

// AccessToken returns a currently valid access token.
func (a *App) AccessToken(ctx context.Context) (string, error) {
	token, err := a.TokenSource(ctx).Token()
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (a *App) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	issuedAt := a.now()
	pair, err := a.authorizer.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return pair.Token(issuedAt), nil
}
