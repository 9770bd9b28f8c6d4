package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// expiryDelta refreshes slightly before the provider would reject the token.
const expiryDelta = time.Minute

// Refresher exchanges a refresh token for a new token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

// storeTokenSource serves the stored token, refreshing and persisting it once expired.
type storeTokenSource struct {
	ctx       context.Context
	store     TokenStore
	refresher Refresher
	now       func() time.Time
}

// NewTokenSource returns a caching oauth2.TokenSource over store.
// Refreshed tokens are written back; a read-only store only logs a warning.
func NewTokenSource(ctx context.Context, store TokenStore, refresher Refresher) oauth2.TokenSource {
	src := &storeTokenSource{ctx: ctx, store: store, refresher: refresher, now: time.Now}
	return oauth2.ReuseTokenSourceWithExpiry(nil, src, expiryDelta)
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	current, err := s.store.Read(s.ctx)
	if err != nil {
		return nil, err
	}

	if current.AccessToken != "" && !s.expired(current) {
		return current, nil
	}

	if current.RefreshToken == "" {
		return nil, fmt.Errorf("access token expired and no refresh token stored: %w", ErrNoToken)
	}

	refreshed, err := s.refresher.Refresh(s.ctx, current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	// The provider may omit the refresh token when it does not rotate it.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = current.RefreshToken
	}

	if err := s.store.Write(s.ctx, refreshed); err != nil {
		if !errors.Is(err, ErrReadOnlyStore) {
			return nil, fmt.Errorf("persisting refreshed token: %w", err)
		}
		slog.WarnContext(s.ctx, "refreshed token not persisted", "reason", err)
	}

	slog.DebugContext(s.ctx, "access token refreshed", "expiry", refreshed.Expiry)
	return refreshed, nil
}

func (s *storeTokenSource) expired(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return !s.now().Add(expiryDelta).Before(token.Expiry)
}
