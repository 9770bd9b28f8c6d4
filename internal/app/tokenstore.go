package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// keyringService namespaces keyring entries; the user is the client ID.
const keyringService = "infusionsoft"

var (
	// ErrNoToken is returned when the store holds no token.
	ErrNoToken = errors.New("no stored token, run 'auth login' first")
	// ErrReadOnlyStore is returned by Write and Clear on env storage.
	ErrReadOnlyStore = errors.New("token storage is read-only")
)

// TokenStore persists the token of the logged-in account.
type TokenStore interface {
	Read(ctx context.Context) (*oauth2.Token, error)
	Write(ctx context.Context, token *oauth2.Token) error
	Clear(ctx context.Context) error
}

// NewTokenStore returns the store selected by the configuration.
func (c AuthConfig) NewTokenStore() (TokenStore, error) {
	switch c.Storage {
	case TokenStorageTypeFile:
		return &FileStore{path: c.TokenFile}, nil
	case TokenStorageTypeKeyring:
		return &KeyringStore{user: c.ClientID}, nil
	case TokenStorageTypeEnv:
		return &EnvStore{accessToken: c.AccessToken, refreshToken: c.RefreshToken}, nil
	default:
		return nil, fmt.Errorf("unsupported token storage %q", c.Storage)
	}
}

// FileStore keeps the token as JSON in a file only the owner can read.
type FileStore struct {
	path string
}

func (s *FileStore) Read(ctx context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	return decodeToken(data)
}

func (s *FileStore) Write(ctx context.Context, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	// Replace atomically so readers never see a partial token.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// KeyringStore keeps the token in the OS keychain.
type KeyringStore struct {
	user string
}

func (s *KeyringStore) Read(ctx context.Context) (*oauth2.Token, error) {
	secret, err := keyring.Get(keyringService, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}
	return decodeToken([]byte(secret))
}

func (s *KeyringStore) Write(ctx context.Context, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := keyring.Set(keyringService, s.user, string(data)); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear(ctx context.Context) error {
	if err := keyring.Delete(keyringService, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("clearing keyring: %w", err)
	}
	return nil
}

// EnvStore serves tokens supplied through configuration and cannot persist
// refreshed ones.
type EnvStore struct {
	accessToken  string
	refreshToken string
}

func (s *EnvStore) Read(ctx context.Context) (*oauth2.Token, error) {
	if s.accessToken == "" && s.refreshToken == "" {
		return nil, ErrNoToken
	}
	// No expiry is known; an access-token-only configuration is used as is,
	// a refresh-token-only one forces a refresh.
	return &oauth2.Token{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (s *EnvStore) Write(ctx context.Context, token *oauth2.Token) error {
	return ErrReadOnlyStore
}

func (s *EnvStore) Clear(ctx context.Context) error {
	return ErrReadOnlyStore
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decoding stored token: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}
