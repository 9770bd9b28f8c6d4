package callback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv, err := New("http://127.0.0.1:0/callback")
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	errCh, err := srv.Start(context.Background())
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
		if err := <-errCh; err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	})
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

func TestServer_ReceivesCode(t *testing.T) {
	srv := startTestServer(t)

	resp := get(t, "http://"+srv.Addr()+"/callback?code=abc123&scope=full")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID response header")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, err := srv.Wait(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if code != "abc123" {
		t.Errorf("Wait() = %q, want abc123", code)
	}
}

func TestServer_RedirectURLCarriesBoundPort(t *testing.T) {
	srv := startTestServer(t)

	_, port, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("Invalid addr %q: %v", srv.Addr(), err)
	}
	want := "http://127.0.0.1:" + port + "/callback"
	if got := srv.RedirectURL(); got != want {
		t.Errorf("RedirectURL() = %q, want %q", got, want)
	}

	resp := get(t, srv.RedirectURL()+"?code=xyz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Redirect to RedirectURL: status %d", resp.StatusCode)
	}
}

func TestServer_ProviderError(t *testing.T) {
	srv := startTestServer(t)

	get(t, "http://"+srv.Addr()+"/callback?error=access_denied&error_description=User+declined")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := srv.Wait(ctx)
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthorizationError, got %v", err)
	}
	if authErr.Code != "access_denied" || authErr.Description != "User declined" {
		t.Errorf("Unexpected error: %+v", authErr)
	}
}

func TestServer_RejectsMissingCodeAndOtherPaths(t *testing.T) {
	srv := startTestServer(t)

	if resp := get(t, "http://"+srv.Addr()+"/callback"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Missing code: status %d, want 400", resp.StatusCode)
	}
	if resp := get(t, "http://"+srv.Addr()+"/elsewhere?code=x"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Other path: status %d, want 404", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := srv.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected no result, got %v", err)
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://127.0.0.1:8976/callback", true},
		{"http://localhost:3000/cb", true},
		{"http://[::1]:3000/cb", true},
		{"https://127.0.0.1/cb", false},
		{"http://example.com/cb", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsLoopback(tt.url); got != tt.want {
				t.Errorf("IsLoopback(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}

	if _, err := New("https://example.com/cb"); err == nil {
		t.Error("New should reject non-loopback redirect URLs")
	}
}
