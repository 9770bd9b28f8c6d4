package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// result is what the redirect delivered: a code or an OAuth error.
type result struct {
	code string
	err  error
}

// AuthorizationError is the error the provider sent back instead of a code,
// e.g. "access_denied" when the user declines.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// Server receives the OAuth redirect on a loopback address.
type Server struct {
	redirect *url.URL
	server   *http.Server
	listener net.Listener
	results  chan result
}

// IsLoopback reports whether redirectURL points at this machine over plain HTTP,
// which is the only kind of redirect Server can receive.
func IsLoopback(redirectURL string) bool {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// New creates a Server for redirectURL. The listener is bound by Start.
func New(redirectURL string) (*Server, error) {
	if !IsLoopback(redirectURL) {
		return nil, fmt.Errorf("redirect URL %q is not a loopback http URL", redirectURL)
	}
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL: %w", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	s := &Server{
		redirect: u,
		results:  make(chan result, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+u.Path, s.handleRedirect)

	s.server = &http.Server{
		Handler: chain(mux,
			recovery,
			stripQuery,
			logging(slog.Default()),
			traceContext,
			requestID,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s, nil
}

// Start binds the redirect address and serves in the background.
// The returned channel reports a serve failure, or nil after Shutdown.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	host := s.redirect.Host
	if s.redirect.Port() == "" {
		host = net.JoinHostPort(s.redirect.Hostname(), "80")
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", host, err)
	}
	s.listener = listener

	errCh := make(chan error, 1)
	go func() {
		err := s.server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	slog.DebugContext(ctx, "callback server listening", "addr", listener.Addr().String(), "path", s.redirect.Path)
	return errCh, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// RedirectURL returns the redirect URL carrying the bound port, which differs
// from the configured URL when it asks for port 0. The host is kept as configured.
func (s *Server) RedirectURL() string {
	u := *s.redirect
	if s.listener == nil {
		return u.String()
	}
	if _, port, err := net.SplitHostPort(s.listener.Addr().String()); err == nil {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	return u.String()
}

// Wait blocks until the redirect arrives or ctx is done.
func (s *Server) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-s.results:
		return res.code, res.err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	query := queryFromContext(r.Context())

	var res result
	switch {
	case query.Get("error") != "":
		res.err = &AuthorizationError{
			Code:        query.Get("error"),
			Description: query.Get("error_description"),
		}
	case query.Get("code") != "":
		res.code = query.Get("code")
	default:
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	// Only the first redirect counts; browsers may retry.
	select {
	case s.results <- res:
	default:
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if res.err != nil {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "%s\nYou can close this window.\n", res.err)
		return
	}
	_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
}
