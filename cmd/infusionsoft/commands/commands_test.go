package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedRequest struct {
	method   string
	path     string
	rawQuery string
	auth     string
	body     string
}

func newAPIServer(t *testing.T, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		_, _ = body.ReadFrom(r.Body)
		*rec = recordedRequest{
			method:   r.Method,
			path:     r.URL.Path,
			rawQuery: r.URL.RawQuery,
			auth:     r.Header.Get("Authorization"),
			body:     body.String(),
		}
		if response == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

// withEnvConfig configures the CLI through the environment with a static access token.
func withEnvConfig(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("INFUSIONSOFT_AUTH__CLIENT_ID", "client")
	t.Setenv("INFUSIONSOFT_AUTH__CLIENT_SECRET", "secret")
	t.Setenv("INFUSIONSOFT_AUTH__STORAGE", "env")
	t.Setenv("INFUSIONSOFT_AUTH__ACCESS_TOKEN", "tok")
	t.Setenv("INFUSIONSOFT_API__BASE_URL", baseURL)
	t.Setenv("INFUSIONSOFT_LOG__LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand("test", "none")
	root.Writer = &out
	root.ErrWriter = &out
	err := root.Run(context.Background(), append([]string{"infusionsoft"}, args...))
	return out.String(), err
}

func TestRequestCommand(t *testing.T) {
	srv, rec := newAPIServer(t, `{"id":1,"name":"Acme"}`)
	withEnvConfig(t, srv.URL)

	out, err := run(t, "request", "get", "/account/profile")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if rec.method != http.MethodGet || rec.path != "/account/profile" {
		t.Errorf("Unexpected request: %s %s", rec.method, rec.path)
	}
	if rec.auth != "Bearer tok" {
		t.Errorf("Authorization = %q", rec.auth)
	}
	want := "{\n  \"id\": 1,\n  \"name\": \"Acme\"\n}\n"
	if out != want {
		t.Errorf("Output = %q, want %q", out, want)
	}
}

func TestRequestCommand_WithPayload(t *testing.T) {
	srv, rec := newAPIServer(t, `{}`)
	withEnvConfig(t, srv.URL)

	payload := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(payload, []byte(`{"title":"Call"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "request", "--file", payload, "POST", "/appointments"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.method != http.MethodPost || rec.body != `{"title":"Call"}` {
		t.Errorf("Unexpected request: %s %s", rec.method, rec.body)
	}
}

func TestAppointmentsListCommand(t *testing.T) {
	srv, rec := newAPIServer(t, `{"appointments":[]}`)
	withEnvConfig(t, srv.URL)

	_, err := run(t, "appointments", "list", "--contact-id", "7", "--since", "2024-01-02", "--limit", "5")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if rec.path != "/appointments" {
		t.Errorf("Path = %s", rec.path)
	}
	want := "contact_id=7&since=2024-01-02T00%3A00%3A00.000Z&limit=5"
	if rec.rawQuery != want {
		t.Errorf("Query = %q, want %q", rec.rawQuery, want)
	}
}

func TestAppointmentsDeleteCommand(t *testing.T) {
	srv, rec := newAPIServer(t, "")
	withEnvConfig(t, srv.URL)

	out, err := run(t, "appointments", "delete", "42")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.method != http.MethodDelete || rec.path != "/appointments/42" {
		t.Errorf("Unexpected request: %s %s", rec.method, rec.path)
	}
	if out != "" {
		t.Errorf("Empty response should print nothing, got %q", out)
	}
}

func TestAppointmentsGetCommand_InvalidID(t *testing.T) {
	srv, _ := newAPIServer(t, `{}`)
	withEnvConfig(t, srv.URL)

	_, err := run(t, "appointments", "get", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid ID") {
		t.Errorf("Expected invalid ID error, got %v", err)
	}
}

func TestAuthURLCommand(t *testing.T) {
	srv, _ := newAPIServer(t, `{}`)
	withEnvConfig(t, srv.URL)

	out, err := run(t, "auth", "url", "--redirect-uri", "https://example.com/cb")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "https://signin.infusionsoft.com/app/oauth/authorize?client_id=client&redirect_uri=https://example.com/cb&response_type=code&scope=full\n"
	if out != want {
		t.Errorf("Output = %q, want %q", out, want)
	}
}

func TestAuthCommands_RejectEnvStorage(t *testing.T) {
	srv, _ := newAPIServer(t, `{}`)
	withEnvConfig(t, srv.URL)

	for _, sub := range []string{"login", "refresh", "logout"} {
		t.Run(sub, func(t *testing.T) {
			_, err := run(t, "auth", sub)
			if !errors.Is(err, errEnvStorage) {
				t.Errorf("Expected errEnvStorage, got %v", err)
			}
		})
	}
}

func TestGlobalFlagsOverrideConfig(t *testing.T) {
	srv, _ := newAPIServer(t, `{}`)
	withEnvConfig(t, srv.URL)

	out, err := run(t, "--client-id", "from-flag", "auth", "url")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "client_id=from-flag&") {
		t.Errorf("Flag should override environment: %s", out)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, nil); err != nil || buf.Len() != 0 {
		t.Errorf("Empty response: err=%v out=%q", err, buf.String())
	}
	if err := printJSON(&buf, []byte(`[1,2]`)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if buf.String() != "[\n  1,\n  2\n]\n" {
		t.Errorf("Output = %q", buf.String())
	}
}

func TestReadPayload_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readPayload(path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
