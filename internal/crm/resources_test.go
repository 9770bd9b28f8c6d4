package crm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	method string
	uri    string
	auth   string
	body   string
}

func TestResourceMethods(t *testing.T) {
	var got recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = recordedRequest{
			method: r.Method,
			uri:    r.URL.RequestURI(),
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))
	ctx := context.Background()
	payload := map[string]string{"title": "Demo"}
	filters := FilterSet{{Key: "limit", Value: 20}}

	tests := []struct {
		name   string
		call   func() (json.RawMessage, error)
		method string
		uri    string
		body   string
	}{
		{
			name:   "AccountInfo",
			call:   func() (json.RawMessage, error) { return client.AccountInfo(ctx, "tok") },
			method: http.MethodGet,
			uri:    "/account/profile",
		},
		{
			name:   "UpdateAccountInfo",
			call:   func() (json.RawMessage, error) { return client.UpdateAccountInfo(ctx, "tok", payload) },
			method: http.MethodPut,
			uri:    "/account/profile",
			body:   `{"title":"Demo"}`,
		},
		{
			name:   "AffiliateCommissions",
			call:   func() (json.RawMessage, error) { return client.AffiliateCommissions(ctx, "tok", filters) },
			method: http.MethodGet,
			uri:    "/affiliates/commissions?limit=20",
		},
		{
			name:   "AffiliateCommissions without filters",
			call:   func() (json.RawMessage, error) { return client.AffiliateCommissions(ctx, "tok", nil) },
			method: http.MethodGet,
			uri:    "/affiliates/commissions",
		},
		{
			name:   "AffiliateModel",
			call:   func() (json.RawMessage, error) { return client.AffiliateModel(ctx, "tok") },
			method: http.MethodGet,
			uri:    "/affiliates/model",
		},
		{
			name:   "Appointments",
			call:   func() (json.RawMessage, error) { return client.Appointments(ctx, "tok", filters) },
			method: http.MethodGet,
			uri:    "/appointments?limit=20",
		},
		{
			name:   "CreateAppointment",
			call:   func() (json.RawMessage, error) { return client.CreateAppointment(ctx, "tok", payload) },
			method: http.MethodPost,
			uri:    "/appointments",
			body:   `{"title":"Demo"}`,
		},
		{
			name:   "DeleteAppointment",
			call:   func() (json.RawMessage, error) { return client.DeleteAppointment(ctx, "tok", 42) },
			method: http.MethodDelete,
			uri:    "/appointments/42",
		},
		{
			name:   "Appointment",
			call:   func() (json.RawMessage, error) { return client.Appointment(ctx, "tok", 42) },
			method: http.MethodGet,
			uri:    "/appointments/42",
		},
		{
			name:   "UpdateAppointment",
			call:   func() (json.RawMessage, error) { return client.UpdateAppointment(ctx, "tok", 42, payload) },
			method: http.MethodPatch,
			uri:    "/appointments/42",
			body:   `{"title":"Demo"}`,
		},
		{
			name:   "ReplaceAppointment",
			call:   func() (json.RawMessage, error) { return client.ReplaceAppointment(ctx, "tok", 42, payload) },
			method: http.MethodPut,
			uri:    "/appointments/42",
			body:   `{"title":"Demo"}`,
		},
		{
			name:   "AppointmentsModel",
			call:   func() (json.RawMessage, error) { return client.AppointmentsModel(ctx, "tok") },
			method: http.MethodGet,
			uri:    "/appointments/model",
		},
		{
			name:   "CreateAppointmentsCustomField",
			call:   func() (json.RawMessage, error) { return client.CreateAppointmentsCustomField(ctx, "tok", payload) },
			method: http.MethodPost,
			uri:    "/appointments/model/customFields",
			body:   `{"title":"Demo"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = recordedRequest{}

			raw, err := tt.call()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if string(raw) != `{"ok":true}` {
				t.Errorf("Unexpected response: %s", raw)
			}

			want := recordedRequest{method: tt.method, uri: tt.uri, auth: "Bearer tok", body: tt.body}
			if got != want {
				t.Errorf("Request = %+v, want %+v", got, want)
			}
		})
	}
}
