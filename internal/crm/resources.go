package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// AccountInfo retrieves profile and company info for the account.
func (c *Client) AccountInfo(ctx context.Context, token string) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodGet, Path: "/account/profile", Token: token})
}

// UpdateAccountInfo updates profile and company info for the account.
func (c *Client) UpdateAccountInfo(ctx context.Context, token string, payload any) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodPut, Path: "/account/profile", Token: token, Body: payload})
}

// AffiliateCommissions lists commissions by affiliate or date range.
func (c *Client) AffiliateCommissions(ctx context.Context, token string, filters FilterSet) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodGet, Path: withFilters("/affiliates/commissions", filters), Token: token})
}

// AffiliateModel retrieves the custom fields of the Affiliate object.
func (c *Client) AffiliateModel(ctx context.Context, token string) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodGet, Path: "/affiliates/model", Token: token})
}

// Appointments lists appointments visible to the authenticated user.
func (c *Client) Appointments(ctx context.Context, token string, filters FilterSet) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodGet, Path: withFilters("/appointments", filters), Token: token})
}

// CreateAppointment creates an appointment as the authenticated user.
func (c *Client) CreateAppointment(ctx context.Context, token string, payload any) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodPost, Path: "/appointments", Token: token, Body: payload})
}

// DeleteAppointment deletes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, token string, id int64) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodDelete, Path: appointmentPath(id), Token: token})
}

// Appointment retrieves one appointment. Viewing appointments owned by other
// users needs the "can view all records" permission for Task/Appt/Notes.
func (c *Client) Appointment(ctx context.Context, token string, id int64) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodGet, Path: appointmentPath(id), Token: token})
}

// UpdateAppointment updates only the fields present in payload.
func (c *Client) UpdateAppointment(ctx context.Context, token string, id int64, payload any) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodPatch, Path: appointmentPath(id), Token: token, Body: payload})
}

// ReplaceAppointment replaces every field of an appointment with payload.
func (c *Client) ReplaceAppointment(ctx context.Context, token string, id int64, payload any) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodPut, Path: appointmentPath(id), Token: token, Body: payload})
}

// AppointmentsModel retrieves the custom fields of the Appointment object.
func (c *Client) AppointmentsModel(ctx context.Context, token string) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodGet, Path: "/appointments/model", Token: token})
}

// CreateAppointmentsCustomField adds a custom field to the Appointment object.
func (c *Client) CreateAppointmentsCustomField(ctx context.Context, token string, payload any) (json.RawMessage, error) {
	return c.Call(ctx, RequestSpec{Method: http.MethodPost, Path: "/appointments/model/customFields", Token: token, Body: payload})
}

func appointmentPath(id int64) string {
	return "/appointments/" + strconv.FormatInt(id, 10)
}

// withFilters appends the encoded filters, skipping the bare "?" of an empty set.
func withFilters(path string, filters FilterSet) string {
	if len(filters) == 0 {
		return path
	}
	return path + EncodeFilters(filters)
}
