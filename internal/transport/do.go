package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends req and reads the whole body. Any failure before the body is
// completely read is returned as a *TransportError; the status code is not inspected.
func Do(client *http.Client, op string, req *http.Request) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: redact(req), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: redact(req), Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// DecodeJSON unmarshals the response body into v, returning a *DecodeError on malformed input.
func (r *Response) DecodeJSON(op string, v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &DecodeError{Op: op, StatusCode: r.StatusCode, Body: snippet(r.Body), Err: err}
	}
	return nil
}

// RawJSON validates the body and returns it as a raw JSON value.
// An empty body yields a nil value and no error (204 No Content and friends).
func (r *Response) RawJSON(op string) (json.RawMessage, error) {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, nil
	}
	var raw json.RawMessage
	if err := r.DecodeJSON(op, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// redact strips the query string, which may carry filter values, from error messages.
func redact(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
