package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/infusionsoft/internal/transport"
)

// DefaultBaseURL is the Infusionsoft REST API root.
const DefaultBaseURL = "https://api.infusionsoft.com/crm/rest/v1"

const tracerName = "github.com/florianilch/infusionsoft/internal/crm"

// RequestSpec describes one authenticated API call.
type RequestSpec struct {
	Method string
	Path   string // appended to the base URL, may carry a query string
	Token  string
	Body   any // JSON-encoded when non-nil
}

// Client executes authenticated calls against the REST API.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends spec and returns the JSON response body.
//
// The HTTP status is not inspected: provider errors such as 401 or 404 arrive
// as ordinary results and callers check the decoded shape themselves. Once the
// request is built, only a failed exchange (*transport.TransportError) or a
// non-JSON body (*transport.DecodeError) is an error. An empty body yields a
// nil result. A request that cannot be built (a Body json.Marshal rejects, an
// invalid method or base URL) fails before anything is sent with a plain error
// naming the cause.
func (c *Client) Call(ctx context.Context, spec RequestSpec) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "crm "+spec.Method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	raw, status, err := c.call(ctx, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	slog.DebugContext(ctx, "crm call", "method", spec.Method, "path", spec.Path, "status", status)
	return raw, nil
}

// CallInto sends spec and unmarshals the response body into v.
func (c *Client) CallInto(ctx context.Context, spec RequestSpec, v any) error {
	raw, err := c.Call(ctx, spec)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &transport.DecodeError{Op: "call", Err: err}
	}
	return nil
}

func (c *Client) call(ctx context.Context, spec RequestSpec) (json.RawMessage, int, error) {
	var body io.Reader
	if spec.Body != nil {
		payload, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, c.baseURL+spec.Path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+spec.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := transport.Do(c.httpClient, "call", req)
	if err != nil {
		return nil, 0, err
	}

	raw, err := resp.RawJSON("call")
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}
