package transport

import (
	"fmt"
	"strings"
)

// maxBodySnippet bounds how much of an undecodable body is kept on a DecodeError.
const maxBodySnippet = 512

// TransportError reports that a request never produced a complete response:
// dial failures, timeouts, context cancellation or a broken response body.
type TransportError struct {
	Op  string // "exchange", "refresh", "call"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body that is not valid JSON where JSON was expected.
// Body holds a truncated copy of what the server sent.
type DecodeError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: decoding response", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func snippet(body []byte) string {
	if len(body) <= maxBodySnippet {
		return string(body)
	}
	return string(body[:maxBodySnippet]) + "..."
}
