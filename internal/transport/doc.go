// Package transport holds the HTTP plumbing shared by the token flow and the
// CRM dispatcher: the two failure kinds every outbound call can produce, a
// helper that sends a request and fully reads the response, and an outbound
// RoundTripper for request correlation.
//
// Callers distinguish failures with errors.As:
//
//	var te *transport.TransportError
//	if errors.As(err, &te) {
//		// connection refused, timeout, context cancelled...
//	}
//
//	var de *transport.DecodeError
//	if errors.As(err, &de) {
//		// the server answered, but not with JSON; de.Body holds a snippet
//	}
package transport
