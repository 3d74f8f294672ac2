// Package httpclient provides a general-purpose HTTP client with a
// narrower surface than direct transport control. It provides
// functionality for:
//   - One-shot requests with raw ordered header lines
//   - Basic and Negotiate authentication
//   - Proxy support with credentials and a bypass list
//   - TLS verification control and custom CA bundles
//   - Connect and total timeouts and a redirect cap
//
// The restclient backend is built on this package. Capabilities the
// package does not expose, such as phase timings or NTLM, are the
// documented gaps of that backend.
package httpclient
