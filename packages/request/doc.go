// Package request defines the backend-agnostic description of a single
// HTTP transaction.
//
// It provides:
//   - The Descriptor record and its builder, covering method, headers,
//     body, authentication, TLS, proxy, timing and output options
//   - Resolution of credentials, proxy URL and no-proxy list from
//     explicit values with environment fallbacks under a fixed precedence
//   - The error taxonomy shared by all transport backends, including
//     remediation hints for common transport failures
//
// A Descriptor is built once per invocation, handed to exactly one
// backend call, and discarded. It carries no state beyond that call.
package request
