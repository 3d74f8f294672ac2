// Package native implements the full-featured backend on the standard
// library HTTP engine.
//
// It provides functionality for:
//   - Basic, SPNEGO/Kerberos and NTLM authentication, for origins and proxies
//   - Per-phase transfer timing captured through httptrace
//   - Manual CONNECT tunnels where proxy NTLM or proxy TLS options need them
//   - DNS resolve overrides and no-proxy bypass rules
//   - gzip, deflate and zstd response decoding
package native
