package request

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind places a failure in one of four buckets so callers can pick
// exit codes and hints without inspecting backend internals.
type ErrorKind int

const (
	// KindTransport covers failures while performing the transaction:
	// DNS, TCP, TLS, proxy and redirect errors.
	KindTransport ErrorKind = iota
	// KindIO covers local filesystem failures, such as writing the
	// output file or reading a CA bundle.
	KindIO
	// KindConfig covers malformed input that reached the engine, such
	// as an unparseable method token or a rejected proxy URL.
	KindConfig
	// KindHTTP covers backend-specific translation failures that are
	// neither transport nor local IO.
	KindHTTP
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Remediation hints attached to common transport failures. Wording is
// load-bearing: it is printed verbatim to users and asserted by tests.
const (
	hintTargetDNS  = "DNS resolution failed. If behind a corporate proxy, set HTTPS_PROXY or use -x <proxy-url>"
	hintProxyDNS   = "Could not resolve proxy hostname. Check your proxy URL"
	hintTLS        = "SSL error. Try --insecure (-k), --cacert <path>, or --ssl-no-revoke for revocation issues"
	hintRevocation = "Certificate revocation check failed. Try --ssl-no-revoke to disable revocation checks"
	hintProxyAuth  = "Proxy requires authentication (407). Try --proxy-negotiate for Kerberos/SPNEGO or --proxy-user <user:pass>"
)

// Error is the single error type surfaced by backends. It wraps the
// underlying cause, keeps the kind, and derives a remediation hint on
// demand from the wrapped chain.
type Error struct {
	Kind ErrorKind
	msg  string
	err  error
}

// NewTransportError wraps a failure that occurred while performing the
// transaction.
func NewTransportError(err error) *Error {
	return &Error{Kind: KindTransport, err: err}
}

// NewIOError wraps a local filesystem failure.
func NewIOError(err error) *Error {
	return &Error{Kind: KindIO, err: err}
}

// NewConfigError reports malformed input.
func NewConfigError(format string, args ...any) *Error {
	return &Error{Kind: KindConfig, msg: fmt.Sprintf(format, args...)}
}

// NewHTTPError reports a backend translation failure.
func NewHTTPError(format string, args ...any) *Error {
	return &Error{Kind: KindHTTP, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s error: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Hint returns a remediation hint for the failure, or "" when none
// applies. Config and IO errors never carry hints. Checks run in a
// fixed priority order; the first match wins.
func (e *Error) Hint() string {
	if e.Kind != KindTransport || e.err == nil {
		return ""
	}
	var dnsErr *net.DNSError
	if isProxyConnectError(e.err) {
		if errors.As(e.err, &dnsErr) {
			return hintProxyDNS
		}
	} else if errors.As(e.err, &dnsErr) {
		return hintTargetDNS
	}
	if isTLSError(e.err) {
		return hintTLS
	}
	msg := e.err.Error()
	if strings.Contains(msg, "revocation") || strings.Contains(msg, "revoked") {
		return hintRevocation
	}
	// The transport reports a refused CONNECT with the status text only,
	// so match the phrase as well as the code.
	if strings.Contains(msg, "407") || strings.Contains(msg, "Proxy Authentication Required") {
		return hintProxyAuth
	}
	return ""
}

// Wrap classifies err as a transport failure unless it is already an
// *Error, which passes through unchanged. Backends call this on the
// result of the HTTP round trip so earlier config and IO
// classifications survive.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return NewTransportError(err)
}

// WrapHTTP classifies err as a backend translation failure unless it
// is already an *Error. The reduced backend funnels its client's
// failures through here, mirroring how they differ in origin from the
// native transport's.
func WrapHTTP(err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Kind: KindHTTP, err: err}
}

// isProxyConnectError reports whether the chain contains the dial
// failure the transport raises when it cannot reach the proxy. The
// standard library tags those with the "proxyconnect" op.
func isProxyConnectError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if opErr, ok := e.(*net.OpError); ok && opErr.Op == "proxyconnect" {
			return true
		}
	}
	return false
}

func isTLSError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:")
}
