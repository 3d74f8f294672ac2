// Package response holds the backend-neutral result of an HTTP
// transaction: status, raw header lines, body and optional phase
// timings. Rendering lives in the output package.
package response

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// Timing carries the durations of the transaction phases. Phases the
// backend has no data for are zero; a nil *Timing on Response means
// timing collection was disabled or unsupported.
type Timing struct {
	DNS       time.Duration
	Connect   time.Duration
	TLS       time.Duration
	FirstByte time.Duration
	Redirect  time.Duration
	Total     time.Duration
}

// Response is the outcome of one request.
type Response struct {
	// StatusCode is the final status after redirects.
	StatusCode int

	// Headers holds the final response's raw "Name: Value" lines. The
	// status line is not included. Values of a repeated header keep
	// their received order.
	Headers []string

	// Body is the decoded response body. It is empty for head-only
	// transfers and when the body was diverted to an output file.
	Body []byte

	Timing *Timing
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header returns the first value of the named header, matching
// case-insensitively, or "" when absent.
func (r *Response) Header(name string) string {
	for _, line := range r.Headers {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// FlattenHeader converts an http.Header into raw lines. Keys are
// emitted in sorted order since the map form no longer knows the wire
// order; values of one key stay in received order.
func FlattenHeader(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(h))
	for _, k := range keys {
		for _, v := range h[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return lines
}
