package native

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/abdul-hamid-achik/gocurl/packages/response"
)

// traceCapture collects phase timings from httptrace callbacks. When a
// transaction spans several attempts the first connection phases are
// kept and the first-byte mark tracks the last attempt, close to how
// curl attributes time across redirects.
type traceCapture struct {
	mu sync.Mutex

	start time.Time

	dnsStart time.Time
	dns      time.Duration

	connectStart time.Time
	connect      time.Duration

	tlsStart time.Time
	tls      time.Duration

	firstByte time.Duration
	redirect  time.Duration
}

func newTraceCapture() *traceCapture {
	return &traceCapture{start: time.Now()}
}

func (tc *traceCapture) clientTrace(log zerolog.Logger) *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			tc.mu.Lock()
			if tc.dnsStart.IsZero() {
				tc.dnsStart = time.Now()
			}
			tc.mu.Unlock()
			log.Debug().Str("host", info.Host).Msg("resolving")
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			tc.mu.Lock()
			if tc.dns == 0 && !tc.dnsStart.IsZero() {
				tc.dns = time.Since(tc.dnsStart)
			}
			tc.mu.Unlock()
		},
		ConnectStart: func(network, addr string) {
			tc.mu.Lock()
			if tc.connectStart.IsZero() {
				tc.connectStart = time.Now()
			}
			tc.mu.Unlock()
			log.Debug().Str("addr", addr).Msg("connecting")
		},
		ConnectDone: func(network, addr string, err error) {
			tc.mu.Lock()
			if tc.connect == 0 && !tc.connectStart.IsZero() {
				tc.connect = time.Since(tc.connectStart)
			}
			tc.mu.Unlock()
			if err == nil {
				log.Debug().Str("addr", addr).Msg("connected")
			}
		},
		TLSHandshakeStart: func() {
			tc.mu.Lock()
			if tc.tlsStart.IsZero() {
				tc.tlsStart = time.Now()
			}
			tc.mu.Unlock()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			tc.mu.Lock()
			if tc.tls == 0 && !tc.tlsStart.IsZero() {
				tc.tls = time.Since(tc.tlsStart)
			}
			tc.mu.Unlock()
			if err == nil {
				log.Debug().Uint16("version", state.Version).Str("cipher", tls.CipherSuiteName(state.CipherSuite)).Msg("tls established")
			}
		},
		GotFirstResponseByte: func() {
			tc.mu.Lock()
			tc.firstByte = time.Since(tc.start)
			tc.mu.Unlock()
		},
	}
}

// markRedirect records how much time the pre-final hops consumed. The
// last call before the final transaction wins.
func (tc *traceCapture) markRedirect() {
	tc.mu.Lock()
	tc.redirect = time.Since(tc.start)
	tc.mu.Unlock()
}

// timing finalizes the measurements; total runs through the point of
// the call, so capture after the body has been read.
func (tc *traceCapture) timing() *response.Timing {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return &response.Timing{
		DNS:       tc.dns,
		Connect:   tc.connect,
		TLS:       tc.tls,
		FirstByte: tc.firstByte,
		Redirect:  tc.redirect,
		Total:     time.Since(tc.start),
	}
}
