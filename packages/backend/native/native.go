package native

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"os"
	"runtime"

	"github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog"

	"github.com/abdul-hamid-achik/gocurl/packages/auth/kerberos"
	"github.com/abdul-hamid-achik/gocurl/packages/cookies"
	"github.com/abdul-hamid-achik/gocurl/packages/core/logging"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
	"github.com/abdul-hamid-achik/gocurl/packages/response"
)

// Backend executes transactions on the standard library HTTP engine.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "native"
}

func (b *Backend) Version() string {
	return runtime.Version()
}

// Execute performs one transaction described by d, following redirects
// internally. The output file and cookie jar are written only after the
// transfer has fully succeeded.
func (b *Backend) Execute(ctx context.Context, d *request.Descriptor) (*response.Response, error) {
	if err := request.ValidateURL(d.URL); err != nil {
		return nil, err
	}
	plan, err := planTransport(d)
	if err != nil {
		return nil, err
	}

	log := logging.NewTransportLogger(d.Verbose)

	jar, err := newJar(d)
	if err != nil {
		return nil, err
	}

	trace := newTraceCapture()
	client := &http.Client{
		Transport: buildTransport(plan, log),
		Timeout:   d.MaxTime,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			trace.markRedirect()
			log.Debug().Str("location", req.URL.String()).Int("hop", len(via)).Msg("following redirect")
			if len(via) >= plan.maxRedirects {
				return fmt.Errorf("stopped after %d redirects", plan.maxRedirects)
			}
			return nil
		},
	}
	if jar != nil {
		client.Jar = jar
	}

	req, err := newRequest(ctx, d, plan, trace, log)
	if err != nil {
		return nil, err
	}

	log.Info().Str("method", req.Method).Str("url", d.URL).Msg("sending request")
	resp, err := send(client, req, plan)
	if err != nil {
		return nil, request.Wrap(err)
	}
	defer resp.Body.Close()
	log.Info().Int("status", resp.StatusCode).Str("proto", resp.Proto).Msg("response received")

	var body []byte
	if !d.HeadOnly {
		reader := io.Reader(resp.Body)
		if d.AcceptCompressed {
			reader, err = newBodyDecoder(resp.Body, resp.Header.Get("Content-Encoding"))
			if err != nil {
				return nil, request.Wrap(err)
			}
		}
		body, err = io.ReadAll(reader)
		if closer, ok := reader.(io.Closer); ok {
			closer.Close()
		}
		if err != nil {
			return nil, request.Wrap(err)
		}
	}

	var timing *response.Timing
	if d.ShowTiming {
		timing = trace.timing()
	}

	if jar != nil && d.CookieJar != "" {
		if err := jar.WriteFile(d.CookieJar); err != nil {
			return nil, request.NewIOError(err)
		}
	}

	if d.OutputPath != "" {
		if err := os.WriteFile(d.OutputPath, body, 0o644); err != nil {
			return nil, request.NewIOError(err)
		}
		body = nil
	}

	return &response.Response{
		StatusCode: resp.StatusCode,
		Headers:    response.FlattenHeader(resp.Header),
		Body:       body,
		Timing:     timing,
	}, nil
}

func newRequest(ctx context.Context, d *request.Descriptor, plan *transportPlan, trace *traceCapture, log zerolog.Logger) (*http.Request, error) {
	var body io.Reader
	if len(d.Data) > 0 {
		body = bytes.NewReader(d.Data)
	}

	ctx = httptrace.WithClientTrace(ctx, trace.clientTrace(log))
	req, err := http.NewRequestWithContext(ctx, d.Method.String(), d.URL, body)
	if err != nil {
		return nil, request.NewConfigError("invalid request: %v", err)
	}

	if plan.useBasic {
		req.SetBasicAuth(plan.authUser, plan.authPass)
	}

	for _, line := range d.HeaderLines() {
		name, value, ok := request.CutHeaderLine(line)
		if !ok {
			log.Warn().Str("header", line).Msg("skipping malformed header")
			continue
		}
		if name == "Host" {
			req.Host = value
			continue
		}
		req.Header.Add(name, value)
	}

	if req.Header.Get("User-Agent") == "" {
		ua := d.UserAgent
		if ua == "" {
			ua = request.DefaultUserAgent
		}
		req.Header.Set("User-Agent", ua)
	}
	if d.AcceptCompressed && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	// Requests to http targets travel to the proxy in absolute form, so
	// proxy credentials ride on the request itself. CONNECT targets get
	// theirs from the transport instead.
	if plan.proxyAuth == proxyAuthNegotiate && !plan.tunnel && req.URL.Scheme == "http" && plan.proxyFor(req.URL) != nil {
		value, err := proxyNegotiateValue(plan)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Proxy-Authorization", value)
	}
	return req, nil
}

func send(client *http.Client, req *http.Request, plan *transportPlan) (*http.Response, error) {
	switch {
	case plan.useNegotiate:
		cl, err := kerberos.NewClient(plan.authUser, plan.authPass)
		if err != nil {
			return nil, err
		}
		return kerberos.Do(cl, client, req)
	case plan.useNTLM:
		client.Transport = ntlmssp.Negotiator{RoundTripper: client.Transport}
		req.SetBasicAuth(plan.authUser, plan.authPass)
		return client.Do(req)
	default:
		return client.Do(req)
	}
}

// newJar returns nil when the descriptor uses no cookie features, so
// the client gets no Jar at all rather than a typed nil.
func newJar(d *request.Descriptor) (*cookies.Jar, error) {
	if d.CookieFile == "" && d.CookieJar == "" {
		return nil, nil
	}
	jar, err := cookies.NewJar()
	if err != nil {
		return nil, request.NewConfigError("cookie jar: %v", err)
	}
	if d.CookieFile != "" {
		if err := jar.LoadFile(d.CookieFile); err != nil {
			return nil, request.NewIOError(err)
		}
	}
	return jar, nil
}
