package restclient

import (
	"context"
	"os"
	"runtime"

	"github.com/abdul-hamid-achik/gocurl/packages/cookies"
	"github.com/abdul-hamid-achik/gocurl/packages/httpclient"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
	"github.com/abdul-hamid-achik/gocurl/packages/response"
)

// Backend executes transactions through the high-level client in
// packages/httpclient. It builds a fresh client for every call, fitting
// the one-transaction-per-invocation model.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string {
	return "restclient"
}

func (b *Backend) Version() string {
	return runtime.Version()
}

// Execute performs one transaction. Where the high-level client cannot
// fulfill a requested capability it degrades to a weaker but successful
// transaction instead of failing:
//   - NTLM becomes basic authentication when both username and password
//     are present, and no authentication otherwise.
//   - Proxy negotiate and proxy NTLM become basic proxy credentials
//     when present, and an unauthenticated proxy otherwise.
//   - Timing is never reported; transfer sub-phases are not observable
//     through the high-level client.
func (b *Backend) Execute(ctx context.Context, d *request.Descriptor) (*response.Response, error) {
	if err := request.ValidateURL(d.URL); err != nil {
		return nil, err
	}

	username := request.ResolveUsername(d)
	password := request.ResolvePassword(d)

	ua := d.UserAgent
	if ua == "" {
		ua = request.DefaultUserAgent
	}

	opts := []httpclient.ClientOption{
		httpclient.WithTimeout(d.MaxTime),
		httpclient.WithConnectTimeout(d.ConnectTimeout),
		httpclient.WithMaxRedirects(d.MaxRedirects),
		httpclient.WithValidateSSL(!d.Insecure),
		httpclient.WithCompression(d.AcceptCompressed),
		httpclient.WithUserAgent(ua),
	}
	if d.CACertPath != "" {
		opts = append(opts, httpclient.WithCACert(d.CACertPath))
	}
	if proxyURL := request.ResolveProxy(d); proxyURL != "" {
		opts = append(opts, httpclient.WithProxy(proxyURL))
		if d.ProxyUsername != "" {
			opts = append(opts, httpclient.WithProxyAuth(d.ProxyUsername, d.ProxyPassword))
		}
		if noProxy := request.ResolveNoProxy(d); noProxy != "" {
			opts = append(opts, httpclient.WithNoProxy(noProxy))
		}
	}

	jar, err := newJar(d)
	if err != nil {
		return nil, err
	}
	if jar != nil {
		opts = append(opts, httpclient.WithCookieJar(jar))
	}

	req := &httpclient.Request{
		Method:      d.Method.String(),
		URL:         d.URL,
		Headers:     d.HeaderLines(),
		Body:        d.Data,
		DiscardBody: d.HeadOnly,
	}

	switch {
	case d.Negotiate:
		opts = append(opts, httpclient.WithNegotiate(username, password))
	case d.NTLM:
		if username != "" && password != "" && !d.HasAuthorizationHeader() {
			req.Username = username
			req.Password = password
		}
	case (username != "" || password != "") && !d.HasAuthorizationHeader():
		req.Username = username
		req.Password = password
	}

	client, err := httpclient.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, request.WrapHTTP(err)
	}

	if jar != nil && d.CookieJar != "" {
		if err := jar.WriteFile(d.CookieJar); err != nil {
			return nil, request.NewIOError(err)
		}
	}

	if d.OutputPath != "" {
		if err := os.WriteFile(d.OutputPath, resp.Body, 0o644); err != nil {
			return nil, request.NewIOError(err)
		}
		resp.Body = nil
	}
	return resp, nil
}

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
