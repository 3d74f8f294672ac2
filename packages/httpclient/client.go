package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"os"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/abdul-hamid-achik/gocurl/packages/auth/kerberos"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
	"github.com/abdul-hamid-achik/gocurl/packages/response"
)

const (
	// DefaultMaxRedirects caps the redirect chain unless overridden.
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client performs one-shot HTTP requests. Build it with NewClient; the
// zero value is not usable.
type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	connectTimeout time.Duration
	maxRedirects   int
	validateSSL    bool
	caCertPath     string
	proxyURL       string
	proxyUsername  string
	proxyPassword  string
	noProxy        string
	userAgent      string
	compression    bool
	negotiate      bool
	negotiateUser  string
	negotiatePass  string
	jar            http.CookieJar
}

// Request is one transaction handed to Do.
type Request struct {
	Method string
	URL    string

	// Headers holds raw "Name: Value" lines. Lines without a colon are
	// skipped; a Host line overrides the request host instead of
	// becoming a header.
	Headers []string

	Body []byte

	// Username and Password enable basic auth when either is
	// non-empty; an empty username with a password is sent as-is.
	Username string
	Password string

	// DiscardBody skips reading the response body for head-only
	// transfers.
	DiscardBody bool
}

type ClientOption func(*Client)

// NewClient builds a client. Option values that cannot be applied, such
// as an unreadable CA bundle or an unparseable proxy URL, surface here
// rather than at request time.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		maxRedirects: DefaultMaxRedirects,
		validateSSL:  true,
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		DisableCompression:  !c.compression,
	}

	dialer := &net.Dialer{Timeout: c.connectTimeout}
	transport.DialContext = dialer.DialContext

	tlsConfig := &tls.Config{InsecureSkipVerify: !c.validateSSL}
	if c.caCertPath != "" {
		pool, err := loadCAPool(c.caCertPath)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}
	transport.TLSClientConfig = tlsConfig

	if c.proxyURL != "" {
		proxyFunc, err := buildProxyFunc(c.proxyURL, c.proxyUsername, c.proxyPassword, c.noProxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = proxyFunc
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return fmt.Errorf("stopped after %d redirects", c.maxRedirects)
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
		Jar:           c.jar,
	}

	return c, nil
}

// WithTimeout bounds the whole transaction including the body read.
// Zero means no limit.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithConnectTimeout bounds connection establishment only.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.connectTimeout = d
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		if max > 0 {
			c.maxRedirects = max
		}
	}
}

// WithValidateSSL enables or disables peer certificate validation.
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithCACert trusts the PEM bundle at path instead of the system roots.
func WithCACert(path string) ClientOption {
	return func(c *Client) {
		c.caCertPath = path
	}
}

// WithProxy routes requests through the given proxy URL.
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithProxyAuth sets proxy basic credentials.
func WithProxyAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.proxyUsername = username
		c.proxyPassword = password
	}
}

// WithNoProxy sets a comma-separated list of hosts reached directly.
func WithNoProxy(list string) ClientOption {
	return func(c *Client) {
		c.noProxy = list
	}
}

// WithUserAgent sets the User-Agent sent when no header supplies one.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCompression advertises compressed transfer coding and decodes
// the response transparently.
func WithCompression(on bool) ClientOption {
	return func(c *Client) {
		c.compression = on
	}
}

// WithNegotiate answers Negotiate challenges with Kerberos/SPNEGO
// tokens. Empty credentials use the ambient credential cache.
func WithNegotiate(username, password string) ClientOption {
	return func(c *Client) {
		c.negotiate = true
		c.negotiateUser = username
		c.negotiatePass = password
	}
}

// WithCookieJar attaches a jar consulted and updated across the
// redirect chain.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *Client) {
		c.jar = jar
	}
}

// Do performs the request and returns the final response with the
// status line excluded from the header lines. Transport errors are
// returned unclassified; callers own the taxonomy.
func (c *Client) Do(ctx context.Context, req *Request) (*response.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, request.NewConfigError("invalid request: %v", err)
	}

	if req.Username != "" || req.Password != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}

	for _, line := range req.Headers {
		name, value, ok := request.CutHeaderLine(line)
		if !ok {
			continue
		}
		if name == "Host" {
			httpReq.Host = value
			continue
		}
		httpReq.Header.Add(name, value)
	}

	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	httpResp, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var respBody []byte
	if !req.DiscardBody {
		respBody, err = io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, err
		}
	}

	return &response.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    response.FlattenHeader(httpResp.Header),
		Body:       respBody,
	}, nil
}

func (c *Client) send(httpReq *http.Request) (*http.Response, error) {
	if c.negotiate {
		cl, err := kerberos.NewClient(c.negotiateUser, c.negotiatePass)
		if err != nil {
			return nil, err
		}
		return kerberos.Do(cl, c.httpClient, httpReq)
	}
	return c.httpClient.Do(httpReq)
}

func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, request.NewIOError(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, request.NewConfigError("no certificates found in %s", path)
	}
	return pool, nil
}

// buildProxyFunc validates the proxy URL, embeds credentials, and
// returns a proxy selector honoring the bypass list with the platform's
// NO_PROXY matching rules.
func buildProxyFunc(proxyURL, username, password, noProxy string) (func(*http.Request) (*neturl.URL, error), error) {
	u, err := neturl.Parse(request.NormalizeProxyURL(proxyURL))
	if err != nil || u.Host == "" {
		return nil, request.NewConfigError("invalid proxy url: %s", proxyURL)
	}
	if username != "" {
		u.User = neturl.UserPassword(username, password)
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  u.String(),
		HTTPSProxy: u.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(r *http.Request) (*neturl.URL, error) {
		return proxyFunc(r.URL)
	}, nil
}
