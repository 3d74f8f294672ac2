package native

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpproxy"

	"github.com/abdul-hamid-achik/gocurl/packages/auth/kerberos"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
)

const defaultMaxRedirects = 10

// Idle pool settings; one invocation performs one transaction, so the
// pool only matters across redirect hops.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
)

type proxyAuthScheme int

const (
	proxyAuthNone proxyAuthScheme = iota
	proxyAuthBasic
	proxyAuthNegotiate
	proxyAuthNTLM
)

// transportPlan is everything Execute derives from a descriptor before
// touching the network. Keeping it a plain value lets tests assert the
// derivation without live proxies or a KDC.
type transportPlan struct {
	authUser     string
	authPass     string
	useNegotiate bool
	useNTLM      bool
	useBasic     bool

	tlsConfig      *tls.Config
	proxyTLSConfig *tls.Config

	proxyURL  *url.URL
	proxyAuth proxyAuthScheme
	proxyUser string
	proxyPass string

	// tunnel moves the proxy leg into the manual CONNECT dialer, which
	// is what NTLM's connection-bound handshake and a proxy-specific
	// TLS configuration require.
	tunnel bool

	noProxy  string
	resolves map[string]string

	connectTimeout time.Duration
	maxRedirects   int
}

func planTransport(d *request.Descriptor) (*transportPlan, error) {
	p := &transportPlan{
		authUser:       request.ResolveUsername(d),
		authPass:       request.ResolvePassword(d),
		noProxy:        request.ResolveNoProxy(d),
		connectTimeout: d.ConnectTimeout,
		maxRedirects:   d.MaxRedirects,
	}
	if p.maxRedirects <= 0 {
		p.maxRedirects = defaultMaxRedirects
	}

	// Exactly one origin auth scheme applies: negotiate beats ntlm
	// beats basic. Basic engages when either credential part resolved,
	// so "-u :secret" sends empty-user basic, and steps aside for an
	// existing Authorization header.
	switch {
	case d.Negotiate:
		p.useNegotiate = true
	case d.NTLM:
		p.useNTLM = true
	case (p.authUser != "" || p.authPass != "") && !d.HasAuthorizationHeader():
		p.useBasic = true
	}

	tlsConfig, err := newTLSConfig(d.Insecure, d.CACertPath)
	if err != nil {
		return nil, err
	}
	p.tlsConfig = tlsConfig

	resolves, err := parseResolveOverrides(d.Resolve)
	if err != nil {
		return nil, err
	}
	p.resolves = resolves

	rawProxy := request.ResolveProxy(d)
	if rawProxy == "" {
		return p, nil
	}
	u, err := url.Parse(request.NormalizeProxyURL(rawProxy))
	if err != nil || u.Host == "" {
		return nil, request.NewConfigError("invalid proxy url: %s", rawProxy)
	}
	p.proxyURL = u
	p.proxyUser = d.ProxyUsername
	p.proxyPass = d.ProxyPassword
	if p.proxyUser == "" && u.User != nil {
		p.proxyUser = u.User.Username()
		p.proxyPass, _ = u.User.Password()
	}

	switch {
	case d.ProxyNegotiate:
		p.proxyAuth = proxyAuthNegotiate
	case d.ProxyNTLM:
		p.proxyAuth = proxyAuthNTLM
	case p.proxyUser != "":
		p.proxyAuth = proxyAuthBasic
	}

	proxyTLS, err := newTLSConfig(d.ProxyInsecure, d.ProxyCACertPath)
	if err != nil {
		return nil, err
	}
	p.proxyTLSConfig = proxyTLS

	if p.proxyAuth == proxyAuthNTLM {
		p.tunnel = true
	}
	if u.Scheme == "https" && (d.ProxyInsecure || d.ProxyCACertPath != "") {
		p.tunnel = true
	}
	return p, nil
}

// proxyFor returns the proxy to use for a target URL, or nil when the
// bypass list or the platform's loopback rule sends it direct.
func (p *transportPlan) proxyFor(target *url.URL) *url.URL {
	if p.proxyURL == nil {
		return nil
	}
	cfg := &httpproxy.Config{
		HTTPProxy:  p.proxyURL.String(),
		HTTPSProxy: p.proxyURL.String(),
		NoProxy:    p.noProxy,
	}
	u, err := cfg.ProxyFunc()(target)
	if err != nil || u == nil {
		return nil
	}
	return u
}

func (p *transportPlan) proxyBypassed(addr string) bool {
	return p.proxyFor(&url.URL{Scheme: "http", Host: addr}) == nil
}

func newTLSConfig(insecure bool, caPath string) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: insecure}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, request.NewIOError(err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, request.NewConfigError("no certificates found in %s", caPath)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// parseResolveOverrides turns "host:port:address" entries into a dial
// address map. Addresses may be bracketed IPv6 literals; a comma list
// keeps its first entry.
func parseResolveOverrides(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		parts := strings.SplitN(e, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, request.NewConfigError("invalid resolve entry %q, want host:port:address", e)
		}
		host, port, addr := parts[0], parts[1], parts[2]
		if _, err := strconv.Atoi(port); err != nil {
			return nil, request.NewConfigError("invalid port in resolve entry %q", e)
		}
		if i := strings.IndexByte(addr, ','); i >= 0 {
			addr = addr[:i]
		}
		addr = strings.TrimPrefix(strings.TrimSuffix(addr, "]"), "[")
		m[strings.ToLower(net.JoinHostPort(host, port))] = net.JoinHostPort(addr, port)
	}
	return m, nil
}

// dialer applies resolve overrides and the connect timeout to every
// outbound connection, proxies included.
type dialer struct {
	net       *net.Dialer
	overrides map[string]string
	log       zerolog.Logger
}

func (d *dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if mapped, ok := d.overrides[strings.ToLower(addr)]; ok {
		d.log.Debug().Str("addr", addr).Str("mapped", mapped).Msg("resolve override")
		addr = mapped
	}
	return d.net.DialContext(ctx, network, addr)
}

// buildTransport assembles the transport for one transaction according
// to the plan.
func buildTransport(p *transportPlan, log zerolog.Logger) *http.Transport {
	base := &dialer{
		net:       &net.Dialer{Timeout: p.connectTimeout},
		overrides: p.resolves,
		log:       log,
	}

	t := &http.Transport{
		DialContext:         base.DialContext,
		TLSClientConfig:     p.tlsConfig,
		DisableCompression:  true,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
	}

	if p.proxyURL == nil {
		return t
	}

	if p.tunnel {
		t.DialContext = (&tunnelDialer{base: base, plan: p, log: log}).DialContext
		return t
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  stockProxyString(p),
		HTTPSProxy: stockProxyString(p),
		NoProxy:    p.noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	t.Proxy = func(r *http.Request) (*url.URL, error) {
		return proxyFunc(r.URL)
	}

	if p.proxyAuth == proxyAuthNegotiate {
		t.GetProxyConnectHeader = func(ctx context.Context, proxyURL *url.URL, target string) (http.Header, error) {
			value, err := proxyNegotiateValue(p)
			if err != nil {
				return nil, err
			}
			h := make(http.Header)
			h.Set("Proxy-Authorization", value)
			return h, nil
		}
	}
	return t
}

// stockProxyString embeds basic credentials in the proxy URL so the
// transport raises Proxy-Authorization itself, on CONNECT and on
// absolute-form requests alike.
func stockProxyString(p *transportPlan) string {
	u := *p.proxyURL
	if p.proxyAuth == proxyAuthBasic && p.proxyUser != "" {
		u.User = url.UserPassword(p.proxyUser, p.proxyPass)
	}
	return u.String()
}

func proxyNegotiateValue(p *transportPlan) (string, error) {
	cl, err := kerberos.NewClient(p.proxyUser, p.proxyPass)
	if err != nil {
		return "", err
	}
	return kerberos.NegotiateHeader(cl, kerberos.SPN(p.proxyURL.Host))
}

func basicProxyAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// tunnelDialer reaches targets through a CONNECT tunnel it manages
// itself. With Transport.Proxy unset the transport treats returned
// conns as direct and runs origin TLS on top of the tunnel, so https
// targets keep certificate verification against the origin.
type tunnelDialer struct {
	base *dialer
	plan *transportPlan
	log  zerolog.Logger
}

func (td *tunnelDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if td.plan.proxyBypassed(addr) {
		return td.base.DialContext(ctx, network, addr)
	}

	conn, err := td.dialProxy(ctx, network)
	if err != nil {
		return nil, &net.OpError{Op: "proxyconnect", Net: network, Err: err}
	}
	if err := td.handshake(conn, addr); err != nil {
		conn.Close()
		return nil, &net.OpError{Op: "proxyconnect", Net: network, Err: err}
	}
	td.log.Debug().Str("proxy", td.plan.proxyURL.Host).Str("target", addr).Msg("tunnel established")
	return conn, nil
}

func (td *tunnelDialer) dialProxy(ctx context.Context, network string) (net.Conn, error) {
	addr := td.plan.proxyURL.Host
	if td.plan.proxyURL.Port() == "" {
		port := "80"
		if td.plan.proxyURL.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(addr, port)
	}

	conn, err := td.base.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if td.plan.proxyURL.Scheme != "https" {
		return conn, nil
	}

	tlsConf := td.plan.proxyTLSConfig.Clone()
	if tlsConf.ServerName == "" {
		tlsConf.ServerName = td.plan.proxyURL.Hostname()
	}
	tlsConn := tls.Client(conn, tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (td *tunnelDialer) handshake(conn net.Conn, target string) error {
	br := bufio.NewReader(conn)

	if td.plan.proxyAuth == proxyAuthNTLM {
		return td.handshakeNTLM(conn, br, target)
	}

	header := make(http.Header)
	switch td.plan.proxyAuth {
	case proxyAuthBasic:
		header.Set("Proxy-Authorization", basicProxyAuth(td.plan.proxyUser, td.plan.proxyPass))
	case proxyAuthNegotiate:
		value, err := proxyNegotiateValue(td.plan)
		if err != nil {
			return err
		}
		header.Set("Proxy-Authorization", value)
	}

	resp, err := writeConnect(conn, br, target, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}
	return nil
}

// handshakeNTLM runs the three-leg NTLM exchange. The challenge binds
// to the connection, so the proxy has to keep it open between legs.
func (td *tunnelDialer) handshakeNTLM(conn net.Conn, br *bufio.Reader, target string) error {
	user, domain, domainNeeded := ntlmssp.GetDomain(td.plan.proxyUser)
	negotiate, err := ntlmssp.NewNegotiateMessage(domain, "")
	if err != nil {
		return fmt.Errorf("building NTLM negotiate message: %w", err)
	}

	header := make(http.Header)
	header.Set("Proxy-Authorization", "NTLM "+base64.StdEncoding.EncodeToString(negotiate))
	header.Set("Proxy-Connection", "Keep-Alive")

	resp, err := writeConnect(conn, br, target, header)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		return nil
	}
	if resp.StatusCode != http.StatusProxyAuthRequired {
		resp.Body.Close()
		return fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}

	challenge := ntlmChallenge(resp.Header.Values("Proxy-Authenticate"))
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		resp.Body.Close()
		return err
	}
	resp.Body.Close()
	if resp.Close {
		return errors.New("proxy closed the connection during the NTLM handshake")
	}
	if challenge == "" {
		return errors.New("proxy offered no NTLM challenge: 407 Proxy Authentication Required")
	}

	challengeBytes, err := base64.StdEncoding.DecodeString(challenge)
	if err != nil {
		return fmt.Errorf("decoding NTLM challenge: %w", err)
	}
	authenticate, err := ntlmssp.ProcessChallenge(challengeBytes, user, td.plan.proxyPass, domainNeeded)
	if err != nil {
		return fmt.Errorf("answering NTLM challenge: %w", err)
	}

	header = make(http.Header)
	header.Set("Proxy-Authorization", "NTLM "+base64.StdEncoding.EncodeToString(authenticate))
	header.Set("Proxy-Connection", "Keep-Alive")

	final, err := writeConnect(conn, br, target, header)
	if err != nil {
		return err
	}
	defer final.Body.Close()
	if final.StatusCode != http.StatusOK {
		return fmt.Errorf("proxy CONNECT failed: %s", final.Status)
	}
	return nil
}

func writeConnect(conn net.Conn, br *bufio.Reader, target string, header http.Header) (*http.Response, error) {
	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: target},
		Host:   target,
		Header: header,
	}
	if err := req.Write(conn); err != nil {
		return nil, err
	}
	return http.ReadResponse(br, req)
}

func ntlmChallenge(values []string) string {
	for _, v := range values {
		if strings.HasPrefix(v, "NTLM ") {
			return strings.TrimSpace(strings.TrimPrefix(v, "NTLM "))
		}
	}
	return ""
}
