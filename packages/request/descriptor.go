package request

import (
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent when no explicit user agent is configured.
// It matches a current desktop browser so that requests pass the
// fingerprinting rules of corporate proxies and CDNs.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0"

// Descriptor describes one HTTP transaction in backend-neutral terms.
// Descriptors are produced by a Builder and must not be mutated after
// Build returns; backends and tests may share one freely.
type Descriptor struct {
	URL    string
	Method Method

	// Headers holds raw "Name: Value" lines in the order they were
	// added. Duplicates are permitted; values of a repeated name are
	// sent in order. The relative order of distinct names on the wire
	// is not preserved: net/http writes header keys sorted.
	Headers []string

	// Data is the raw request body. A body set through the builder,
	// even an empty one, defaults the method to POST unless one was
	// set explicitly.
	Data []byte

	Username    string
	Password    string
	BearerToken string
	Negotiate   bool
	NTLM        bool

	Insecure    bool
	CACertPath  string
	SSLNoRevoke bool

	ProxyURL        string
	ProxyUsername   string
	ProxyPassword   string
	ProxyNegotiate  bool
	ProxyNTLM       bool
	ProxyInsecure   bool
	ProxyCACertPath string
	NoProxy         string

	ConnectTimeout time.Duration
	MaxTime        time.Duration

	// MaxRedirects caps the redirect chain when positive. Zero leaves
	// the backend's own default in place.
	MaxRedirects int

	// FollowRedirects is always true. Redirect following cannot be
	// disabled; the field exists so callers can read the effective
	// policy instead of assuming it.
	FollowRedirects bool

	ShowTiming       bool
	AcceptCompressed bool
	UserAgent        string

	// Resolve holds "host:port:address" overrides applied before any
	// DNS lookup, for the target and the proxy alike.
	Resolve []string

	OutputPath string
	Silent     bool
	HeadOnly   bool
	Verbose    bool

	CookieFile string
	CookieJar  string
}

// HeaderLines returns the header lines to send: the explicit headers in
// insertion order, then a synthesized bearer Authorization line last.
// The bearer line is appended, never substituted, so an explicit
// Authorization header and a bearer token can coexist. Backends feed
// these lines into an http.Header, which keeps value order per name but
// serializes distinct names in sorted key order.
func (d *Descriptor) HeaderLines() []string {
	lines := append([]string(nil), d.Headers...)
	if d.BearerToken != "" {
		lines = append(lines, "Authorization: Bearer "+d.BearerToken)
	}
	return lines
}

// Builder assembles a Descriptor. Setters return the builder so calls
// chain; Build applies defaults and hands back an owned copy.
type Builder struct {
	d         Descriptor
	methodSet bool
	dataSet   bool
}

// New starts a builder for the given target URL.
func New(url string) *Builder {
	return &Builder{d: Descriptor{URL: url, FollowRedirects: true}}
}

// Method sets the request method explicitly, disabling the POST and
// HEAD defaults that Data and HeadOnly would otherwise apply.
func (b *Builder) Method(m Method) *Builder {
	b.d.Method = m
	b.methodSet = true
	return b
}

// Header appends one raw "Name: Value" line. Order and duplicates are
// preserved.
func (b *Builder) Header(line string) *Builder {
	b.d.Headers = append(b.d.Headers, line)
	return b
}

// Headers appends several raw header lines in order.
func (b *Builder) Headers(lines ...string) *Builder {
	b.d.Headers = append(b.d.Headers, lines...)
	return b
}

// Data sets the request body. A non-nil body, even an empty one,
// counts as data for the POST method default.
func (b *Builder) Data(body []byte) *Builder {
	b.d.Data = body
	b.dataSet = body != nil
	return b
}

func (b *Builder) Username(u string) *Builder {
	b.d.Username = u
	return b
}

func (b *Builder) Password(p string) *Builder {
	b.d.Password = p
	return b
}

func (b *Builder) Bearer(token string) *Builder {
	b.d.BearerToken = token
	return b
}

func (b *Builder) Negotiate(on bool) *Builder {
	b.d.Negotiate = on
	return b
}

func (b *Builder) NTLM(on bool) *Builder {
	b.d.NTLM = on
	return b
}

func (b *Builder) Insecure(on bool) *Builder {
	b.d.Insecure = on
	return b
}

func (b *Builder) CACert(path string) *Builder {
	b.d.CACertPath = path
	return b
}

func (b *Builder) SSLNoRevoke(on bool) *Builder {
	b.d.SSLNoRevoke = on
	return b
}

func (b *Builder) Proxy(url string) *Builder {
	b.d.ProxyURL = url
	return b
}

func (b *Builder) ProxyUser(u string) *Builder {
	b.d.ProxyUsername = u
	return b
}

func (b *Builder) ProxyPassword(p string) *Builder {
	b.d.ProxyPassword = p
	return b
}

func (b *Builder) ProxyNegotiate(on bool) *Builder {
	b.d.ProxyNegotiate = on
	return b
}

func (b *Builder) ProxyNTLM(on bool) *Builder {
	b.d.ProxyNTLM = on
	return b
}

func (b *Builder) ProxyInsecure(on bool) *Builder {
	b.d.ProxyInsecure = on
	return b
}

func (b *Builder) ProxyCACert(path string) *Builder {
	b.d.ProxyCACertPath = path
	return b
}

func (b *Builder) NoProxy(list string) *Builder {
	b.d.NoProxy = list
	return b
}

func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.d.ConnectTimeout = d
	return b
}

func (b *Builder) MaxTime(d time.Duration) *Builder {
	b.d.MaxTime = d
	return b
}

func (b *Builder) MaxRedirects(n int) *Builder {
	b.d.MaxRedirects = n
	return b
}

func (b *Builder) ShowTiming(on bool) *Builder {
	b.d.ShowTiming = on
	return b
}

func (b *Builder) Compressed(on bool) *Builder {
	b.d.AcceptCompressed = on
	return b
}

func (b *Builder) UserAgent(ua string) *Builder {
	b.d.UserAgent = ua
	return b
}

// Resolve appends a "host:port:address" override.
func (b *Builder) Resolve(entry string) *Builder {
	b.d.Resolve = append(b.d.Resolve, entry)
	return b
}

func (b *Builder) Output(path string) *Builder {
	b.d.OutputPath = path
	return b
}

func (b *Builder) Silent(on bool) *Builder {
	b.d.Silent = on
	return b
}

func (b *Builder) HeadOnly(on bool) *Builder {
	b.d.HeadOnly = on
	return b
}

func (b *Builder) Verbose(on bool) *Builder {
	b.d.Verbose = on
	return b
}

func (b *Builder) Cookie(file string) *Builder {
	b.d.CookieFile = file
	return b
}

func (b *Builder) CookieJar(file string) *Builder {
	b.d.CookieJar = file
	return b
}

// Build validates the configuration and returns the finished
// Descriptor. When no method was set explicitly, a body defaults the
// method to POST, a head-only transfer defaults it to HEAD, and
// everything else defaults to GET; a body takes precedence over
// head-only when both are present.
func (b *Builder) Build() (*Descriptor, error) {
	if b.d.URL == "" {
		return nil, NewConfigError("no url specified")
	}
	d := b.d
	if !b.methodSet {
		switch {
		case b.dataSet:
			d.Method = MethodPost
		case d.HeadOnly:
			d.Method = MethodHead
		default:
			d.Method = MethodGet
		}
	}
	d.Headers = append([]string(nil), b.d.Headers...)
	d.Resolve = append([]string(nil), b.d.Resolve...)
	d.Data = append([]byte(nil), b.d.Data...)
	return &d, nil
}

// ValidateURL checks that a target URL is well-formed, carries a host,
// and uses a scheme the backends can speak.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return NewConfigError("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewConfigError("unsupported url scheme: %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return NewConfigError("url must have a host")
	}
	return nil
}

// CutHeaderLine splits a raw "Name: Value" line, trimming surrounding
// whitespace and canonicalizing the name. ok is false for lines without
// a colon; those are skipped everywhere.
func CutHeaderLine(line string) (name, value string, ok bool) {
	n, v, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	return textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(n)), strings.TrimSpace(v), true
}

// HasAuthorizationHeader reports whether the wire will already carry an
// Authorization header, from an explicit line or a bearer token. Basic
// credentials are not applied on top of one, matching curl, where list
// headers override generated ones.
func (d *Descriptor) HasAuthorizationHeader() bool {
	if d.BearerToken != "" {
		return true
	}
	for _, line := range d.Headers {
		if name, _, ok := CutHeaderLine(line); ok && name == "Authorization" {
			return true
		}
	}
	return false
}
