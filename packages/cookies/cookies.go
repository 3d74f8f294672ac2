// Package cookies implements the Netscape cookie file format used by
// curl and a persisting jar built on net/http/cookiejar.
package cookies

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const fileHeader = `# Netscape HTTP Cookie File
# https://curl.se/docs/http-cookies.html
# This file was generated by gocurl. Edit at your own risk.

`

const httpOnlyPrefix = "#HttpOnly_"

// Cookie is one line of a Netscape cookie file.
type Cookie struct {
	Domain string

	// IncludeSubdomains mirrors the second file field. A leading dot
	// on the domain implies it.
	IncludeSubdomains bool

	Path   string
	Secure bool

	// Expires is the zero time for session cookies, stored as 0 in
	// the file.
	Expires time.Time

	HttpOnly bool
	Name     string
	Value    string
}

// Parse reads cookies from file data. Comment and blank lines are
// skipped, as are lines that do not carry the seven tab-separated
// fields; curl's parser is equally forgiving.
func Parse(data []byte) []Cookie {
	var out []Cookie
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		} else if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}
		var expires time.Time
		if expiry > 0 {
			expires = time.Unix(expiry, 0)
		}

		domain := fields[0]
		include := strings.EqualFold(fields[1], "TRUE")
		if strings.HasPrefix(domain, ".") {
			domain = strings.TrimPrefix(domain, ".")
			include = true
		}

		out = append(out, Cookie{
			Domain:            domain,
			IncludeSubdomains: include,
			Path:              fields[2],
			Secure:            strings.EqualFold(fields[3], "TRUE"),
			Expires:           expires,
			HttpOnly:          httpOnly,
			Name:              fields[5],
			Value:             fields[6],
		})
	}
	return out
}

// Format renders cookies as a Netscape cookie file.
func Format(cookies []Cookie) []byte {
	var b strings.Builder
	b.WriteString(fileHeader)
	for _, c := range cookies {
		b.WriteString(formatLine(c))
	}
	return []byte(b.String())
}

func formatLine(c Cookie) string {
	domain := c.Domain
	if c.IncludeSubdomains {
		domain = "." + c.Domain
	}
	prefix := ""
	if c.HttpOnly {
		prefix = httpOnlyPrefix
	}
	expiry := "0"
	if !c.Expires.IsZero() {
		expiry = strconv.FormatInt(c.Expires.Unix(), 10)
	}
	return fmt.Sprintf("%s%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		prefix, domain, boolField(c.IncludeSubdomains), c.Path,
		boolField(c.Secure), expiry, c.Name, c.Value)
}

func boolField(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// Jar is an http.CookieJar that also keeps a writable record of every
// cookie it stores. The standard jar offers no enumeration, so the
// record is what gets persisted back to disk.
type Jar struct {
	mu      sync.Mutex
	inner   http.CookieJar
	entries map[string]Cookie
}

// NewJar builds an empty jar with public suffix list semantics.
func NewJar() (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{inner: inner, entries: make(map[string]Cookie)}, nil
}

// SetCookies stores response cookies and records them for persistence.
// A cookie with a negative Max-Age or an expiry in the past removes the
// recorded entry, matching jar eviction.
func (j *Jar) SetCookies(u *url.URL, cks []*http.Cookie) {
	j.mu.Lock()
	now := time.Now()
	for _, c := range cks {
		domain := c.Domain
		include := domain != ""
		if include {
			domain = strings.TrimPrefix(domain, ".")
		} else {
			domain = u.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}

		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}

		key := domain + "\t" + path + "\t" + c.Name
		if c.MaxAge < 0 || (!expires.IsZero() && expires.Before(now)) {
			delete(j.entries, key)
			continue
		}

		j.entries[key] = Cookie{
			Domain:            domain,
			IncludeSubdomains: include,
			Path:              path,
			Secure:            c.Secure,
			Expires:           expires,
			HttpOnly:          c.HttpOnly,
			Name:              c.Name,
			Value:             c.Value,
		}
	}
	j.mu.Unlock()

	j.inner.SetCookies(u, cks)
}

// Cookies returns the cookies to send with a request to u.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// LoadFile seeds the jar from a Netscape cookie file.
func (j *Jar) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, c := range Parse(data) {
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		u := &url.URL{Scheme: scheme, Host: c.Domain, Path: c.Path}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			Expires:  c.Expires,
		}
		if c.IncludeSubdomains {
			hc.Domain = c.Domain
		}
		j.SetCookies(u, []*http.Cookie{hc})
	}
	return nil
}

// WriteFile persists the recorded cookies, sorted by domain, path and
// name so output is stable across runs.
func (j *Jar) WriteFile(path string) error {
	j.mu.Lock()
	keys := make([]string, 0, len(j.entries))
	for k := range j.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cookies := make([]Cookie, 0, len(keys))
	for _, k := range keys {
		cookies = append(cookies, j.entries[k])
	}
	j.mu.Unlock()

	return os.WriteFile(path, Format(cookies), 0600)
}
