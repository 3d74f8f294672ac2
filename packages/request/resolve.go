package request

import (
	"os"
	"strings"
)

// Environment variables consulted when the corresponding descriptor
// field is empty. Proxy variables are checked in the documented order,
// uppercase before lowercase, first non-empty wins.
const (
	EnvUser     = "GOCURL_USER"
	EnvPassword = "GOCURL_PASSWORD"
)

var proxyEnvVars = []string{
	"HTTPS_PROXY",
	"HTTP_PROXY",
	"ALL_PROXY",
	"https_proxy",
	"http_proxy",
	"all_proxy",
}

var noProxyEnvVars = []string{
	"NO_PROXY",
	"no_proxy",
}

// ResolveCredential returns the explicit value when set, otherwise the
// named environment variable, otherwise the empty string. Resolution
// never mutates the descriptor, so the same precedence holds no matter
// how often or in which order values are resolved.
func ResolveCredential(value, envVar string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envVar)
}

func firstEnv(names []string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ResolveUsername resolves the request username from the descriptor or
// GOCURL_USER.
func ResolveUsername(d *Descriptor) string {
	return ResolveCredential(d.Username, EnvUser)
}

// ResolvePassword resolves the request password from the descriptor or
// GOCURL_PASSWORD.
func ResolvePassword(d *Descriptor) string {
	return ResolveCredential(d.Password, EnvPassword)
}

// ResolveProxy resolves the proxy URL. An explicit value always wins;
// otherwise the environment is searched in the order HTTPS_PROXY,
// HTTP_PROXY, ALL_PROXY, then their lowercase forms.
func ResolveProxy(d *Descriptor) string {
	if d.ProxyURL != "" {
		return d.ProxyURL
	}
	return firstEnv(proxyEnvVars)
}

// ResolveNoProxy resolves the comma-separated proxy bypass list from
// the descriptor or NO_PROXY / no_proxy.
func ResolveNoProxy(d *Descriptor) string {
	if d.NoProxy != "" {
		return d.NoProxy
	}
	return firstEnv(noProxyEnvVars)
}

// NormalizeProxyURL prepends http:// when the proxy string carries no
// scheme, matching curl's reading of bare host:port proxies.
func NormalizeProxyURL(s string) string {
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	return "http://" + s
}
