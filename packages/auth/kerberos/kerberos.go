// Package kerberos acquires SPNEGO tokens for Negotiate authentication
// against origin servers and proxies.
package kerberos

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// NewClient builds a Kerberos client. With a username it authenticates
// by password, taking the realm from a user@REALM principal or the
// default realm of the local configuration. Without a username it
// loads the ambient credential cache named by KRB5CCNAME, falling back
// to the conventional per-uid path.
func NewClient(username, password string) (*client.Client, error) {
	confPath := os.Getenv("KRB5_CONFIG")
	if confPath == "" {
		confPath = defaultKrb5Conf
	}
	krbConf, err := config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("loading kerberos config: %w", err)
	}

	if username != "" {
		user, realm := splitPrincipal(username, krbConf.LibDefaults.DefaultRealm)
		return client.NewWithPassword(user, realm, password, krbConf, client.DisablePAFXFAST(true)), nil
	}

	cache, err := credentials.LoadCCache(ccachePath())
	if err != nil {
		return nil, fmt.Errorf("loading credential cache: %w", err)
	}
	cl, err := client.NewFromCCache(cache, krbConf)
	if err != nil {
		return nil, fmt.Errorf("initializing from credential cache: %w", err)
	}
	return cl, nil
}

// Do performs req through httpCl, answering Negotiate challenges with
// tokens minted from cl. The transport, jar and redirect policy of
// httpCl stay in effect.
func Do(cl *client.Client, httpCl *http.Client, req *http.Request) (*http.Response, error) {
	return spnego.NewClient(cl, httpCl, "").Do(req)
}

// SetHeader attaches a SPNEGO Authorization header for the request's
// host, for transports that cannot retry a challenged request.
func SetHeader(cl *client.Client, req *http.Request) error {
	return spnego.SetSPNEGOHeader(cl, req, "")
}

// NegotiateHeader mints a "Negotiate <token>" header value for the
// given service principal, e.g. HTTP/proxy.example.com.
func NegotiateHeader(cl *client.Client, spn string) (string, error) {
	s := spnego.SPNEGOClient(cl, spn)
	if err := s.AcquireCred(); err != nil {
		return "", fmt.Errorf("acquiring kerberos credential: %w", err)
	}
	tok, err := s.InitSecContext()
	if err != nil {
		return "", fmt.Errorf("initializing spnego context: %w", err)
	}
	raw, err := tok.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshaling spnego token: %w", err)
	}
	return "Negotiate " + base64.StdEncoding.EncodeToString(raw), nil
}

// SPN derives the HTTP service principal for a host, stripping any
// port.
func SPN(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "HTTP/" + host
}

func splitPrincipal(username, defaultRealm string) (string, string) {
	if user, realm, ok := strings.Cut(username, "@"); ok && realm != "" {
		return user, realm
	}
	return username, defaultRealm
}

func ccachePath() string {
	if v := os.Getenv("KRB5CCNAME"); v != "" {
		return strings.TrimPrefix(v, "FILE:")
	}
	return "/tmp/krb5cc_" + strconv.Itoa(os.Getuid())
}
