package native

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/gocurl/packages/cookies"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
)

// clearResolutionEnv blanks every variable the resolution policy reads
// so ambient shell configuration cannot leak into assertions.
func clearResolutionEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		request.EnvUser, request.EnvPassword,
		"HTTPS_PROXY", "HTTP_PROXY", "ALL_PROXY",
		"https_proxy", "http_proxy", "all_proxy",
		"NO_PROXY", "no_proxy",
	} {
		t.Setenv(v, "")
	}
}

func build(t *testing.T, b *request.Builder) *request.Descriptor {
	t.Helper()
	d, err := b.Build()
	require.NoError(t, err)
	return d
}

func TestIdentify(t *testing.T) {
	b := New()
	assert.Equal(t, "native", b.Name())
	assert.NotEmpty(t, b.Version())
}

func TestExecuteGET(t *testing.T) {
	clearResolutionEnv(t)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("X-Request-Id", "abc-123")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL)))
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "hello", resp.BodyString())
	assert.Equal(t, request.DefaultUserAgent, gotUA)
	assert.Contains(t, resp.Headers, "X-Request-Id: abc-123")
	assert.Nil(t, resp.Timing)
}

func TestExecuteHeaderLines(t *testing.T) {
	clearResolutionEnv(t)
	var gotTags, gotAuth []string
	var gotHost, gotGarbage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTags = r.Header.Values("X-Tag")
		gotAuth = r.Header.Values("Authorization")
		gotHost = r.Host
		gotGarbage = r.Header.Get("Garbage-Line")
	}))
	defer srv.Close()

	d := build(t, request.New(srv.URL).
		Headers("X-Tag: one", "X-Tag: two", "Host: vanity.example", "Authorization: Token abc", "garbage-line").
		Bearer("tok"))
	_, err := New().Execute(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, gotTags)
	assert.Equal(t, "vanity.example", gotHost)
	assert.Empty(t, gotGarbage)
	// The bearer header is appended last and never replaces an explicit
	// Authorization line.
	assert.Equal(t, []string{"Token abc", "Bearer tok"}, gotAuth)
}

// On the wire, values of a repeated name keep their insertion order
// while distinct names come out in sorted key order.
func TestExecuteHeaderWireOrder(t *testing.T) {
	clearResolutionEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	headLines := make(chan []string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var lines []string
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				break
			}
			lines = append(lines, line)
		}
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"))
		headLines <- lines
	}()

	d := build(t, request.New("http://"+ln.Addr().String()).
		Headers("Zebra: 1", "X-Tag: one", "Alpha: 2", "X-Tag: two"))
	_, err = New().Execute(context.Background(), d)
	require.NoError(t, err)

	lines := <-headLines
	assert.Less(t, headerIndex(t, lines, "X-Tag: one"), headerIndex(t, lines, "X-Tag: two"))
	assert.Less(t, headerIndex(t, lines, "Alpha: 2"), headerIndex(t, lines, "Zebra: 1"))
}

func headerIndex(t *testing.T, lines []string, want string) int {
	t.Helper()
	for i, line := range lines {
		if line == want {
			return i
		}
	}
	t.Fatalf("header %q not sent, got %v", want, lines)
	return -1
}

func TestExecuteBasicAuth(t *testing.T) {
	clearResolutionEnv(t)
	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	defer srv.Close()

	_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Username("admin").Password("secret")))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", pass)
}

func TestExecuteBasicAuthFromEnv(t *testing.T) {
	clearResolutionEnv(t)
	t.Setenv(request.EnvUser, "envuser")
	t.Setenv(request.EnvPassword, "envpass")

	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	defer srv.Close()

	_, err := New().Execute(context.Background(), build(t, request.New(srv.URL)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "envuser", user)
	assert.Equal(t, "envpass", pass)
}

func TestExecuteBasicAuthEmptyUsername(t *testing.T) {
	clearResolutionEnv(t)
	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	defer srv.Close()

	_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Password("secret")))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, user)
	assert.Equal(t, "secret", pass)
}

func TestExecutePostData(t *testing.T) {
	clearResolutionEnv(t)
	var gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotMethod = r.Method
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Data([]byte(`{"a":1}`))))
	require.NoError(t, err)

	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, `{"a":1}`, gotBody)
}

func TestExecuteHeadOnly(t *testing.T) {
	clearResolutionEnv(t)
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Length", "5")
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).HeadOnly(true)))
	require.NoError(t, err)

	assert.Equal(t, "HEAD", gotMethod)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestExecuteUserAgent(t *testing.T) {
	clearResolutionEnv(t)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	t.Run("option applies when no header is given", func(t *testing.T) {
		_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).UserAgent("gocurl-test/1.0")))
		require.NoError(t, err)
		assert.Equal(t, "gocurl-test/1.0", gotUA)
	})

	t.Run("explicit header wins over the option", func(t *testing.T) {
		_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).
			UserAgent("gocurl-test/1.0").Header("User-Agent: hand-rolled/2")))
		require.NoError(t, err)
		assert.Equal(t, "hand-rolled/2", gotUA)
	})
}

func TestExecuteTiming(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("timed"))
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).ShowTiming(true)))
	require.NoError(t, err)

	require.NotNil(t, resp.Timing)
	assert.Greater(t, resp.Timing.Total, time.Duration(0))
	assert.Greater(t, resp.Timing.FirstByte, time.Duration(0))
	assert.Greater(t, resp.Timing.Connect, time.Duration(0))
	// Literal IP targets skip resolution entirely.
	assert.Zero(t, resp.Timing.DNS)
	assert.GreaterOrEqual(t, resp.Timing.Total, resp.Timing.FirstByte)
}

func TestExecuteFollowsRedirects(t *testing.T) {
	clearResolutionEnv(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("done"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL+"/start").ShowTiming(true)))
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "done", resp.BodyString())
	require.NotNil(t, resp.Timing)
	assert.Greater(t, resp.Timing.Redirect, time.Duration(0))
}

func TestExecuteRedirectCap(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).MaxRedirects(3)))

	var reqErr *request.Error
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.KindTransport, reqErr.Kind)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
	assert.Empty(t, reqErr.Hint())
}

func TestExecuteOutputFile(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.bin")
	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Output(path)))
	require.NoError(t, err)

	assert.Empty(t, resp.Body)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestExecuteOutputFileSkippedOnFailure(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	path := filepath.Join(t.TempDir(), "out.bin")
	_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Output(path)))

	var reqErr *request.Error
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.KindTransport, reqErr.Kind)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecuteCompressedGzip(t *testing.T) {
	clearResolutionEnv(t)
	var gotAcceptEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAcceptEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("compressed payload"))
		gz.Close()
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Compressed(true)))
	require.NoError(t, err)

	assert.Equal(t, "gzip, deflate, zstd", gotAcceptEncoding)
	assert.Equal(t, "compressed payload", resp.BodyString())
}

func TestExecuteCompressedZstd(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		zw, err := zstd.NewWriter(w)
		require.NoError(t, err)
		zw.Write([]byte("zstd payload"))
		zw.Close()
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Compressed(true)))
	require.NoError(t, err)
	assert.Equal(t, "zstd payload", resp.BodyString())
}

func TestExecuteCompressedKeepsExplicitAcceptEncoding(t *testing.T) {
	clearResolutionEnv(t)
	var gotAcceptEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAcceptEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("compressed payload"))
		gz.Close()
	}))
	defer srv.Close()

	resp, err := New().Execute(context.Background(),
		build(t, request.New(srv.URL).Compressed(true).Header("Accept-Encoding: gzip")))
	require.NoError(t, err)

	assert.Equal(t, "gzip", gotAcceptEncoding)
	assert.Equal(t, "compressed payload", resp.BodyString())
}

func TestExecuteNoAcceptEncodingByDefault(t *testing.T) {
	clearResolutionEnv(t)
	var gotAcceptEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAcceptEncoding = r.Header.Get("Accept-Encoding")
	}))
	defer srv.Close()

	_, err := New().Execute(context.Background(), build(t, request.New(srv.URL)))
	require.NoError(t, err)
	assert.Empty(t, gotAcceptEncoding)
}

func TestExecuteResolveOverride(t *testing.T) {
	clearResolutionEnv(t)
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		w.Write([]byte("override"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port := u.Port()

	d := build(t, request.New(fmt.Sprintf("http://gocurl.test:%s/ok", port)).
		Resolve(fmt.Sprintf("gocurl.test:%s:127.0.0.1", port)))
	resp, err := New().Execute(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "override", resp.BodyString())
	assert.Equal(t, "gocurl.test:"+port, gotHost)
}

func TestExecuteProxyAbsoluteForm(t *testing.T) {
	clearResolutionEnv(t)
	var gotURI, gotProxyAuth string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		gotProxyAuth = r.Header.Get("Proxy-Authorization")
		w.Write([]byte("proxied"))
	}))
	defer proxy.Close()

	d := build(t, request.New("http://upstream.internal/data").
		Proxy(proxy.URL).ProxyUser("pu").ProxyPassword("pp").MaxTime(5*time.Second))
	resp, err := New().Execute(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "proxied", resp.BodyString())
	assert.Equal(t, "http://upstream.internal/data", gotURI)
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("pu:pp"))
	assert.Equal(t, want, gotProxyAuth)
}

func TestExecuteProxyAuthRequiredHint(t *testing.T) {
	clearResolutionEnv(t)
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer proxy.Close()

	d := build(t, request.New("https://upstream.internal/secure").Proxy(proxy.URL).MaxTime(5*time.Second))
	_, err := New().Execute(context.Background(), d)

	var reqErr *request.Error
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.KindTransport, reqErr.Kind)
	assert.Equal(t, "Proxy requires authentication (407). Try --proxy-negotiate for Kerberos/SPNEGO or --proxy-user <user:pass>", reqErr.Hint())
}

// ntlmType2Challenge builds the minimal challenge message the NTLM
// library accepts: signature, message type 2, empty target name and
// info, the unicode negotiate flag (the library rejects challenges
// without it), and an eight-byte server challenge.
func ntlmType2Challenge() []byte {
	msg := make([]byte, 48)
	copy(msg, "NTLMSSP\x00")
	binary.LittleEndian.PutUint32(msg[8:], 2)
	binary.LittleEndian.PutUint32(msg[20:], 1) // NTLMSSP_NEGOTIATE_UNICODE
	copy(msg[24:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	return msg
}

func TestExecuteProxyNTLMTunnel(t *testing.T) {
	clearResolutionEnv(t)
	challenge := ntlmType2Challenge()
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodConnect, r.Method)
		auth := r.Header.Get("Proxy-Authorization")

		// Negotiate message, leg one.
		if strings.HasPrefix(auth, "NTLM TlRMTVNTUAAB") {
			w.Header().Set("Proxy-Authenticate", "NTLM "+base64.StdEncoding.EncodeToString(challenge))
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}

		// Authenticate message, leg two. Establish the tunnel and act
		// as the origin behind it.
		require.True(t, strings.HasPrefix(auth, "NTLM TlRMTVNTUAAD"), "expected authenticate message, got %q", auth)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, buf, err := hj.Hijack()
		require.NoError(t, err)
		defer conn.Close()

		buf.WriteString("HTTP/1.1 200 Connection Established\r\n\r\n")
		require.NoError(t, buf.Flush())

		inner, err := http.ReadRequest(buf.Reader)
		require.NoError(t, err)
		assert.Equal(t, "/hello", inner.URL.Path)

		body := "tunneled"
		fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
		require.NoError(t, buf.Flush())
	}))
	defer proxy.Close()

	d := build(t, request.New("http://upstream.internal/hello").
		Proxy(proxy.URL).
		ProxyNTLM(true).
		ProxyUser(`CORP\alice`).
		ProxyPassword("secret").
		MaxTime(5*time.Second))
	resp, err := New().Execute(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "tunneled", resp.BodyString())
}

func TestExecuteTLSVerification(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer srv.Close()

	t.Run("untrusted authority fails with hint", func(t *testing.T) {
		_, err := New().Execute(context.Background(), build(t, request.New(srv.URL)))
		var reqErr *request.Error
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, request.KindTransport, reqErr.Kind)
		assert.Equal(t, "SSL error. Try --insecure (-k), --cacert <path>, or --ssl-no-revoke for revocation issues", reqErr.Hint())
	})

	t.Run("insecure skips verification", func(t *testing.T) {
		resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).Insecure(true)))
		require.NoError(t, err)
		assert.Equal(t, "secure", resp.BodyString())
	})

	t.Run("ca bundle trusts the server", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "server.pem")
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
		require.NoError(t, os.WriteFile(path, pemBytes, 0o600))

		resp, err := New().Execute(context.Background(), build(t, request.New(srv.URL).CACert(path)))
		require.NoError(t, err)
		assert.Equal(t, "secure", resp.BodyString())
	})

	t.Run("missing ca bundle is an io error", func(t *testing.T) {
		_, err := New().Execute(context.Background(), build(t, request.New(srv.URL).CACert(filepath.Join(t.TempDir(), "absent.pem"))))
		var reqErr *request.Error
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, request.KindIO, reqErr.Kind)
		assert.Empty(t, reqErr.Hint())
	})
}

func TestExecuteDNSHints(t *testing.T) {
	clearResolutionEnv(t)

	t.Run("target resolution failure", func(t *testing.T) {
		_, err := New().Execute(context.Background(), build(t,
			request.New("http://gocurl-nonexistent-host.invalid/").MaxTime(10*time.Second)))
		var reqErr *request.Error
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, request.KindTransport, reqErr.Kind)
		assert.Equal(t, "DNS resolution failed. If behind a corporate proxy, set HTTPS_PROXY or use -x <proxy-url>", reqErr.Hint())
	})

	t.Run("proxy resolution failure", func(t *testing.T) {
		_, err := New().Execute(context.Background(), build(t,
			request.New("http://upstream.internal/").
				Proxy("http://gocurl-nonexistent-proxy.invalid:3128").
				MaxTime(10*time.Second)))
		var reqErr *request.Error
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, request.KindTransport, reqErr.Kind)
		assert.Equal(t, "Could not resolve proxy hostname. Check your proxy URL", reqErr.Hint())
	})
}

func TestExecuteCookieFileAndJar(t *testing.T) {
	clearResolutionEnv(t)
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "xyz", Path: "/"})
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cookieFile := filepath.Join(dir, "cookies.txt")
	content := cookies.Format([]cookies.Cookie{{Domain: "127.0.0.1", Path: "/", Name: "session", Value: "abc123"}})
	require.NoError(t, os.WriteFile(cookieFile, content, 0o600))
	jarPath := filepath.Join(dir, "jar.txt")

	d := build(t, request.New(srv.URL).Cookie(cookieFile).CookieJar(jarPath))
	resp, err := New().Execute(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "session=abc123", gotCookie)

	data, err := os.ReadFile(jarPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "127.0.0.1\tFALSE\t/\tFALSE\t0\tsid\txyz")
	assert.Contains(t, string(data), "127.0.0.1\tFALSE\t/\tFALSE\t0\tsession\tabc123")
}

func TestExecuteMissingCookieFile(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	d := build(t, request.New(srv.URL).Cookie(filepath.Join(t.TempDir(), "absent.txt")))
	_, err := New().Execute(context.Background(), d)

	var reqErr *request.Error
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.KindIO, reqErr.Kind)
}

func TestExecuteRejectsBadURLs(t *testing.T) {
	clearResolutionEnv(t)
	for _, rawURL := range []string{"ftp://example.com/file", "example.com", "http://"} {
		_, err := New().Execute(context.Background(), &request.Descriptor{URL: rawURL, Method: request.MethodGet})
		var reqErr *request.Error
		require.ErrorAs(t, err, &reqErr, rawURL)
		assert.Equal(t, request.KindConfig, reqErr.Kind, rawURL)
		assert.Empty(t, reqErr.Hint(), rawURL)
	}
}

func TestExecuteContextCancel(t *testing.T) {
	clearResolutionEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New().Execute(ctx, build(t, request.New(srv.URL)))
	var reqErr *request.Error
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.KindTransport, reqErr.Kind)
}
