// Package curlcmd translates pasted curl command lines into equivalent
// gocurl invocations. Browser devtools emit "Copy as cURL" commands
// full of flags gocurl does not carry; Parse keeps what gocurl can
// express, drops the rest, and reports what it dropped.
package curlcmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command is the subset of a curl invocation gocurl can express.
// Headers keep their command-line order.
type Command struct {
	Method  string
	URL     string
	Headers []string

	Data    string
	HasData bool

	User      string
	Bearer    string
	Negotiate bool
	NTLM      bool

	Insecure    bool
	CACert      string
	SSLNoRevoke bool

	Proxy          string
	ProxyUser      string
	ProxyNegotiate bool
	ProxyNTLM      bool
	ProxyInsecure  bool
	ProxyCACert    string
	NoProxy        string

	ConnectTimeout int
	MaxTime        int
	MaxRedirs      int

	Compressed bool
	Head       bool
	Silent     bool
	Verbose    bool
	Output     string
	CookieFile string
	CookieJar  string
	Resolve    []string
	UserAgent  string

	// Dropped lists flags that have no gocurl equivalent, in the order
	// they appeared.
	Dropped []string
}

// Shorthand flags that take a value and may carry it attached, curl
// style (-XPOST, -ofile).
const valueShorts = "XHdAuebcoxm"

// Shorthand flags without a value, safe to split out of a combined
// token such as -sSL.
const boolShorts = "sSLkIvfi"

// Parse reads one curl command line. A leading "curl" word is
// optional. Quoting follows the shell: single quotes, double quotes,
// backslash escapes, bash ANSI-C $'...' strings, and backslash-newline
// continuations.
func Parse(command string) (*Command, error) {
	tokens := expandShortFlags(tokenize(strings.TrimSpace(command)))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	c := &Command{}
	for i := 0; i < len(tokens); i++ {
		flag, inline, hasInline := splitFlag(tokens[i])

		value := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("missing value for %s", flag)
			}
			i++
			return tokens[i], nil
		}

		var v string
		var err error
		switch flag {
		case "-X", "--request":
			if v, err = value(); err == nil {
				c.Method = strings.ToUpper(v)
			}
		case "-H", "--header":
			if v, err = value(); err == nil {
				c.Headers = append(c.Headers, v)
			}
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			if v, err = value(); err == nil {
				// curl joins repeated data flags with &.
				if c.HasData {
					c.Data += "&" + v
				} else {
					c.Data = v
					c.HasData = true
				}
			}
		case "-u", "--user":
			v, err = value()
			c.User = v
		case "--oauth2-bearer":
			v, err = value()
			c.Bearer = v
		case "--negotiate":
			c.Negotiate = true
		case "--ntlm":
			c.NTLM = true
		case "-k", "--insecure":
			c.Insecure = true
		case "--cacert":
			v, err = value()
			c.CACert = v
		case "--ssl-no-revoke":
			c.SSLNoRevoke = true
		case "-x", "--proxy":
			v, err = value()
			c.Proxy = v
		case "--proxy-user":
			v, err = value()
			c.ProxyUser = v
		case "--proxy-negotiate":
			c.ProxyNegotiate = true
		case "--proxy-ntlm":
			c.ProxyNTLM = true
		case "--proxy-insecure":
			c.ProxyInsecure = true
		case "--proxy-cacert":
			v, err = value()
			c.ProxyCACert = v
		case "--noproxy":
			v, err = value()
			c.NoProxy = v
		case "--connect-timeout":
			if v, err = value(); err == nil {
				c.ConnectTimeout, err = ceilSeconds(v)
			}
		case "-m", "--max-time":
			if v, err = value(); err == nil {
				c.MaxTime, err = ceilSeconds(v)
			}
		case "--max-redirs":
			if v, err = value(); err == nil {
				if c.MaxRedirs, err = strconv.Atoi(v); err != nil {
					err = fmt.Errorf("invalid redirect count %q", v)
				}
			}
		case "--compressed":
			c.Compressed = true
		case "-I", "--head":
			c.Head = true
		case "-s", "--silent":
			c.Silent = true
		case "-v", "--verbose":
			c.Verbose = true
		case "-L", "--location", "--location-trusted":
			// Redirect following is always on in gocurl.
		case "-o", "--output":
			v, err = value()
			c.Output = v
		case "-A", "--user-agent":
			v, err = value()
			c.UserAgent = v
		case "-e", "--referer":
			if v, err = value(); err == nil {
				c.Headers = append(c.Headers, "Referer: "+v)
			}
		case "-b", "--cookie":
			// curl's -b doubles as a cookie string and a cookie file;
			// gocurl's -b is a file only, so strings become a header.
			if v, err = value(); err == nil {
				if strings.Contains(v, "=") {
					c.Headers = append(c.Headers, "Cookie: "+v)
				} else {
					c.CookieFile = v
				}
			}
		case "-c", "--cookie-jar":
			v, err = value()
			c.CookieJar = v
		case "--resolve":
			if v, err = value(); err == nil {
				c.Resolve = append(c.Resolve, v)
			}
		case "--url":
			v, err = value()
			c.URL = v
		default:
			switch {
			case strings.HasPrefix(flag, "-"):
				c.Dropped = append(c.Dropped, flag)
				if !hasInline && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !looksLikeURL(tokens[i+1]) {
					i++
				}
			case c.URL == "" && looksLikeURL(flag):
				c.URL = flag
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if c.URL == "" {
		return nil, fmt.Errorf("no url found in curl command")
	}
	return c, nil
}

// Args returns the gocurl argument list, URL last.
func (c *Command) Args() []string {
	var args []string
	add := func(ss ...string) { args = append(args, ss...) }

	if c.Method != "" {
		add("-X", c.Method)
	}
	for _, h := range c.Headers {
		add("-H", h)
	}
	if c.HasData {
		add("-d", c.Data)
	}
	if c.User != "" {
		add("-u", c.User)
	}
	if c.Bearer != "" {
		add("--bearer", c.Bearer)
	}
	if c.Negotiate {
		add("--negotiate")
	}
	if c.NTLM {
		add("--ntlm")
	}
	if c.Insecure {
		add("-k")
	}
	if c.CACert != "" {
		add("--cacert", c.CACert)
	}
	if c.SSLNoRevoke {
		add("--ssl-no-revoke")
	}
	if c.Proxy != "" {
		add("-x", c.Proxy)
	}
	if c.ProxyUser != "" {
		add("--proxy-user", c.ProxyUser)
	}
	if c.ProxyNegotiate {
		add("--proxy-negotiate")
	}
	if c.ProxyNTLM {
		add("--proxy-ntlm")
	}
	if c.ProxyInsecure {
		add("--proxy-insecure")
	}
	if c.ProxyCACert != "" {
		add("--proxy-cacert", c.ProxyCACert)
	}
	if c.NoProxy != "" {
		add("--noproxy", c.NoProxy)
	}
	if c.ConnectTimeout > 0 {
		add("--connect-timeout", strconv.Itoa(c.ConnectTimeout))
	}
	if c.MaxTime > 0 {
		add("--max-time", strconv.Itoa(c.MaxTime))
	}
	if c.MaxRedirs > 0 {
		add("--max-redirs", strconv.Itoa(c.MaxRedirs))
	}
	if c.Compressed {
		add("--compressed")
	}
	for _, r := range c.Resolve {
		add("--resolve", r)
	}
	if c.UserAgent != "" {
		add("-A", c.UserAgent)
	}
	if c.CookieFile != "" {
		add("-b", c.CookieFile)
	}
	if c.CookieJar != "" {
		add("-c", c.CookieJar)
	}
	if c.Output != "" {
		add("-o", c.Output)
	}
	if c.Head {
		add("-I")
	}
	if c.Silent {
		add("-s")
	}
	if c.Verbose {
		add("-v")
	}
	add(c.URL)
	return args
}

// String renders the full gocurl command line, shell-quoted.
func (c *Command) String() string {
	parts := []string{"gocurl"}
	for _, a := range c.Args() {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// Join reassembles argv words the shell already split into a single
// command line, re-quoting words so multi-word values survive a second
// tokenize.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = shellQuote(w)
	}
	return strings.Join(quoted, " ")
}

type quoteState int

const (
	quoteNone quoteState = iota
	quoteSingle
	quoteDouble
	quoteANSI
)

// tokenize splits a command line into words the way a POSIX shell
// would, plus bash's $'...' form because browsers emit it.
func tokenize(command string) []string {
	var tokens []string
	var current strings.Builder
	runes := []rune(command)
	quote := quoteNone
	started := false

	flush := func() {
		if current.Len() > 0 || started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch quote {
		case quoteSingle:
			if r == '\'' {
				quote = quoteNone
			} else {
				current.WriteRune(r)
			}
		case quoteANSI:
			switch {
			case r == '\\' && i+1 < len(runes):
				i++
				current.WriteRune(ansiEscape(runes[i]))
			case r == '\'':
				quote = quoteNone
			default:
				current.WriteRune(r)
			}
		case quoteDouble:
			switch {
			case r == '\\' && i+1 < len(runes) && runes[i+1] == '\n':
				i++
			case r == '\\' && i+1 < len(runes):
				i++
				current.WriteRune(runes[i])
			case r == '"':
				quote = quoteNone
			default:
				current.WriteRune(r)
			}
		default:
			switch {
			case r == '\\' && i+1 < len(runes) && runes[i+1] == '\n':
				i++
			case r == '\\' && i+1 < len(runes):
				i++
				current.WriteRune(runes[i])
			case r == '\'':
				quote = quoteSingle
				started = true
			case r == '"':
				quote = quoteDouble
				started = true
			case r == '$' && i+1 < len(runes) && runes[i+1] == '\'':
				quote = quoteANSI
				started = true
				i++
			case r == ' ' || r == '\t' || r == '\n':
				flush()
			default:
				current.WriteRune(r)
			}
		}
	}
	flush()
	return tokens
}

func ansiEscape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

// expandShortFlags splits combined boolean shorts (-sSL) into separate
// tokens. Tokens whose first short takes a value (-XPOST) pass through
// for splitFlag to handle.
func expandShortFlags(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) > 2 && tok[0] == '-' && tok[1] != '-' && !strings.ContainsRune(valueShorts, rune(tok[1])) {
			allBool := true
			for _, r := range tok[1:] {
				if !strings.ContainsRune(boolShorts, r) {
					allBool = false
					break
				}
			}
			if allBool {
				for _, r := range tok[1:] {
					out = append(out, "-"+string(r))
				}
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

// splitFlag separates a flag token from an attached value: --name=value
// and -Xvalue forms. Plain tokens come back unchanged.
func splitFlag(tok string) (flag, value string, ok bool) {
	if strings.HasPrefix(tok, "--") {
		if name, v, found := strings.Cut(tok, "="); found {
			return name, v, true
		}
		return tok, "", false
	}
	if len(tok) > 2 && strings.HasPrefix(tok, "-") && strings.ContainsRune(valueShorts, rune(tok[1])) {
		return tok[:2], tok[2:], true
	}
	return tok, "", false
}

// ceilSeconds converts curl's fractional seconds to gocurl's whole
// seconds, rounding up so a timeout never tightens in translation.
func ceilSeconds(v string) (int, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return int(math.Ceil(f)), nil
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$&|;<>()*?[]#~`{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
