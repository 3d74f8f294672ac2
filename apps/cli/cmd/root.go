package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/gocurl/packages/backend"
	"github.com/abdul-hamid-achik/gocurl/packages/core/config"
	"github.com/abdul-hamid-achik/gocurl/packages/core/env"
	"github.com/abdul-hamid-achik/gocurl/packages/output"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	methodFlag         string
	headerFlags        []string
	dataFlag           string
	outputFlag         string
	headFlag           bool
	silentFlag         bool
	userAgentFlag      string
	cookieFlag         string
	cookieJarFlag      string
	negotiateFlag      bool
	ntlmFlag           bool
	insecureFlag       bool
	cacertFlag         string
	userFlag           string
	bearerFlag         string
	proxyFlag          string
	proxyUserFlag      string
	proxyNegotiateFlag bool
	proxyNTLMFlag      bool
	proxyInsecureFlag  bool
	proxyCACertFlag    string
	noProxyFlag        string
	connectTimeoutFlag int
	maxTimeFlag        int
	maxRedirsFlag      int
	locationFlag       bool
	sslNoRevokeFlag    bool
	compressedFlag     bool
	timingFlag         bool
	resolveFlags       []string
	verboseFlag        bool
	backendFlag        string
	envFileFlag        string
	jsonPathFlag       string
	configFlag         string
	noColorFlag        bool
)

var rootCmd = &cobra.Command{
	Use:   "gocurl [flags] URL",
	Short: "Transfer a URL through pluggable HTTP backends",
	Long: `gocurl performs exactly one HTTP request per invocation, curl style:
corporate proxies, Kerberos/SPNEGO and NTLM authentication, CONNECT
tunnels, cookies, timing and DNS overrides included.

The same invocation runs unchanged on either backend: the full-featured
native transport or the deliberately smaller restclient one.

Examples:
  gocurl https://example.com
  gocurl -d '{"name":"ada"}' -H "Content-Type: application/json" https://api.example.com/users
  gocurl --negotiate -u admin: --proxy http://proxy.corp:8080 https://intranet.corp/report
  gocurl --timing --compressed -o page.html https://example.com`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRequest,
}

// Execute runs the CLI and owns the process exit code: 0 on success, 1
// for a failed request, 3 for configuration errors, 64 for usage
// errors.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var re *request.Error
	if errors.As(err, &re) {
		output.NewConsoleFormatter(output.WithNoColor(noColorFlag)).FormatError(re)
		if re.Kind == request.KindConfig {
			os.Exit(ExitConfigError)
		}
		os.Exit(ExitRequestError)
	}

	// Anything unclassified came from flag parsing or argument
	// validation.
	fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
	fmt.Fprint(os.Stderr, rootCmd.UsageString())
	os.Exit(ExitUsageError)
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", getEnvString("GOCURL_BACKEND", ""), "Backend to execute the request with: native, restclient (env: GOCURL_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("GOCURL_CONFIG", ""), "Path to config file (env: GOCURL_CONFIG)")

	flags := rootCmd.Flags()
	flags.StringVarP(&methodFlag, "request", "X", "", "HTTP method (GET, POST, PUT, DELETE, HEAD, PATCH, OPTIONS, or any custom verb)")
	flags.StringArrayVarP(&headerFlags, "header", "H", nil, `Add header (repeatable), e.g. -H "Content-Type: application/json"`)
	flags.StringVarP(&dataFlag, "data", "d", "", "Request body data (auto-sets POST if no -X given)")
	flags.StringVarP(&outputFlag, "output", "o", "", "Write response body to file")
	flags.BoolVarP(&headFlag, "head", "I", false, "Send HEAD request (show headers only)")
	flags.BoolVarP(&silentFlag, "silent", "s", false, "Silent mode (only output body)")
	flags.StringVarP(&userAgentFlag, "user-agent", "A", "", "Set User-Agent header")
	flags.StringVarP(&cookieFlag, "cookie", "b", "", "Read cookies from file")
	flags.StringVarP(&cookieJarFlag, "cookie-jar", "c", "", "Write cookies to file after request")
	flags.BoolVar(&negotiateFlag, "negotiate", false, "Enable Kerberos/SPNEGO authentication")
	flags.BoolVar(&ntlmFlag, "ntlm", false, "Enable NTLM authentication")
	flags.BoolVarP(&insecureFlag, "insecure", "k", false, "Ignore SSL certificate verification")
	flags.StringVar(&cacertFlag, "cacert", "", "Path to CA certificate bundle")
	flags.StringVarP(&userFlag, "user", "u", "", "Credentials (user:password, split on the first colon)")
	flags.StringVar(&bearerFlag, "bearer", "", "Bearer token authentication")
	flags.StringVarP(&proxyFlag, "proxy", "x", "", "Proxy URL")
	flags.StringVar(&proxyUserFlag, "proxy-user", "", "Proxy credentials (user:password)")
	flags.BoolVar(&proxyNegotiateFlag, "proxy-negotiate", false, "Enable Kerberos/SPNEGO proxy authentication")
	flags.BoolVar(&proxyNTLMFlag, "proxy-ntlm", false, "Enable NTLM proxy authentication")
	flags.BoolVar(&proxyInsecureFlag, "proxy-insecure", false, "Skip SSL verification for proxy connection")
	flags.StringVar(&proxyCACertFlag, "proxy-cacert", "", "CA certificate for proxy SSL verification")
	flags.StringVar(&noProxyFlag, "noproxy", "", "Comma-separated list of hosts to bypass proxy")
	flags.IntVar(&connectTimeoutFlag, "connect-timeout", getEnvInt("GOCURL_CONNECT_TIMEOUT", 0), "Connection timeout in seconds (env: GOCURL_CONNECT_TIMEOUT)")
	flags.IntVar(&maxTimeFlag, "max-time", getEnvInt("GOCURL_MAX_TIME", 0), "Maximum total time in seconds (env: GOCURL_MAX_TIME)")
	flags.IntVar(&maxRedirsFlag, "max-redirs", getEnvInt("GOCURL_MAX_REDIRS", 0), "Maximum number of redirects (env: GOCURL_MAX_REDIRS)")
	flags.BoolVarP(&locationFlag, "location", "L", false, "Follow redirects (always enabled)")
	flags.BoolVar(&sslNoRevokeFlag, "ssl-no-revoke", false, "Disable certificate revocation checks")
	flags.BoolVar(&compressedFlag, "compressed", false, "Request compressed response")
	flags.BoolVar(&timingFlag, "timing", false, "Show timing information")
	flags.StringArrayVar(&resolveFlags, "resolve", nil, "Resolve host:port to address (repeatable)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	flags.StringVar(&envFileFlag, "env-file", getEnvString("GOCURL_ENV_FILE", ""), "Load environment variables from file before resolution (env: GOCURL_ENV_FILE)")
	flags.StringVar(&jsonPathFlag, "jsonpath", "", "Print only the value at this gjson path of a JSON body")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("GOCURL_NO_COLOR", false), "Disable colored output (env: GOCURL_NO_COLOR)")
}

func runRequest(cmd *cobra.Command, args []string) error {
	// Environment files load before anything reads the environment.
	// The explicit --env-file wins over a project .env because neither
	// loader overrides variables that are already set.
	if envFileFlag != "" {
		if err := godotenv.Load(envFileFlag); err != nil {
			return request.NewConfigError("cannot load env file %s: %v", envFileFlag, err)
		}
	}
	if _, err := os.Stat(".env"); err == nil {
		if _, err := env.ExportFile(".env"); err != nil {
			return request.NewConfigError("cannot load .env: %v", err)
		}
	}

	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return request.NewConfigError("cannot load config: %v", err)
	}

	d, err := buildDescriptor(cmd, args[0], fileConfig)
	if err != nil {
		return err
	}

	be, err := backend.Select(firstNonEmpty(backendFlag, fileConfig.Backend))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := be.Execute(ctx, d)
	if err != nil {
		return err
	}

	opts := []output.ConsoleOption{
		output.WithWriter(cmd.OutOrStdout()),
		output.WithErrWriter(cmd.ErrOrStderr()),
		output.WithNoColor(noColorFlag || fileConfig.GetNoColor()),
	}
	if jsonPathFlag != "" {
		opts = append(opts, output.WithJSONPath(jsonPathFlag))
	}
	if err := output.NewConsoleFormatter(opts...).FormatResponse(d, resp); err != nil {
		// The transfer itself succeeded; only post-processing failed.
		return request.NewIOError(err)
	}
	return nil
}

// buildDescriptor maps the parsed flags and the config file onto a
// request descriptor. Flags beat config values, config values beat
// built-ins.
func buildDescriptor(cmd *cobra.Command, url string, fileConfig *config.Config) (*request.Descriptor, error) {
	b := request.New(url)

	if methodFlag != "" {
		b.Method(request.ParseMethod(methodFlag))
	}

	b.Headers(configHeaderLines(fileConfig.Headers, headerFlags)...)
	b.Headers(headerFlags...)

	// -d "" is still a body and still defaults the method to POST.
	if cmd.Flags().Changed("data") {
		b.Data([]byte(dataFlag))
	}

	user, pass := splitCredentials(userFlag)
	b.Username(user)
	b.Password(pass)
	b.Bearer(bearerFlag)
	b.Negotiate(negotiateFlag)
	b.NTLM(ntlmFlag)

	b.Insecure(insecureFlag || fileConfig.GetInsecure())
	b.CACert(cacertFlag)
	b.SSLNoRevoke(sslNoRevokeFlag)

	b.Proxy(firstNonEmpty(proxyFlag, fileConfig.Proxy))
	proxyUser, proxyPass := splitCredentials(proxyUserFlag)
	b.ProxyUser(proxyUser)
	b.ProxyPassword(proxyPass)
	b.ProxyNegotiate(proxyNegotiateFlag)
	b.ProxyNTLM(proxyNTLMFlag)
	b.ProxyInsecure(proxyInsecureFlag)
	b.ProxyCACert(proxyCACertFlag)
	b.NoProxy(noProxyFlag)

	if secs := pickInt(connectTimeoutFlag, fileConfig.ConnectTimeout); secs > 0 {
		b.ConnectTimeout(time.Duration(secs) * time.Second)
	}
	if secs := pickInt(maxTimeFlag, fileConfig.MaxTime); secs > 0 {
		b.MaxTime(time.Duration(secs) * time.Second)
	}
	b.MaxRedirects(pickInt(maxRedirsFlag, fileConfig.MaxRedirects))

	b.ShowTiming(timingFlag)
	b.Compressed(compressedFlag)
	b.UserAgent(firstNonEmpty(userAgentFlag, fileConfig.UserAgent))
	for _, entry := range resolveFlags {
		b.Resolve(entry)
	}
	b.Output(outputFlag)
	b.Silent(silentFlag)
	b.HeadOnly(headFlag)
	b.Verbose(verboseFlag || fileConfig.GetVerbose())
	b.Cookie(cookieFlag)
	b.CookieJar(cookieJarFlag)

	return b.Build()
}

// splitCredentials splits "user:pass" on the first colon, so the
// password may itself contain colons. Without a colon the whole input
// is the username.
func splitCredentials(input string) (user, pass string) {
	user, pass, _ = strings.Cut(input, ":")
	return user, pass
}

// configHeaderLines renders the config file's default headers as raw
// lines, sorted for a stable wire order, skipping any name an explicit
// -H flag already provides.
func configHeaderLines(defaults map[string]string, explicit []string) []string {
	if len(defaults) == 0 {
		return nil
	}

	taken := make(map[string]bool, len(explicit))
	for _, line := range explicit {
		if name, _, ok := request.CutHeaderLine(line); ok {
			taken[name] = true
		}
	}

	var lines []string
	for name, value := range defaults {
		canon, _, ok := request.CutHeaderLine(name + ": " + value)
		if !ok || canon == "" || taken[canon] {
			continue
		}
		lines = append(lines, name+": "+value)
	}
	sort.Strings(lines)
	return lines
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// pickInt prefers the flag value, then the config value.
func pickInt(flagVal, configVal int) int {
	if flagVal > 0 {
		return flagVal
	}
	return configVal
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
