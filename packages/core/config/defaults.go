package config

// DefaultConfig returns a configuration with default values. Backend is
// left empty so the backend package's own default (which builds may
// override via ldflags) stays in charge.
func DefaultConfig() *Config {
	return &Config{
		Backend:        "",
		UserAgent:      "",
		ConnectTimeout: 0,
		MaxTime:        0,
		MaxRedirects:   10,
		Proxy:          "",
		Insecure:       boolPtr(false),
		Verbose:        boolPtr(false),
		NoColor:        boolPtr(false),
		Headers:        nil,
	}
}
