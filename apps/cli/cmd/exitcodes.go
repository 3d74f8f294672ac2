package cmd

// Exit codes for the gocurl CLI
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitRequestError indicates the request itself failed
	ExitRequestError = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
