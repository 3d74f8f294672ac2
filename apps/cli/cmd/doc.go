// Package cmd implements the gocurl CLI commands using Cobra.
//
// The root command performs exactly one HTTP request per invocation and
// renders the response according to the output flags (-s, -I, -o,
// --jsonpath, --timing). Subcommands:
//   - version: Show gocurl version, build time, and the active backend
//   - copy-as: Translate a pasted curl command into gocurl flags
//   - completion: Generate shell completion scripts
//
// Flag defaults can come from GOCURL_* environment variables and from a
// .gocurl.yml config file in the home or working directory; explicit
// flags always win.
package cmd
