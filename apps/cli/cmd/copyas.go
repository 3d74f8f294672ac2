package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/gocurl/packages/curlcmd"
	"github.com/abdul-hamid-achik/gocurl/packages/request"
)

var copyAsCmd = &cobra.Command{
	Use:   "copy-as [curl command]",
	Short: "Translate a curl command into the equivalent gocurl invocation",
	Long: `Translate a curl command line, such as a browser's "Copy as cURL"
output, into the equivalent gocurl invocation.

The command can be passed as a single quoted string or pasted as-is;
flags curl supports but gocurl does not are dropped and reported on
stderr.

Examples:
  gocurl copy-as "curl -X POST -H 'Content-Type: application/json' -d '{}' https://api.example.com"
  gocurl copy-as curl -s https://example.com`,
	Args: cobra.MinimumNArgs(1),
	// Everything after copy-as belongs to the pasted command, including
	// tokens that look like gocurl flags.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "--help" || args[0] == "-h" {
			return cmd.Help()
		}

		line := args[0]
		if len(args) > 1 {
			line = curlcmd.Join(args)
		}

		c, err := curlcmd.Parse(line)
		if err != nil {
			return request.NewConfigError("cannot translate curl command: %v", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), c.String())
		if len(c.Dropped) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Dropped flags with no gocurl equivalent: %s\n", strings.Join(c.Dropped, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(copyAsCmd)
}
