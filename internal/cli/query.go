package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <command>...",
	Short: "Send a raw command and print the reply",
	Long: `Send a raw protocol command to the server and print the reply line.
The arguments are joined with spaces, so quoting the whole command is
optional:

  m1kctl query nplc
  m1kctl query "dc {0:0.5} v"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		resp, err := client.Query(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if resp != "" {
			fmt.Println(resp)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
