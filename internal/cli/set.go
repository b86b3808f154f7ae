package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <parameter> <value>",
	Short: "Set an acquisition parameter",
	Long: `Set an acquisition parameter on the server.

Parameters:
  nplc   integration time in power line cycles
  sd     settling delay in seconds
  plf    power line frequency in Hz`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}

		client, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		switch args[0] {
		case "nplc":
			return client.SetNPLC(ctx, value)
		case "sd":
			return client.SetSettlingDelay(ctx, value)
		case "plf":
			return client.SetPLF(ctx, value)
		default:
			return fmt.Errorf("unknown parameter %q, want nplc, sd or plf", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
