package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var idnCmd = &cobra.Command{
	Use:   "idn",
	Short: "Print the instrument identity and topology",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()

		idn, err := client.IDN(ctx)
		if err != nil {
			return err
		}

		boards, err := client.NumBoards(ctx)
		if err != nil {
			return err
		}
		channels, err := client.NumChannels(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n%d board(s), %d channel(s)\n", idn, boards, channels)

		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the instrument to its power-on state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return client.Reset(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(idnCmd)
	rootCmd.AddCommand(resetCmd)
}
