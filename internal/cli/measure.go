package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jmball/go-m1k/m1k"
)

var (
	flagChannels []int
	flagKind     string
	flagChunking bool
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Run the configured measurement and print the samples",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := m1k.MeasurementKind(flagKind)
		if kind != m1k.MeasureDC && kind != m1k.MeasureSweep {
			return fmt.Errorf("invalid measurement kind %q, want %q or %q",
				flagKind, m1k.MeasureDC, m1k.MeasureSweep)
		}

		client, cleanup, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		data, err := client.Measure(cmd.Context(), flagChannels, kind, flagChunking)
		if err != nil {
			return err
		}

		channels := make([]int, 0, len(data))
		for ch := range data {
			channels = append(channels, ch)
		}
		sort.Ints(channels)

		for _, ch := range channels {
			for _, s := range data[ch] {
				fmt.Printf("%d\t%.6e\t%.6e\t%.6f\t%d\n",
					ch, s.Voltage, s.Current, s.Timestamp, s.Status)
			}
		}

		return nil
	},
}

func init() {
	measureCmd.Flags().IntSliceVar(&flagChannels, "channels", nil,
		"channels to measure (default: all)")
	measureCmd.Flags().StringVar(&flagKind, "kind", string(m1k.MeasureDC),
		"measurement kind: dc or sweep")
	measureCmd.Flags().BoolVar(&flagChunking, "allow-chunking", false,
		"let the server split long acquisitions into chunks")

	rootCmd.AddCommand(measureCmd)
}
