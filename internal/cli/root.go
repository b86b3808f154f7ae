// Package cli implements the m1kctl command line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig      string
	flagHost        string
	flagPort        int
	flagMetricsAddr string
	flagVerbose     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "m1kctl",
	Short: "Control an m1k SMU server over TCP",
	Long: `m1kctl drives an m1k source-measure-unit server over its
line-delimited TCP protocol.

Get started:
  m1kctl idn           Print the instrument identity
  m1kctl query <cmd>   Send a raw command and print the reply
  m1kctl measure       Run the configured measurement and print the data`,
	Version: fmt.Sprintf("%s (built %s)", version, buildTime),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	pf.StringVar(&flagHost, "host", "", "server host (overrides config)")
	pf.IntVar(&flagPort, "port", 0, "server port (overrides config)")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "expose prometheus metrics on this address")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version info
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}
