package cli

import (
	"fmt"
	"os"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "buildmonitor",
	Short: "Progress and timing statistics for implementation plans",
	Long: `buildmonitor tracks the JSON implementation plans of a build and reports
completion progress per plan and section, planned against actual working hours,
and an aggregate benchmark across all plans.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.Version = Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
}
