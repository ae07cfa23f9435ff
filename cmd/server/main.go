package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nogal",
	Short: "Pecan orchard yield estimation and farm dashboard",
	Long: `nogal estimates pecan production per plot from a yield curve, compares
it with harvested figures and serves the farm dashboard API.

Available subcommands:
  serve    - Run the HTTP API and the weekly report scheduler
  snapshot - Archive the dashboard of a campaign
  curve    - Show or import the yield curve of a project`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path of a .env file (default: ./.env when present)")

	curveCmd.AddCommand(curveShowCmd)
	curveCmd.AddCommand(curveImportCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(curveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
