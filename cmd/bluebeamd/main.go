package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bluebeam/bluebeam/config"
)

var cfgFile string
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bluebeamd",
	Short: "bluebeam device daemon and pairing CLI",
	Long: `bluebeamd runs the bluebeam event core against a real network
stand-in for a Bluetooth radio, and drives the device-pairing
handshake from the command line.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := config.DefaultLoaderOptions()
		if cfgFile != "" {
			opts.Path = cfgFile
		}
		cfg = config.Load(opts)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to bluebeam.yaml (default: ./bluebeam.yaml)")

	// Subcommands are registered in their own files:
	// - serve.go: serveCmd
	// - pair.go: pairCmd
	// - keygen.go: keygenCmd
}
