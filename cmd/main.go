package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinelnexus/guard/internal/config"
)

const version = "0.1.0"

var (
	configFile string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:     "guard",
	Short:   "SentinelNexus Guard — AI security scanning client",
	Long:    `guard is the command-line client for the SentinelNexus Guard scanning service: real-time streaming scans of code, LLM prompts, PII and web targets, with a local offline heuristic fallback and a built-in demo server.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file (environment is the default source)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
