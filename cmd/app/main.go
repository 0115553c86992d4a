// File: cmd/app/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	devMode bool
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "interview",
	Short: "AI-moderated qualitative interviews",
	Long: `Runs one-to-one qualitative interviews moderated by a language model.
Transcripts, timing records and message tables are written when an
interview ends; each respondent gets one attempt.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "enable developer mode (console logs, scripted backend)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
