package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facevote",
	Short: "Face-verified voting backend",
	Long: `Facevote is the backend for a face-verification e-voting system.
Voters verify their identity through a browser camera capture page; a chat
bot drives sessions through the HTTP API and every recorded vote carries a
tamper-evident hash.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
