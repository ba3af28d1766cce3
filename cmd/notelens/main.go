// NoteLens verifies meeting notes against photographed evidence.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notelens",
	Short: "NoteLens analyzes meeting notes against photographed evidence.",
	Long: `NoteLens accepts a meeting note plus one or more images, uploads the images
to Google Drive, reconciles the note against each image with a multimodal
model, and appends the structured result to the submitting user's spreadsheet.`,
	RunE:          runServer, // Default to server mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serverCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
