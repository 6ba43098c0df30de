// Package main provides the beastblogger CLI: keyword discovery, draft
// generation, and blog publication for a storefront.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "beastblogger",
	Short: "SEO blog pipeline for a storefront",
	Long:  "beastblogger harvests keyword candidates, drafts SEO articles with an LLM tool loop, illustrates them, and uploads them to the storefront blog as unpublished posts.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
