package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/campusguide/internal/cli"
	"github.com/cloo-solutions/campusguide/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "campusguide",
		Short: "Campusguide CLI - ask about RMIT courses and policies",
		Long: `Campusguide CLI talks to a campusguided server.

Environment variables:
  CAMPUSGUIDE_API_KEY   API key, when the server requires one
  CAMPUSGUIDE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.RetrieveCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.KnowledgeCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
