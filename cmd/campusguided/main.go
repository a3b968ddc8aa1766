package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/campusguide/internal/cli"
	"github.com/cloo-solutions/campusguide/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "campusguided",
		Short: "Campusguide daemon",
		Long:  "Campusguide daemon for serving the retrieval API, crawling the knowledge base and managing migrations",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.CrawlCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.RetrieveCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
