// ng is the command line client of the broker HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// jsonFormat switches every subcommand to raw JSON output.
var jsonFormat *bool

func main() {
	rootCmd := &cobra.Command{
		Use:     "ng",
		Short:   "ng drives network devices through the netgate broker.",
		Version: version,
	}

	client := newClient()
	rootCmd.PersistentFlags().StringVar(&client.baseURL, "api", defaultAPI(), "broker API base URL")
	jsonFormat = rootCmd.PersistentFlags().Bool("json", false, "display result in JSON")

	rootCmd.AddCommand(runCommand(client))
	rootCmd.AddCommand(deviceCommand(client))
	rootCmd.AddCommand(credentialCommand(client))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAPI() string {
	if url := os.Getenv("NETGATE_API"); url != "" {
		return url
	}
	return "http://127.0.0.1:8870"
}
