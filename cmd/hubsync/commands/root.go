package commands

import (
	"github.com/spf13/cobra"
)

var (
	// gatewayAddr is the base URL of the hubsyncd gateway.
	gatewayAddr string

	// userID is the portal identity operations run as.
	userID string

	// outputFormat controls output format (text, json).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "hubsync",
	Short: "Ivoire Hub sync client",
	Long: `hubsync talks to a running hubsyncd gateway: it lists and mutates
notifications, follows the realtime change feed, and queries the news
aggregation function.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&gatewayAddr, "addr", "http://localhost:8090",
		"Base URL of the hubsyncd gateway",
	)
	rootCmd.PersistentFlags().StringVarP(
		&userID, "user", "u", "",
		"Portal identity to operate as",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(newsCmd)
}
