package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show debugging endpoint status",
	Long:  "Fetches browser and protocol version information from the debugging endpoint.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	v, err := endpoint().Version(ctx)
	if err != nil {
		return err
	}

	if JSONOutput {
		return printJSON(v)
	}
	fmt.Printf("Browser:   %s\n", v.Browser)
	fmt.Printf("Protocol:  %s\n", v.ProtocolVersion)
	fmt.Printf("WebSocket: %s\n", v.WebSocketURL)
	return nil
}
