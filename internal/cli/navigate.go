package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <url>",
	Short: "Navigate the page to a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runNavigate,
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}

// normalizeURL adds a protocol to the URL if missing: http:// for
// local addresses, https:// otherwise.
func normalizeURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "localhost") ||
		strings.HasPrefix(lower, "127.0.0.1") ||
		strings.HasPrefix(lower, "0.0.0.0") {
		return "http://" + url
	}
	return "https://" + url
}

func runNavigate(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	client, err := dialPage(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	url := normalizeURL(args[0])
	result, err := client.SendCommandAndGetResult(ctx, "Page.navigate", map[string]any{
		"url": url,
	})
	if err != nil {
		return err
	}
	if errText, ok := result["errorText"].(string); ok && errText != "" {
		return fmt.Errorf("navigation failed: %s", errText)
	}

	if JSONOutput {
		return printJSON(result)
	}
	fmt.Printf("Navigated to %s\n", url)
	return nil
}
