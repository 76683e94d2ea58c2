package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate a JavaScript expression in the page",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	client, err := dialPage(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.SendCommandAndGetResult(ctx, "Runtime.evaluate", map[string]any{
		"expression":    args[0],
		"returnByValue": true,
	})
	if err != nil {
		return err
	}

	if details, ok := result["exceptionDetails"].(map[string]any); ok {
		if text, ok := details["text"].(string); ok {
			return fmt.Errorf("evaluation failed: %s", text)
		}
		return fmt.Errorf("evaluation failed")
	}

	remote, _ := result["result"].(map[string]any)
	if JSONOutput {
		return printJSON(remote)
	}
	if remote == nil {
		fmt.Println("undefined")
		return nil
	}
	if value, ok := remote["value"]; ok {
		fmt.Printf("%v\n", value)
		return nil
	}
	if typ, ok := remote["type"].(string); ok {
		fmt.Println(typ)
	}
	return nil
}
