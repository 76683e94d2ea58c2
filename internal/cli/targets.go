package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List debuggable targets",
	Long:  "Lists the targets exposed by the browser's debugging endpoint.",
	Args:  cobra.NoArgs,
	RunE:  runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	targets, err := endpoint().Targets(ctx)
	if err != nil {
		return err
	}

	if JSONOutput {
		return printJSON(targets)
	}

	kind := color.New(color.FgCyan)
	if !useColor() {
		kind.DisableColor()
	}
	for _, t := range targets {
		fmt.Printf("%s  %s  %s\n", kind.Sprintf("%-16s", t.Type), t.ID, t.URL)
	}
	return nil
}
