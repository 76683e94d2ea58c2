package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/grantcarthew/cdpctl/internal/cdp"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Watch protocol events",
	Long:  "Enables the Page and Runtime domains and prints protocol events until the requested count arrives or the timeout expires.",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

var eventCount int

func init() {
	eventsCmd.Flags().IntVar(&eventCount, "count", 10, "Number of events to wait for")
	rootCmd.AddCommand(eventsCmd)
}

// eventPrinter writes each observed event to stdout as it arrives.
type eventPrinter struct {
	cdp.BaseListener

	seen   int
	method *color.Color
}

func (p *eventPrinter) OnEvent(ctx context.Context, c *cdp.Client, method string, params map[string]any) error {
	p.seen++
	if JSONOutput {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(map[string]any{"method": method, "params": params})
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", p.method.Sprint(method), payload)
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	client, err := dialPage(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	printer := &eventPrinter{method: color.New(color.FgGreen)}
	if !useColor() {
		printer.method.DisableColor()
	}
	client.AddListener(printer)

	for _, domain := range []string{"Page.enable", "Runtime.enable"} {
		if err := client.SendCommand(ctx, domain, nil); err != nil {
			return err
		}
	}

	err = client.HandleEventsUntil(ctx, func() (bool, error) {
		return printer.seen >= eventCount, nil
	})
	if cdp.CodeOf(err) == cdp.CodeTimeout {
		debugf("timed out after %d events", printer.seen)
		return nil
	}
	return err
}
