// Package cli implements the cdpctl command surface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time.
var Version = "dev"

var (
	// Host and Port locate the browser's debugging endpoint.
	Host string
	Port int

	// TimeoutMS bounds every protocol operation.
	TimeoutMS int

	// Debug enables verbose debug output.
	Debug bool

	// JSONOutput forces JSON output (default is text).
	JSONOutput bool

	// NoColor disables color output.
	NoColor bool
)

var rootCmd = &cobra.Command{
	Use:           "cdpctl",
	Short:         "Drive a browser over the DevTools protocol",
	Long:          "cdpctl attaches to a running browser's remote debugging endpoint and issues DevTools protocol commands against the first page target.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&Host, "host", "127.0.0.1", "Debugging endpoint host")
	rootCmd.PersistentFlags().IntVar(&Port, "port", 9222, "Debugging endpoint port")
	rootCmd.PersistentFlags().IntVar(&TimeoutMS, "timeout", 30000, "Operation timeout in milliseconds")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&JSONOutput, "json", false, "Output in JSON format (default is text)")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable color output")
	rootCmd.SetVersionTemplate(`cdpctl version {{.Version}}
Repository: https://github.com/grantcarthew/cdpctl
Report issues: https://github.com/grantcarthew/cdpctl/issues/new
`)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// cmdContext returns a context bounded by the --timeout flag.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(TimeoutMS)*time.Millisecond)
}

// debugf logs a debug message when --debug is set.
func debugf(format string, args ...any) {
	if Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// useColor reports whether colored output is appropriate.
func useColor() bool {
	return !NoColor && term.IsTerminal(int(os.Stdout.Fd()))
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
