package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "treeline",
		Short: "Streaming render framework for Go",
		Long: `Treeline renders nested route trees to streaming HTML documents
with incremental tree payloads for client navigation.

Applications link Treeline as a library and expose their routes
through treeline.App. This CLI manages projects around that:

  • init     scaffold a treeline.json config
  • serve    preview a statically exported site
  • version  print build information

Static export runs inside the application itself via App.Export,
since the CLI cannot link your route modules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
