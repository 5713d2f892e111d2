// Command bizplan runs the business plan interviewer: an HTTP and MCP server,
// a terminal chat client and the seed grant answer generator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logFormat  string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:           "bizplan",
		Short:         "Interview founders and compile business plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override: json, text or console")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd, chatCmd, generateCmd, promptsCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
