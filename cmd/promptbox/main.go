// Command promptbox runs the fork control server and offers one-shot CLI
// access to the same agent catalog and terminal launcher.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Strob0t/promptbox/internal/config"
	"github.com/Strob0t/promptbox/internal/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "promptbox",
		Short: "Spawn and track AI coding agents in new terminal windows",
		Long: `promptbox serves a REST + WebSocket API that opens agent CLIs
(Claude Code, Codex, Gemini, raw commands) in new terminal windows and
tracks each one as a fork. Without a subcommand it runs the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runServe,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newForkCmd(), newAgentsCmd())
	return root
}

// loadConfig applies the persistent flags and installs the default logger
// writing to logOut. The returned closer flushes buffered log records.
func loadConfig(cmd *cobra.Command, logOut io.Writer) (*config.Config, string, logger.Closer, error) {
	cfg, path, err := config.LoadWithCLI(config.FlagsFrom(cmd.Root().PersistentFlags()))
	if err != nil {
		return nil, "", nil, fmt.Errorf("config: %w", err)
	}
	log, closer := logger.NewWithWriter(cfg.Logging, logOut)
	slog.SetDefault(log)
	return cfg, path, closer, nil
}
