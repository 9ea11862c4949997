package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Strob0t/promptbox/internal/adapter/cookbook"
	"github.com/Strob0t/promptbox/internal/config"
	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/port/launcher"
	"github.com/Strob0t/promptbox/internal/service"
)

func newForkCmd() *cobra.Command {
	var (
		tier   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "fork <agent> <prompt...>",
		Short: "Open an agent in a new terminal window without running the server",
		Example: `  promptbox fork claude "Review the auth module"
  promptbox fork codex --tier heavy refactor the storage layer
  promptbox fork raw "htop"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closeLog, err := loadConfig(cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog.Close()

			forks, err := newStandaloneForkService(cmd, cfg)
			if err != nil {
				return err
			}

			f, err := forks.CreateFork(cmd.Context(), fork.CreateRequest{
				Agent:     args[0],
				ModelTier: agent.Tier(tier),
				Prompt:    strings.Join(args[1:], " "),
			})
			if f.ID != "" {
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(f); encErr != nil {
						return encErr
					}
				} else {
					for _, line := range f.Output {
						fmt.Fprintln(cmd.OutOrStdout(), line)
					}
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&tier, "tier", "t", string(agent.TierDefault), "model tier (fast, default, heavy)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the fork record as JSON")
	return cmd
}

// newStandaloneForkService builds a fork manager with no subscribers, for
// one-shot CLI use.
func newStandaloneForkService(cmd *cobra.Command, cfg *config.Config) (*service.ForkService, error) {
	catalogSvc := service.NewCatalogService(cookbook.New(cfg.Catalog.Dir))
	if _, err := catalogSvc.Reload(cmd.Context()); err != nil {
		return nil, err
	}

	term, killer, err := launcher.New(runtime.GOOS, launcher.Options{PreferredTerminal: cfg.Forks.LinuxTerminal})
	if err != nil {
		return nil, fmt.Errorf("launcher: %w", err)
	}

	return service.NewForkService(catalogSvc, term, killer, service.NewFanoutService(1), service.ForkConfig{
		WorkDir:       cfg.Forks.WorkDir,
		LaunchTimeout: cfg.Forks.LaunchTimeout,
		KillTimeout:   cfg.Forks.KillTimeout,
	}), nil
}
