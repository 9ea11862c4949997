package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Strob0t/promptbox/internal/adapter/cookbook"
	"github.com/Strob0t/promptbox/internal/domain/agent"
	"github.com/Strob0t/promptbox/internal/service"
)

func newAgentsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the agents in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, closeLog, err := loadConfig(cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog.Close()

			catalogSvc := service.NewCatalogService(cookbook.New(cfg.Catalog.Dir))
			if _, err := catalogSvc.Reload(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON || !isTTY(out) {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalogSvc.Agents())
			}
			return printAgents(out, catalogSvc.Agents())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON even on a terminal")
	return cmd
}

func printAgents(out io.Writer, agents map[string]agent.Definition) error {
	if len(agents) == 0 {
		_, _ = fmt.Fprintln(out, "No agents configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tENABLED\tFAST\tDEFAULT\tHEAVY")
	for _, id := range slices.Sorted(maps.Keys(agents)) {
		d := agents[id]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n",
			d.ID, d.Name, d.Enabled,
			d.Model(agent.TierFast), d.Model(agent.TierDefault), d.Model(agent.TierHeavy))
	}
	return w.Flush()
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
