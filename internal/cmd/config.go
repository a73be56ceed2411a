package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/mediatag/internal/config"
	"github.com/Digital-Shane/mediatag/internal/theme"
)

func newConfigCmd(a *app) *cobra.Command {
	var pathOnly bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			path := a.configPath
			if path == "" {
				var err error
				if path, err = config.ConfigPath(); err != nil {
					return err
				}
			}
			if pathOnly {
				fmt.Fprintln(out, path)
				return nil
			}

			data, err := json.MarshalIndent(a.cfg.Masked(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Fprintln(out, a.theme.HeaderStyle().Render(a.theme.Icon("key")+" "+path))
			fmt.Fprintln(out, string(data))
			fmt.Fprintf(out, "enabled: %s\n", strings.Join(a.cfg.Enabled(), ", "))
			for _, p := range a.cfg.Providers() {
				badge := a.theme.Badge(theme.BadgeMuted, "off")
				if p.Enabled {
					badge = a.theme.Badge(theme.BadgeSuccess, "on ")
				}
				fmt.Fprintf(out, "%s %s\n", badge, p.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pathOnly, "path", false, "only print the config file path")
	return cmd
}
