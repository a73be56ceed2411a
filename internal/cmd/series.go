package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

func newSeriesCmd(a *app) *cobra.Command {
	var providerID string
	cmd := &cobra.Command{
		Use:   "series <query>",
		Short: "Search series by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := selectProviders(a.registry.EpisodeListProviders(), providerID, "episode")
			if err != nil {
				return err
			}

			var rows [][]string
			for _, p := range providers {
				for _, r := range p.Search(cmd.Context(), args[0], a.locale) {
					rows = append(rows, []string{
						p.Identifier(),
						strconv.Itoa(r.ID),
						str(r.Name),
						strings.Join(r.AliasNames, ", "),
						p.GetEpisodeListLink(r),
					})
				}
			}
			a.printTable(cmd.OutOrStdout(), []string{"PROVIDER", "ID", "NAME", "ALIASES", "LINK"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "only query this provider")
	return cmd
}

func newEpisodesCmd(a *app) *cobra.Command {
	var (
		order  string
		season int
	)
	cmd := &cobra.Command{
		Use:   "episodes <provider> <series-id>",
		Short: "List the episodes of a series",
		Example: `  mediatag episodes TVmaze 169
  mediatag episodes TheTVDB 81189 --order DVD --season 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := findByID(a.registry.EpisodeListProviders(), args[0])
			if !ok {
				return fmt.Errorf("%q is not a configured episode provider", args[0])
			}
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid series id %q", args[1])
			}
			series := provider.SeriesByID(id)

			episodes, err := p.GetEpisodeList(cmd.Context(), series, order, a.locale)
			if err != nil {
				return fmt.Errorf("failed to list episodes: %w", err)
			}

			var rows [][]string
			for _, e := range episodes {
				if season > 0 && (e.Season == nil || *e.Season != season) {
					continue
				}
				special := ""
				if e.IsSpecial() {
					special = "S" + num(e.SpecialNumber)
				}
				rows = append(rows, []string{num(e.Season), num(e.Episode), num(e.Absolute), special, str(e.Title), str(e.Airdate)})
			}

			out := cmd.OutOrStdout()
			if len(episodes) > 0 && episodes[0].SeriesName != "" {
				fmt.Fprintln(out, a.theme.HeaderStyle().Render(episodes[0].SeriesName))
			}
			a.printTable(out, []string{"SEASON", "EPISODE", "ABSOLUTE", "SPECIAL", "TITLE", "AIRDATE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&order, "order", provider.OrderAirdate,
		fmt.Sprintf("episode order: %s, %s, %s or %s", provider.OrderAirdate, provider.OrderDVD, provider.OrderAbsolute, provider.OrderAbsoluteAirdate))
	cmd.Flags().IntVar(&season, "season", 0, "only list this season")
	return cmd
}
