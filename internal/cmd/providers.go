package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/mediatag/internal/provider"
)

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the enabled providers by capability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows [][]string
			add := func(kind string, ds provider.Datasource) {
				rows = append(rows, []string{a.theme.Icon(kind) + " " + kind, ds.Identifier(), ds.Name()})
			}
			for _, p := range a.registry.MovieIdentificationServices() {
				add("movie", p)
			}
			for _, p := range a.registry.EpisodeListProviders() {
				add("episode", p)
			}
			for _, p := range a.registry.ArtworkProviders() {
				add("artwork", p)
			}
			for _, p := range a.registry.MusicIdentificationServices() {
				add("music", p)
			}
			for _, p := range a.registry.SubtitleProviders() {
				add("subtitles", p)
			}
			a.printTable(cmd.OutOrStdout(), []string{"CAPABILITY", "IDENTIFIER", "NAME"}, rows)
			return nil
		},
	}
}
