package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newArtworkCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "artwork <provider> <media-id>",
		Short: "List artwork for a movie or series",
		Long: `List artwork for a provider-scoped media id.

The category is provider specific: TheMovieDB takes backdrops or posters,
FanartTV takes movies, tv or music, and TheTVDB takes an image key type
such as fanart, poster or season.`,
		Example: `  mediatag artwork TheMovieDB 603
  mediatag artwork FanartTV 603 --category movies`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := findByID(a.registry.ArtworkProviders(), args[0])
			if !ok {
				return fmt.Errorf("%q is not a configured artwork provider", args[0])
			}
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid media id %q", args[1])
			}

			var rows [][]string
			for _, art := range p.GetArtwork(cmd.Context(), id, category, a.locale) {
				rows = append(rows, []string{art.Category, str(art.Language), rating(art.Rating), art.URL})
			}
			a.printTable(cmd.OutOrStdout(), []string{"CATEGORY", "LANGUAGE", "RATING", "URL"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "artwork category")
	return cmd
}
