package cmd

import (
	"github.com/spf13/cobra"
)

func newMovieCmd(a *app) *cobra.Command {
	var (
		providerID string
		resolve    bool
	)
	cmd := &cobra.Command{
		Use:   "movie <query>",
		Short: "Search movies by title, with an optional trailing year",
		Example: `  mediatag movie "The Matrix 1999"
  mediatag movie --provider OMDb --resolve "Oldboy 2003"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := selectProviders(a.registry.MovieIdentificationServices(), providerID, "movie")
			if err != nil {
				return err
			}

			var rows [][]string
			for _, svc := range services {
				movies := svc.SearchMovie(cmd.Context(), args[0], a.locale)
				a.logger.Debug("movie search", "provider", svc.Identifier(), "results", len(movies))
				for _, m := range movies {
					if resolve {
						if full := svc.GetMovieDescriptor(cmd.Context(), m, a.locale); full != nil {
							m = *full
						}
					}
					rows = append(rows, []string{svc.Identifier(), m.Name, num(m.Year), imdb(m.ImdbID), num(m.TmdbID), str(m.Language)})
				}
			}
			a.printTable(cmd.OutOrStdout(), []string{"PROVIDER", "NAME", "YEAR", "IMDB", "TMDB", "LANGUAGE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "only query this provider")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "resolve every match into the provider's canonical record")
	return cmd
}
