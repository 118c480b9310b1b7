package cli

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/spf13/cobra"
)

func newSearchCommand(a *app) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "search <collection> <query...>",
		Short: "Search a collection",
		Long: `Search a collection. Query is all remaining arguments joined by spaces;
multi-word queries work with or without quotes.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			query := &models.SearchQuery{
				Collection: args[0],
				Query:      buildSearchQuery(args[1:]),
				Limit:      limit,
			}
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()
			resp, err := b.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return WriteSearchResults(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", string(OutputText), "output format: text or json")
	return cmd
}

// buildSearchQuery joins positional args with single spaces.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
