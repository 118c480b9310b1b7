package cli

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/spf13/cobra"
)

func newIndexCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index <collection> <id> <text...>",
		Short: "Index one item (skipped if the id is already indexed)",
		Long: `Index one item into an existing collection. Text is all remaining arguments
joined by spaces. An id that is already present is left unchanged.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := models.Item{ID: args[1], Text: strings.Join(args[2:], " ")}
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()
			indexed, err := b.Index(cmd.Context(), args[0], item)
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			if indexed {
				fmt.Fprintf(cmd.OutOrStdout(), "Item indexed: %s\n", item.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Item already indexed, skipped: %s\n", item.ID)
			}
			return nil
		},
	}
}
