package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCollectionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   "Manage collections",
	}
	var output string

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection (no-op if it exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()
			created, err := b.CreateCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Collection created: %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Collection already exists: %s\n", args[0])
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a collection and all of its items",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()
			deleted, err := b.DeleteCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("collection not found: %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collection deleted: %s\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List collections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()
			names, err := b.ListCollections(cmd.Context())
			if err != nil {
				return err
			}
			return WriteCollections(cmd.OutOrStdout(), names, format)
		},
	}

	show := &cobra.Command{
		Use:     "show <name>",
		Aliases: []string{"describe"},
		Short:   "Show collection metadata",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()
			info, err := b.DescribeCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return WriteCollectionInfo(cmd.OutOrStdout(), info, format)
		},
	}

	cmd.PersistentFlags().StringVarP(&output, "output", "o", string(OutputText), "output format: text or json")
	cmd.AddCommand(create, del, list, show)
	return cmd
}
