package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cadenza/internal/audit"
	"cadenza/internal/library"
	"cadenza/internal/publisher"
)

func newPublisherCommand(ctx *commandContext) *cobra.Command {
	publisherCmd := &cobra.Command{
		Use:     "publisher",
		Aliases: []string{"label"},
		Short:   "Manage the publisher hierarchy",
	}

	publisherCmd.AddCommand(newPublisherAddCommand(ctx))
	publisherCmd.AddCommand(newPublisherSetParentCommand(ctx))
	publisherCmd.AddCommand(newPublisherDetachCommand(ctx))
	publisherCmd.AddCommand(newPublisherTreeCommand(ctx))
	publisherCmd.AddCommand(newPublisherDeleteCommand(ctx))

	return publisherCmd
}

func newPublisherAddCommand(ctx *commandContext) *cobra.Command {
	var parentFlag int64

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a publisher, optionally under a parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runUnit(cmd, "publisher-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := publisher.NewRepository(unit.Tx(), unit.Trail())
				p := &publisher.Publisher{Name: args[0], ParentID: parentFlag}
				if _, err := repo.Insert(runCtx, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created publisher %q with id %d\n", p.Name, p.ID)
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&parentFlag, "parent", "p", 0, "Parent publisher id")
	return cmd
}

func newPublisherSetParentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-parent <id> <parent-id>",
		Short: "Move a publisher under a new parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "publisher")
			if err != nil {
				return err
			}
			parentID, err := parseID(args[1], "parent publisher")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "publisher-set-parent", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := publisher.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.SetParent(runCtx, id, parentID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Publisher %d now belongs to %d\n", id, parentID)
				return nil
			})
		},
	}
}

func newPublisherDetachCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <id>",
		Short: "Clear a publisher's parent link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "publisher")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "publisher-detach", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := publisher.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.SetParent(runCtx, id, 0); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Publisher %d is now a root\n", id)
				return nil
			})
		},
	}
}

func newPublisherTreeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the publisher hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				reader := publisher.NewReader(store)
				if ctx.jsonOutput() {
					all, err := reader.List(cmd.Context())
					if err != nil {
						return err
					}
					return writeJSON(cmd, all)
				}

				roots, err := reader.Roots(cmd.Context())
				if err != nil {
					return err
				}
				if len(roots) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No publishers")
					return nil
				}
				for _, root := range roots {
					if err := printPublisherTree(cmd, reader, root, 0); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func printPublisherTree(cmd *cobra.Command, reader *publisher.Repository, node *publisher.Publisher, depth int) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s[%d] %s\n", strings.Repeat("  ", depth), node.ID, node.Name)
	children, err := reader.Children(cmd.Context(), node.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := printPublisherTree(cmd, reader, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func newPublisherDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a publisher, re-parenting its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "publisher")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "publisher-delete", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := publisher.NewRepository(unit.Tx(), unit.Trail())
				ok, err := repo.Delete(runCtx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("publisher %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted publisher %d\n", id)
				return nil
			})
		},
	}
}
