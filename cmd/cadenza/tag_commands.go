package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/audit"
	"cadenza/internal/library"
	"cadenza/internal/tag"
)

func newTagCommand(ctx *commandContext) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage categorized tags",
	}

	tagCmd.AddCommand(newTagAddCommand(ctx))
	tagCmd.AddCommand(newTagListCommand(ctx))
	tagCmd.AddCommand(newTagRenameCommand(ctx))
	tagCmd.AddCommand(newTagMergeCommand(ctx))

	return tagCmd
}

func newTagAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <category:name>",
		Short: "Find or create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := tag.ParseRef(args[0])
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "tag-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := tag.NewRepository(unit.Tx(), unit.Trail())
				t, created, err := repo.GetOrCreate(runCtx, ref)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Created tag %s with id %d\n", t.Ref(), t.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Tag %s already exists with id %d\n", t.Ref(), t.ID)
				}
				return nil
			})
		},
	}
}

func newTagListCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tags, optionally for one category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				tags, err := tag.NewReader(store).List(cmd.Context(), categoryFlag)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tags)
				}
				if len(tags) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tags")
					return nil
				}
				rows := make([][]string, 0, len(tags))
				for _, t := range tags {
					rows = append(rows, []string{formatID(t.ID), t.Category, t.Name})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "CATEGORY", "NAME"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&categoryFlag, "category", "C", "", "Restrict to one category")
	return cmd
}

func newTagRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a tag within its category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "tag")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "tag-rename", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := tag.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.Rename(runCtx, id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed tag %d to %q\n", id, args[1])
				return nil
			})
		},
	}
}

func newTagMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Merge one tag into another, moving song links",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := parseID(args[0], "source tag")
			if err != nil {
				return err
			}
			targetID, err := parseID(args[1], "target tag")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "tag-merge", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := tag.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.Merge(runCtx, sourceID, targetID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merged tag %d into %d\n", sourceID, targetID)
				return nil
			})
		},
	}
}
