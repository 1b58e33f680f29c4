package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/audit"
	"cadenza/internal/identity"
	"cadenza/internal/library"
)

func newContributorCommand(ctx *commandContext) *cobra.Command {
	contributorCmd := &cobra.Command{
		Use:     "contributor",
		Aliases: []string{"artist"},
		Short:   "Manage contributor identities, aliases, and memberships",
	}

	contributorCmd.AddCommand(newContributorAddCommand(ctx))
	contributorCmd.AddCommand(newContributorShowCommand(ctx))
	contributorCmd.AddCommand(newContributorRenameCommand(ctx))
	contributorCmd.AddCommand(newContributorMergeCommand(ctx))
	contributorCmd.AddCommand(newContributorDeleteCommand(ctx))
	contributorCmd.AddCommand(newAliasCommand(ctx))
	contributorCmd.AddCommand(newMemberCommand(ctx))

	return contributorCmd
}

func newContributorAddCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a contributor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := identity.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "contributor-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				c := &identity.Contributor{Name: args[0], Kind: kind}
				if _, err := repo.Insert(runCtx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q with id %d\n", c.Kind, c.Name, c.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "person", "Contributor kind (person or group)")
	return cmd
}

func newContributorShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contributor with aliases and memberships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contributor")
			if err != nil {
				return err
			}
			return ctx.withReadStore(func(store *library.Store) error {
				reader := identity.NewReader(store)
				c, err := reader.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("contributor %d not found", id)
				}
				aliases, err := reader.Aliases(cmd.Context(), id)
				if err != nil {
					return err
				}
				var related []*identity.Contributor
				var relatedLabel string
				if c.Kind == identity.KindGroup {
					relatedLabel = "Members"
					related, err = reader.Members(cmd.Context(), id)
				} else {
					relatedLabel = "Groups"
					related, err = reader.Groups(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				songIDs, err := reader.SongIDsCredited(cmd.Context(), id)
				if err != nil {
					return err
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"contributor": c,
						"aliases":     aliases,
						"related":     related,
						"song_ids":    songIDs,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s, id %d)\n", c.Name, c.Kind, c.ID)
				if c.SortName != "" {
					fmt.Fprintf(out, "Sort name: %s\n", c.SortName)
				}
				fmt.Fprintf(out, "Credited on %d song(s)\n", len(songIDs))
				if len(aliases) > 0 {
					fmt.Fprintln(out, "Aliases:")
					for _, alias := range aliases {
						fmt.Fprintf(out, "  [%d] %s\n", alias.ID, alias.Alias)
					}
				}
				if len(related) > 0 {
					fmt.Fprintf(out, "%s:\n", relatedLabel)
					for _, rel := range related {
						fmt.Fprintf(out, "  [%d] %s\n", rel.ID, rel.Name)
					}
				}
				return nil
			})
		},
	}
}

func newContributorRenameCommand(ctx *commandContext) *cobra.Command {
	var keepAlias bool

	cmd := &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a contributor's primary name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contributor")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "contributor-rename", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.Rename(runCtx, id, args[1], keepAlias); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed contributor %d to %q\n", id, args[1])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&keepAlias, "keep-alias", false, "Retain the old primary name as an alias")
	return cmd
}

func newContributorMergeCommand(ctx *commandContext) *cobra.Command {
	var noAlias bool

	cmd := &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Merge one contributor into another",
		Long: "Moves every song credit, membership edge, and alias from the source " +
			"contributor to the target, records the source's primary name as a new " +
			"alias of the target (unless suppressed), and deletes the source. The " +
			"whole merge commits or rolls back as one batch.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := parseID(args[0], "source contributor")
			if err != nil {
				return err
			}
			targetID, err := parseID(args[1], "target contributor")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "contributor-merge", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.Merge(runCtx, sourceID, targetID, !noAlias); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merged contributor %d into %d\n", sourceID, targetID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noAlias, "no-alias", false, "Do not keep the source's name as an alias of the target")
	return cmd
}

func newContributorDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contributor and purge its song credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contributor")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "contributor-delete", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				ok, err := repo.Delete(runCtx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("contributor %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted contributor %d\n", id)
				return nil
			})
		},
	}
}

func newAliasCommand(ctx *commandContext) *cobra.Command {
	aliasCmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage contributor aliases",
	}

	aliasCmd.AddCommand(&cobra.Command{
		Use:   "add <contributor-id> <alias>",
		Short: "Attach an alias to a contributor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "contributor")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "alias-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				aliasID, err := repo.AddAlias(runCtx, id, args[1])
				if err != nil {
					return err
				}
				if aliasID == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%q is already the primary name of contributor %d\n", args[1], id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Alias %q attached to contributor %d (alias id %d)\n", args[1], id, aliasID)
				return nil
			})
		},
	})

	aliasCmd.AddCommand(&cobra.Command{
		Use:   "move <alias-text> <from-id> <to-id>",
		Short: "Re-point an alias to a different contributor",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromID, err := parseID(args[1], "source contributor")
			if err != nil {
				return err
			}
			toID, err := parseID(args[2], "target contributor")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "alias-move", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				ok, err := repo.MoveAlias(runCtx, args[0], fromID, toID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("contributor %d has no alias %q", fromID, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved alias %q from contributor %d to %d\n", args[0], fromID, toID)
				return nil
			})
		},
	})

	aliasCmd.AddCommand(&cobra.Command{
		Use:   "promote <owner-id> <alias-id>",
		Short: "Swap an alias with the owner's primary name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := parseID(args[0], "contributor")
			if err != nil {
				return err
			}
			aliasID, err := parseID(args[1], "alias")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "alias-promote", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				ok, err := repo.PromoteAlias(runCtx, ownerID, aliasID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("alias %d does not belong to contributor %d", aliasID, ownerID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Promoted alias %d to the primary name of contributor %d\n", aliasID, ownerID)
				return nil
			})
		},
	})

	return aliasCmd
}

func newMemberCommand(ctx *commandContext) *cobra.Command {
	memberCmd := &cobra.Command{
		Use:   "member",
		Short: "Manage group membership edges",
	}

	memberCmd.AddCommand(&cobra.Command{
		Use:   "add <group-id> <person-id>",
		Short: "Add a person to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			personID, err := parseID(args[1], "person")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "member-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.AddMember(runCtx, groupID, personID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added contributor %d to group %d\n", personID, groupID)
				return nil
			})
		},
	})

	memberCmd.AddCommand(&cobra.Command{
		Use:   "remove <group-id> <person-id>",
		Short: "Remove a person from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			personID, err := parseID(args[1], "person")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "member-remove", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := identity.NewRepository(unit.Tx(), unit.Trail())
				ok, err := repo.RemoveMember(runCtx, groupID, personID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("contributor %d is not a member of group %d", personID, groupID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed contributor %d from group %d\n", personID, groupID)
				return nil
			})
		},
	})

	memberCmd.AddCommand(&cobra.Command{
		Use:   "list <group-id>",
		Short: "List the members of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			return ctx.withReadStore(func(store *library.Store) error {
				members, err := identity.NewReader(store).Members(cmd.Context(), groupID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, members)
				}
				if len(members) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Group %d has no members\n", groupID)
					return nil
				}
				rows := make([][]string, 0, len(members))
				for _, m := range members {
					rows = append(rows, []string{formatID(m.ID), m.Name, orDash(m.SortName)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "NAME", "SORT NAME"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	})

	return memberCmd
}
