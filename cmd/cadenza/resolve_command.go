package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/identity"
	"cadenza/internal/library"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Expand a name into every alias and related group/member name",
		Long: "Resolves a search term through the identity graph: the matching " +
			"contributor, its aliases, and the names and aliases of identities one " +
			"membership hop away. Useful for finding songs credited under any variant.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				names, err := identity.NewReader(store).ResolveGraph(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"query": args[0], "names": names})
				}
				if len(names) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No identity matches %q\n", args[0])
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}
