package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cadenza/internal/audit"
	"cadenza/internal/library"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}

	auditCmd.AddCommand(newAuditBatchesCommand(ctx))
	auditCmd.AddCommand(newAuditShowCommand(ctx))

	return auditCmd
}

func newAuditBatchesCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List recent units of work, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				batches, err := audit.ListBatches(cmd.Context(), store, limitFlag)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, batches)
				}
				if len(batches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No audit batches")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, b := range batches {
					outcome := "open"
					switch {
					case b.Committed:
						outcome = "committed"
					case b.RolledBack:
						outcome = "rolled back"
					}
					rows = append(rows, []string{
						b.BatchID,
						b.Operation,
						b.StartedAt.Local().Format(time.DateTime),
						outcome,
						fmt.Sprintf("%d", b.EntryCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"BATCH", "OPERATION", "STARTED", "OUTCOME", "CHANGES"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 50, "Maximum number of batches to list")
	return cmd
}

func newAuditShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show every record of one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				entries, err := audit.Entries(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return fmt.Errorf("no audit records for batch %s", args[0])
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				for _, e := range entries {
					record := ""
					if e.RecordID != 0 {
						record = fmt.Sprintf(" #%d", e.RecordID)
					}
					fmt.Fprintf(out, "%s  %-14s %s%s\n", e.CreatedAt.Local().Format(time.TimeOnly), e.Action, e.Entity, record)
					if e.Detail != "" {
						fmt.Fprintf(out, "    %s\n", e.Detail)
					}
				}
				return nil
			})
		},
	}
}
