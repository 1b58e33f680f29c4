package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"cadenza/internal/library"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check library health: directories, database schema, disk space",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			printDirCheck(out, "Music dir", cfg.Paths.MusicDir)
			printDirCheck(out, "Data dir", cfg.Paths.DataDir)
			printDirCheck(out, "Log dir", cfg.Paths.LogDir)

			if free, total, err := diskSpace(cfg.Paths.DataDir); err != nil {
				fmt.Fprintf(out, "Disk space: unavailable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "Disk space: %s free of %s on data dir\n", formatBytes(free), formatBytes(total))
			}

			return ctx.withReadStore(func(store *library.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return fmt.Errorf("check database health: %w", err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, health)
				}
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "  exists: %s  readable: %s  integrity: %s\n",
					yesNo(health.DatabaseExists), yesNo(health.DatabaseReadable), yesNo(health.IntegrityCheck))
				if len(health.MissingTables) > 0 {
					fmt.Fprintf(out, "  missing tables: %v\n", health.MissingTables)
				} else {
					fmt.Fprintf(out, "  tables: %d present\n", len(health.TablesPresent))
				}
				fmt.Fprintf(out, "  songs: %d  contributors: %d  albums: %d\n",
					health.SongCount, health.ContributorCount, health.AlbumCount)
				if health.Error != "" {
					fmt.Fprintf(out, "  error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func printDirCheck(out io.Writer, label, path string) {
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		fmt.Fprintf(out, "%s: %s (error: %v)\n", label, path, err)
		return
	}
	fmt.Fprintf(out, "%s: %s (read/write ok)\n", label, path)
}

func diskSpace(path string) (free, total uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	bsize := uint64(stat.Bsize)
	return stat.Bavail * bsize, stat.Blocks * bsize, nil
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
