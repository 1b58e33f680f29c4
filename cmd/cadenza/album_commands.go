package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cadenza/internal/album"
	"cadenza/internal/audit"
	"cadenza/internal/library"
)

func newAlbumCommand(ctx *commandContext) *cobra.Command {
	albumCmd := &cobra.Command{
		Use:   "album",
		Short: "Manage albums and song-album links",
	}

	albumCmd.AddCommand(newAlbumAddCommand(ctx))
	albumCmd.AddCommand(newAlbumListCommand(ctx))
	albumCmd.AddCommand(newAlbumLinkSongCommand(ctx))
	albumCmd.AddCommand(newAlbumUnlinkSongCommand(ctx))
	albumCmd.AddCommand(newAlbumSetPrimaryCommand(ctx))

	return albumCmd
}

func newAlbumAddCommand(ctx *commandContext) *cobra.Command {
	var artistFlag string
	var yearFlag int
	var typeFlag string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Find or create an album by its disambiguation key",
		Long: "Albums are identified by title plus artist plus year; a matching key " +
			"resolves to the existing album, anything else creates a new one. Title " +
			"alone is never enough to identify an album.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			albumType := typeFlag
			if albumType == "" {
				albumType = ctx.configValue().Library.DefaultAlbumType
			}
			return ctx.runUnit(cmd, "album-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := album.NewRepository(unit.Tx(), unit.Trail())
				key := album.Key{Title: args[0], Artist: artistFlag, Year: yearFlag}
				a, created, err := repo.GetOrCreate(runCtx, key, albumType)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Created album %q with id %d\n", key.String(), a.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Album %q already exists with id %d\n", key.String(), a.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&artistFlag, "artist", "a", "", "Album artist (exact-match part of the key)")
	cmd.Flags().IntVarP(&yearFlag, "year", "y", 0, "Release year (exact-match part of the key)")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Album type (album, single, ep, compilation, soundtrack)")
	return cmd
}

func newAlbumListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all albums",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				albums, err := album.NewReader(store).List(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, albums)
				}
				if len(albums) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No albums")
					return nil
				}
				rows := make([][]string, 0, len(albums))
				for _, a := range albums {
					rows = append(rows, []string{
						formatID(a.ID),
						a.Title,
						orDash(a.AlbumArtist),
						formatYear(a.ReleaseYear),
						a.Type,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "TITLE", "ARTIST", "YEAR", "TYPE"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newAlbumLinkSongCommand(ctx *commandContext) *cobra.Command {
	var primary bool

	cmd := &cobra.Command{
		Use:   "link-song <album-id> <song-id>",
		Short: "Link a song to an album",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			albumID, err := parseID(args[0], "album")
			if err != nil {
				return err
			}
			songID, err := parseID(args[1], "song")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "album-link-song", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := album.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.AddSong(runCtx, albumID, songID, primary); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked song %d to album %d (primary: %s)\n", songID, albumID, yesNo(primary))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&primary, "primary", false, "Mark this as the song's primary album")
	return cmd
}

func newAlbumUnlinkSongCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink-song <album-id> <song-id>",
		Short: "Unlink a song from an album",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			albumID, err := parseID(args[0], "album")
			if err != nil {
				return err
			}
			songID, err := parseID(args[1], "song")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "album-unlink-song", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := album.NewRepository(unit.Tx(), unit.Trail())
				ok, err := repo.RemoveSong(runCtx, albumID, songID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("song %d is not on album %d", songID, albumID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unlinked song %d from album %d\n", songID, albumID)
				return nil
			})
		},
	}
}

func newAlbumSetPrimaryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-primary <song-id> <album-id>",
		Short: "Mark an album as the song's primary album",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			songID, err := parseID(args[0], "song")
			if err != nil {
				return err
			}
			albumID, err := parseID(args[1], "album")
			if err != nil {
				return err
			}
			return ctx.runUnit(cmd, "album-set-primary", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := album.NewRepository(unit.Tx(), unit.Trail())
				if err := repo.SetPrimary(runCtx, songID, albumID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Album %d is now the primary album of song %d\n", albumID, songID)
				return nil
			})
		},
	}
}
