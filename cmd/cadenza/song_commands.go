package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cadenza/internal/audit"
	"cadenza/internal/identity"
	"cadenza/internal/library"
	"cadenza/internal/songsync"
	"cadenza/internal/textutil"
)

func newSongCommand(ctx *commandContext) *cobra.Command {
	songCmd := &cobra.Command{
		Use:   "song",
		Short: "Manage songs and synchronize their metadata fields",
	}

	songCmd.AddCommand(newSongAddCommand(ctx))
	songCmd.AddCommand(newSongListCommand(ctx))
	songCmd.AddCommand(newSongShowCommand(ctx))
	songCmd.AddCommand(newSongSyncCommand(ctx))

	return songCmd
}

func newSongAddCommand(ctx *commandContext) *cobra.Command {
	var trackFlag int
	var sourceFlag string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runUnit(cmd, "song-add", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				repo := library.NewSongRepository(unit.Tx(), unit.Trail())
				song := &library.Song{Title: args[0], TrackNo: trackFlag, SourcePath: sourceFlag}
				if _, err := repo.Insert(runCtx, song); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created song %q with id %d\n", song.Title, song.ID)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&trackFlag, "track", "t", 0, "Track number")
	cmd.Flags().StringVarP(&sourceFlag, "source", "s", "", "Source file path")
	return cmd
}

func newSongListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withReadStore(func(store *library.Store) error {
				songs, err := library.NewSongReader(store).List(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, songs)
				}
				if len(songs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No songs")
					return nil
				}
				rows := make([][]string, 0, len(songs))
				for _, s := range songs {
					track := "-"
					if s.TrackNo != 0 {
						track = fmt.Sprintf("%d", s.TrackNo)
					}
					rows = append(rows, []string{formatID(s.ID), s.Title, track})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "TITLE", "TRACK"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newSongShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a song with credits, albums, publishers, and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "song")
			if err != nil {
				return err
			}
			return ctx.withReadStore(func(store *library.Store) error {
				view, err := songsync.Load(cmd.Context(), store, id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (id %d)\n", view.Song.Title, view.Song.ID)
				if view.Song.TrackNo != 0 {
					fmt.Fprintf(out, "Track: %d\n", view.Song.TrackNo)
				}
				for _, role := range identity.Roles() {
					credited, ok := view.Credits[role]
					if !ok {
						continue
					}
					names := make([]string, 0, len(credited))
					for _, c := range credited {
						names = append(names, c.Name)
					}
					fmt.Fprintf(out, "%ss: %s\n", textutil.TitleCase(string(role)), strings.Join(names, "; "))
				}
				for _, m := range view.Albums {
					marker := ""
					if m.Primary {
						marker = " (primary)"
					}
					fmt.Fprintf(out, "Album: %s%s\n", m.Album.Title, marker)
				}
				if len(view.Publishers) > 0 {
					names := make([]string, 0, len(view.Publishers))
					for _, p := range view.Publishers {
						names = append(names, p.Name)
					}
					suffix := ""
					if view.Inherited {
						suffix = " (inherited from primary album)"
					}
					fmt.Fprintf(out, "Publisher: %s%s\n", strings.Join(names, "; "), suffix)
				}
				for _, t := range view.Tags {
					fmt.Fprintf(out, "Tag: %s\n", t.Ref())
				}
				return nil
			})
		},
	}
}

func newSongSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		performers []string
		composers  []string
		lyricists  []string
		producers  []string
		tags       []string
		publishers []string

		albumIDs    []int64
		albumTitle  string
		albumArtist string
		albumYear   int
		primary     bool
		defaultYear bool
	)

	cmd := &cobra.Command{
		Use:   "sync <song-id>",
		Short: "Make a song's links mirror the given field values",
		Long: "Applies a full edit-buffer snapshot to the song: credit names are " +
			"resolved through aliases or created, tags resolve case-insensitively " +
			"within their category, and album/publisher links are replaced to match " +
			"exactly. Every flag is repeatable where it names a list value; the sync " +
			"commits as one audited batch or not at all.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			songID, err := parseID(args[0], "song")
			if err != nil {
				return err
			}

			buf := songsync.Buffer{
				Performers:       performers,
				Composers:        composers,
				Lyricists:        lyricists,
				Producers:        producers,
				Tags:             tags,
				ApplyDefaultYear: defaultYear,
			}
			for _, id := range albumIDs {
				buf.Albums = append(buf.Albums, songsync.AlbumRef{ID: id})
			}
			if albumTitle != "" {
				buf.Albums = append(buf.Albums, songsync.AlbumRef{
					Title:   albumTitle,
					Artist:  albumArtist,
					Year:    albumYear,
					Primary: primary,
				})
			} else if primary && len(buf.Albums) == 1 {
				buf.Albums[0].Primary = true
			}
			for _, name := range publishers {
				buf.Publishers = append(buf.Publishers, songsync.PublisherRef{Name: name})
			}

			svc := songsync.NewService(ctx.configValue(), ctx.ensureLogger())
			return ctx.runUnit(cmd, "song-sync", func(runCtx context.Context, _ *library.Store, unit *audit.Unit) error {
				if err := svc.Sync(runCtx, unit, songID, buf); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synchronized song %d\n", songID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&performers, "performer", nil, "Performer name (repeatable)")
	flags.StringArrayVar(&composers, "composer", nil, "Composer name (repeatable)")
	flags.StringArrayVar(&lyricists, "lyricist", nil, "Lyricist name (repeatable)")
	flags.StringArrayVar(&producers, "producer", nil, "Producer name (repeatable)")
	flags.StringArrayVar(&tags, "tag", nil, "Tag as category:name (repeatable)")
	flags.StringArrayVar(&publishers, "publisher", nil, "Publisher name (repeatable)")
	flags.Int64SliceVar(&albumIDs, "album-id", nil, "Album id to link (repeatable)")
	flags.StringVar(&albumTitle, "album-title", "", "Album title (key lookup, get-or-create)")
	flags.StringVar(&albumArtist, "album-artist", "", "Album artist for the key lookup")
	flags.IntVar(&albumYear, "album-year", 0, "Album release year for the key lookup")
	flags.BoolVar(&primary, "primary", false, "Mark the referenced album as the song's primary album")
	flags.BoolVar(&defaultYear, "default-year", false, "Fill the configured default release year into year-less album keys")
	return cmd
}
