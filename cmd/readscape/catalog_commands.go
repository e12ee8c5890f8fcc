package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/soundscape"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the soundscape catalog",
	}
	cmd.AddCommand(newCatalogSyncCommand(ctx))
	cmd.AddCommand(newCatalogSeedCommand(ctx))
	cmd.AddCommand(newCatalogListCommand(ctx))
	cmd.AddCommand(newCatalogDeleteCommand(ctx))
	return cmd
}

func newCatalogSyncCommand(ctx *commandContext) *cobra.Command {
	var indexURL string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import audio assets from the storage directory index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				url := strings.TrimSpace(indexURL)
				if url == "" {
					url = cfg.Catalog.IndexURL
				}
				if url == "" {
					return errors.New("no index URL: set catalog.index_url or pass --index-url")
				}

				importer := soundscape.NewImporter(&http.Client{Timeout: cfg.Catalog.Timeout()})
				entries, err := importer.Import(cmd.Context(), url)
				if err != nil {
					return err
				}
				result, err := soundscape.Sync(cmd.Context(), store, entries, ctx.logger())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d entries (%d skipped) from %s\n",
					result.Persisted, result.Skipped, url)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&indexURL, "index-url", "", "Directory index URL override")
	return cmd
}

func newCatalogSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Load curated catalog entries from a YAML seed file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				path := cfg.Catalog.SeedPath
				if len(args) == 1 {
					path = args[0]
				}
				if strings.TrimSpace(path) == "" {
					return errors.New("no seed file: set catalog.seed_path or pass a path")
				}

				entries, err := soundscape.LoadSeedFile(path)
				if err != nil {
					return err
				}
				result, err := soundscape.Sync(cmd.Context(), store, entries, ctx.logger())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d entries (%d skipped) from %s\n",
					result.Persisted, result.Skipped, path)
				return nil
			})
		},
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog entries in canonical order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				entries, err := store.ListSoundscapes(cmd.Context())
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty. Run `readscape catalog sync` or `catalog seed`.")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					intensity := "-"
					if entry.Intensity >= 0 {
						intensity = strconv.Itoa(entry.Intensity)
					}
					rows = append(rows, []string{
						strconv.FormatInt(entry.ID, 10),
						entry.Category,
						entry.Name,
						entry.Mood,
						entry.Setting,
						intensity,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Category", "Name", "Mood", "Setting", "Intensity"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newCatalogDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <soundscape-id>",
		Short: "Remove a catalog entry unless a published book uses it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				removed, err := store.DeleteSoundscape(cmd.Context(), id)
				if err != nil {
					if errors.Is(err, library.ErrSoundscapeInUse) {
						return fmt.Errorf("soundscape %d is assigned in a published book; clear or override those scenes first", id)
					}
					return err
				}
				if !removed {
					return fmt.Errorf("soundscape %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted soundscape %d\n", id)
				return nil
			})
		},
	}
}
