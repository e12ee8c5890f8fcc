package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"readscape/internal/config"
	"readscape/internal/export"
	"readscape/internal/library"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export pipeline data for offline analysis",
	}
	cmd.AddCommand(newExportDescriptorsCommand(ctx))
	return cmd
}

func newExportDescriptorsCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "descriptors <book-id>",
		Short: "Write a book's page descriptors to a parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				path := strings.TrimSpace(output)
				if path == "" {
					path = filepath.Join(cfg.DataDir(), fmt.Sprintf("descriptors-%d.parquet", bookID))
				}
				count, err := export.Descriptors(cmd.Context(), store, bookID, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", count, path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}
