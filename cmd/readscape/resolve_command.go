package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/review"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <book-id> <page-number>",
		Short: "Show the scene and audio a reader would get for a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			pageNumber, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil || pageNumber < 1 {
				return fmt.Errorf("invalid page number %q", args[1])
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				gateway := review.NewGateway(cfg, store, ctx.logger())
				resolution, err := gateway.ResolvePage(cmd.Context(), bookID, pageNumber)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Page %d of %s is in scene %d (pages %d-%d)\n",
					pageNumber, resolution.Book.Title, resolution.Scene.ID,
					resolution.Scene.StartPage, resolution.Scene.EndPage)
				if resolution.AudioURL != "" {
					fmt.Fprintf(out, "Audio: %s (confidence %.2f)\n",
						resolution.AudioURL, resolution.Assignment.Confidence)
				} else {
					fmt.Fprintln(out, "No audio assigned.")
				}
				return nil
			})
		},
	}
}
