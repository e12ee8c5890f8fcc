package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"readscape/internal/config"
	"readscape/internal/library"
	"readscape/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and resolve scene assignments",
	}
	cmd.AddCommand(newReviewListCommand(ctx))
	cmd.AddCommand(newReviewOverrideCommand(ctx))
	cmd.AddCommand(newReviewApproveCommand(ctx))
	cmd.AddCommand(newReviewClearCommand(ctx))
	cmd.AddCommand(newReviewPublishCommand(ctx))
	return cmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	var flaggedOnly bool

	cmd := &cobra.Command{
		Use:   "list <book-id>",
		Short: "List a book's scenes with their assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				gateway := review.NewGateway(cfg, store, ctx.logger())
				items, err := gateway.Queue(cmd.Context(), bookID)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(items))
				unresolvedCount := 0
				for _, item := range items {
					if item.Unresolved {
						unresolvedCount++
					}
					if flaggedOnly && !item.Unresolved {
						continue
					}
					soundCell := "-"
					confidenceCell := "-"
					if item.Soundscape != nil {
						soundCell = fmt.Sprintf("%s/%s", item.Soundscape.Category, item.Soundscape.Name)
					}
					if item.Assignment != nil {
						confidenceCell = fmt.Sprintf("%.2f", item.Assignment.Confidence)
					}
					state := "ok"
					if item.Unresolved {
						state = "needs review"
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.Scene.ID, 10),
						fmt.Sprintf("%d-%d", item.Scene.StartPage, item.Scene.EndPage),
						item.Scene.Descriptor.Mood,
						soundCell,
						confidenceCell,
						state,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Scene", "Pages", "Mood", "Soundscape", "Confidence", "State"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d of %d scenes need review\n", unresolvedCount, len(items))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&flaggedOnly, "flagged", false, "Show only scenes that need review")
	return cmd
}

func newReviewOverrideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "override <scene-id> <soundscape-id>",
		Short: "Pin a scene to a specific soundscape",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneID, err := parseID(args[0])
			if err != nil {
				return err
			}
			soundscapeID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				gateway := review.NewGateway(cfg, store, ctx.logger())
				if _, err := gateway.Override(cmd.Context(), sceneID, soundscapeID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %d pinned to soundscape %d\n", sceneID, soundscapeID)
				return nil
			})
		},
	}
}

func newReviewApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <scene-id>",
		Short: "Accept the current automated assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				gateway := review.NewGateway(cfg, store, ctx.logger())
				assignment, err := gateway.Approve(cmd.Context(), sceneID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %d approved (confidence %.2f)\n", sceneID, assignment.Confidence)
				return nil
			})
		},
	}
}

func newReviewClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <scene-id>",
		Short: "Drop all assignments for a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				gateway := review.NewGateway(cfg, store, ctx.logger())
				if err := gateway.Clear(cmd.Context(), sceneID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %d cleared; it now blocks publish until reassigned\n", sceneID)
				return nil
			})
		},
	}
}

func newReviewPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <book-id>",
		Short: "Publish a fully reviewed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				gateway := review.NewGateway(cfg, store, ctx.logger())
				book, err := gateway.Publish(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published book %d: %s\n", book.ID, book.Title)
				return nil
			})
		},
	}
}
