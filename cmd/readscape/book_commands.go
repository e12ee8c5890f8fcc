package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"readscape/internal/config"
	"readscape/internal/library"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				var statuses []library.Status
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					status, ok := library.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					statuses = append(statuses, status)
				}

				books, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(books) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No books found.")
					return nil
				}

				rows := make([][]string, 0, len(books))
				for _, book := range books {
					rows = append(rows, []string{
						strconv.FormatInt(book.ID, 10),
						book.Title,
						string(book.Status),
						strconv.Itoa(book.TotalPages),
						fmt.Sprintf("%.0f%%", book.ProgressPercent),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Pages", "Progress"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by book status")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show one book with its scenes and assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				book, err := store.GetByID(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				if book == nil {
					return fmt.Errorf("book %d not found", bookID)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Book %d: %s", book.ID, book.Title)
				if book.Author != "" {
					fmt.Fprintf(out, " by %s", book.Author)
				}
				fmt.Fprintf(out, "\nStatus: %s (%d pages)\n", book.Status, book.TotalPages)
				if book.ErrorMessage != "" {
					fmt.Fprintf(out, "Failed at %s: %s\n", book.FailedStage, book.ErrorMessage)
				}
				if book.ProgressMessage != "" {
					fmt.Fprintf(out, "Progress: %s (%.0f%%)\n", book.ProgressMessage, book.ProgressPercent)
				}

				scenes, err := store.ScenesForBook(cmd.Context(), book.ID)
				if err != nil {
					return err
				}
				if len(scenes) == 0 {
					fmt.Fprintln(out, "No scenes yet.")
					return nil
				}
				assignments, err := store.CurrentAssignmentsForBook(cmd.Context(), book.ID)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(scenes))
				for _, scene := range scenes {
					assignmentCell := "-"
					confidenceCell := "-"
					if assignment := assignments[scene.ID]; assignment != nil {
						confidenceCell = fmt.Sprintf("%.2f", assignment.Confidence)
						switch {
						case assignment.SoundscapeID == nil:
							assignmentCell = "no match"
						case assignment.Source == library.SourceAdminOverride:
							assignmentCell = fmt.Sprintf("soundscape %d (override)", *assignment.SoundscapeID)
						case assignment.NeedsReview:
							assignmentCell = fmt.Sprintf("soundscape %d (review)", *assignment.SoundscapeID)
						default:
							assignmentCell = fmt.Sprintf("soundscape %d", *assignment.SoundscapeID)
						}
					}
					rows = append(rows, []string{
						strconv.FormatInt(scene.ID, 10),
						fmt.Sprintf("%d-%d", scene.StartPage, scene.EndPage),
						scene.Descriptor.Mood,
						scene.Descriptor.Setting,
						assignmentCell,
						confidenceCell,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Scene", "Pages", "Mood", "Setting", "Assignment", "Confidence"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library counts and database health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				out := cmd.OutOrStdout()

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Database: %s\n", store.Path())
				fmt.Fprintf(out, "Books: %d total, %d processing, %d awaiting review, %d published, %d failed\n",
					summary.Total, summary.Processing, summary.Review, summary.Published, summary.Failed)

				counts, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(counts))
				for _, status := range library.AllStatuses() {
					if count := counts[status]; count > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Status", "Count"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [book-id...]",
		Short: "Return failed books to the stage that failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				retried, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d book(s)\n", retried)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Delete a book with its pages, scenes, and assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				removed, err := store.Remove(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("book %d not found", bookID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed book %d\n", bookID)
				return nil
			})
		},
	}
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
