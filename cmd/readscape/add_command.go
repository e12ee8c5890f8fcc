package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"readscape/internal/config"
	"readscape/internal/library"
)

// ingestDocument is the upstream extraction format: ordered plain-text pages
// for one book.
type ingestDocument struct {
	Title  string       `json:"title"`
	Author string       `json:"author"`
	Pages  []ingestPage `json:"pages"`
}

type ingestPage struct {
	PageNumber  int    `json:"page_number"`
	TextContent string `json:"text_content"`
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <book.json>",
		Short: "Ingest an extracted book and queue it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				doc, err := readIngestDocument(args[0])
				if err != nil {
					return err
				}

				pages := make([]library.PageInput, 0, len(doc.Pages))
				for _, page := range doc.Pages {
					// The extractor filters short chunks already; drop anything
					// blank that slipped through.
					if strings.TrimSpace(page.TextContent) == "" {
						continue
					}
					pages = append(pages, library.PageInput{
						PageNumber: page.PageNumber,
						Text:       page.TextContent,
					})
				}
				if len(pages) == 0 {
					return fmt.Errorf("book file %s has no non-empty pages", args[0])
				}
				sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })

				book, err := store.CreateBook(cmd.Context(), doc.Title, doc.Author, pages)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added book %d: %s (%d pages)\n", book.ID, book.Title, book.TotalPages)
				return nil
			})
		},
	}
}

func readIngestDocument(path string) (*ingestDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read book file: %w", err)
	}
	var doc ingestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse book file: %w", err)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return nil, fmt.Errorf("book file %s has no title", path)
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("book file %s has no pages", path)
	}
	return &doc, nil
}
