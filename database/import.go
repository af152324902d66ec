package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bookshare/internal/models"
	"bookshare/internal/store"
)

// CatalogEntry is one book in an import file.
type CatalogEntry struct {
	Title                string `json:"title"`
	Author               string `json:"author"`
	ISBN                 string `json:"isbn"`
	Subject              string `json:"subject"`
	Level                string `json:"level"`
	Condition            string `json:"condition"`
	Description          string `json:"description"`
	PublishingCompany    string `json:"publishing_company"`
	RemainingUnusedTests int    `json:"remaining_unused_tests"`
	DonorName            string `json:"donor_name"`
}

// ImportCatalog reads a JSON array of CatalogEntry and adds every entry to
// chapter's shelf as an available book. The import is all or nothing.
func ImportCatalog(ctx context.Context, st *store.Store, chapter string, r io.Reader, log *slog.Logger) (int, error) {
	var entries []CatalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("failed to read catalog: %w", err)
	}
	if chapter == "" {
		chapter = models.DefaultChapter
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			return 0, fmt.Errorf("entry %d: title is required", i)
		}
		if e.RemainingUnusedTests < 0 {
			return 0, fmt.Errorf("entry %d (%s): remaining_unused_tests cannot be negative", i, e.Title)
		}
	}

	err := st.Transaction(ctx, func(tx *store.Store) error {
		now := tx.Now()
		for _, e := range entries {
			book := &models.Book{
				Title:                strings.TrimSpace(e.Title),
				Author:               e.Author,
				ISBN:                 e.ISBN,
				Subject:              e.Subject,
				Level:                e.Level,
				Condition:            e.Condition,
				Description:          e.Description,
				PublishingCompany:    e.PublishingCompany,
				RemainingUnusedTests: e.RemainingUnusedTests,
				DonorName:            e.DonorName,
				ChapterLocation:      chapter,
				Status:               models.BookAvailable,
				Timestamp:            now,
			}
			if err := tx.Books().Create(ctx, book); err != nil {
				return fmt.Errorf("failed to import %q: %w", e.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("Catalog imported", "chapter", chapter, "books", len(entries))
	return len(entries), nil
}
