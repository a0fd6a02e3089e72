package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inboxsage/inboxsage/app/database"
)

// ErrSourceNotFound reports a missing or foreign source on manual fetches.
var ErrSourceNotFound = errors.New("source not found")

// Aggregator coordinates fetching and ingestion across a user's sources.
type Aggregator struct {
	fetcher  *Fetcher
	sources  database.SourceRepository
	articles database.ArticleRepository
}

func NewAggregator(fetcher *Fetcher, sources database.SourceRepository, articles database.ArticleRepository) *Aggregator {
	return &Aggregator{
		fetcher:  fetcher,
		sources:  sources,
		articles: articles,
	}
}

// FetchAllForUser fetches every active source of the user. Per-source
// failures are recorded on the source and logged; they never abort the
// remaining sources.
func (a *Aggregator) FetchAllForUser(ctx context.Context, userID string) error {
	sources, err := a.sources.ListActiveSources(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list active sources: %w", err)
	}

	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(source database.Source) {
			defer wg.Done()
			if err := a.FetchSource(ctx, source); err != nil {
				slog.Error("Source fetch failed", "source", source.ID, "url", source.URL, "error", err)
			}
		}(source)
	}
	wg.Wait()

	return nil
}

// FetchSource fetches one source and ingests its entries. The fetch attempt
// is recorded on the source whether or not it produced content.
func (a *Aggregator) FetchSource(ctx context.Context, source database.Source) error {
	if !source.IsActive {
		return fmt.Errorf("source %s is inactive", source.ID)
	}

	entries, err := a.fetcher.Fetch(ctx, source)
	if err != nil {
		if recordErr := a.sources.RecordFetchFailure(ctx, source.ID); recordErr != nil {
			slog.Error("Failed to record fetch failure", "source", source.ID, "error", recordErr)
		}
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	newCount := 0
	duplicateCount := 0

	for _, entry := range entries {
		article := &database.Article{
			SourceID:    source.ID,
			TopicID:     source.TopicID,
			Title:       entry.Title,
			URL:         entry.URL,
			Content:     entry.Content,
			Excerpt:     entry.Excerpt,
			Author:      entry.Author,
			PublishedAt: entry.PublishedAt,
			ReadingTime: entry.ReadingTime,
			ImageURL:    entry.ImageURL,
			Tags:        entry.Tags,
		}

		inserted, err := a.articles.InsertIgnoreDuplicate(ctx, article)
		if err != nil {
			// One bad row must not abort the batch.
			slog.Error("Failed to store article", "source", source.ID, "url", entry.URL, "error", err)
			continue
		}

		if inserted {
			newCount++
		} else {
			duplicateCount++
		}
	}

	if err := a.sources.RecordFetchSuccess(ctx, source.ID); err != nil {
		return fmt.Errorf("failed to record fetch success: %w", err)
	}

	stored, err := a.articles.CountBySource(ctx, source.ID)
	if err != nil {
		stored = -1
	}

	slog.Info("Source fetched",
		"source", source.ID,
		"url", source.URL,
		"total", len(entries),
		"new", newCount,
		"duplicates", duplicateCount,
		"stored", stored)

	return nil
}

// FetchUserSource fetches one source on behalf of a user, enforcing
// ownership. Used by the manual fetch endpoint.
func (a *Aggregator) FetchUserSource(ctx context.Context, sourceID, userID string) error {
	source, err := a.sources.GetUserSource(ctx, sourceID, userID)
	if err != nil {
		return fmt.Errorf("failed to look up source: %w", err)
	}
	if source == nil {
		return ErrSourceNotFound
	}

	return a.FetchSource(ctx, *source)
}
