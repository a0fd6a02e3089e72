package feed

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/inboxsage/inboxsage/app/database"
)

const fetchTimeout = 30 * time.Second

// Fetcher pulls entries from one external feed for one source record.
type Fetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

func NewFetcher(httpClient *http.Client, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

// Fetch returns the normalized entries of the source's feed. Only feed-style
// sources are fetched; the other declared types are accepted but produce zero
// entries. A transport or parse failure fails the fetch as a whole, and the
// caller records the attempt on the source either way.
func (f *Fetcher) Fetch(ctx context.Context, source database.Source) ([]Entry, error) {
	switch source.Type {
	case database.SourceTypeRSS, database.SourceTypeMedium:
		return f.fetchFeed(ctx, source.URL)
	case database.SourceTypeNewsletter, database.SourceTypeTwitter, database.SourceTypeCustomURL:
		slog.Debug("Source type not fetchable, skipping", "source", source.ID, "type", source.Type)
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", source.Type)
	}
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]Entry, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	parsed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, f.normalizeItem(item))
	}

	return entries, nil
}

func (f *Fetcher) normalizeItem(item *gofeed.Item) Entry {
	content := cmp.Or(item.Content, item.Description)

	entry := Entry{
		Title:       cmp.Or(item.Title, "Untitled"),
		URL:         item.Link,
		Content:     content,
		Excerpt:     ExtractExcerpt(content, excerptMaxLength),
		ReadingTime: EstimateReadingTime(content),
		ImageURL:    ExtractImageURL(content),
		Tags:        ExtractTags(content + " " + item.Title),
	}

	if item.PublishedParsed != nil {
		entry.PublishedAt = *item.PublishedParsed
	} else {
		entry.PublishedAt = time.Now().UTC()
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	} else if item.Author != nil {
		entry.Author = item.Author.Name
	}

	return entry
}
