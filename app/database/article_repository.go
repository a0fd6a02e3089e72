package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

// ArticleRepo handles database operations for ingested articles.
type ArticleRepo struct {
	db *DB
}

func NewArticleRepo(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

const articleColumns = `id, source_id, topic_id, title, url, content, excerpt,
	author, published_at, reading_time, image_url, tags, is_processed,
	is_included, summary, key_takeaways, relevance_score, sentiment, created_at`

// InsertIgnoreDuplicate persists the article unless one already exists under
// the (source_id, url) key. The unique constraint is the only dedup defense,
// so concurrent duplicate fetches fail safely into no-ops.
func (r *ArticleRepo) InsertIgnoreDuplicate(ctx context.Context, article *Article) (bool, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (
			id, source_id, topic_id, title, url, content, excerpt, author,
			published_at, reading_time, image_url, tags, is_included
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
		ON CONFLICT (source_id, url) DO NOTHING
	`, article.ID, article.SourceID, article.TopicID, article.Title, article.URL,
		article.Content, article.Excerpt, article.Author, article.PublishedAt,
		article.ReadingTime, article.ImageURL, pq.Array(article.Tags))

	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected > 0, nil
}

func (r *ArticleRepo) ListUnprocessed(ctx context.Context, userID string, limit int) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE source_id IN (SELECT id FROM sources WHERE user_id = $1)
		  AND is_processed = FALSE
		  AND is_included = TRUE
		ORDER BY published_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed articles: %w", err)
	}
	defer rows.Close()

	return r.scanArticles(rows)
}

func (r *ArticleRepo) ListEligibleForDigest(ctx context.Context, userID string, since time.Time, limit int) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE source_id IN (SELECT id FROM sources WHERE user_id = $1)
		  AND is_processed = TRUE
		  AND is_included = TRUE
		  AND summary IS NOT NULL
		  AND published_at >= $2
		ORDER BY relevance_score DESC NULLS LAST, published_at DESC
		LIMIT $3
	`, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest-eligible articles: %w", err)
	}
	defer rows.Close()

	return r.scanArticles(rows)
}

// MarkProcessed flips the processed flag without touching AI fields. Used
// after a failed summarization attempt so the article is never retried.
func (r *ArticleRepo) MarkProcessed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles SET is_processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark article processed: %w", err)
	}
	return nil
}

func (r *ArticleRepo) UpdateProcessingResult(ctx context.Context, id string, summary string, takeaways []string, relevance float64, sentiment string, tags []string) error {
	if takeaways == nil {
		takeaways = []string{}
	}
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET summary = $2, key_takeaways = $3, relevance_score = $4,
		    sentiment = $5, tags = $6, is_processed = TRUE
		WHERE id = $1
	`, id, summary, pq.Array(takeaways), relevance, sentiment, pq.Array(tags))

	if err != nil {
		return fmt.Errorf("failed to update processing result: %w", err)
	}

	return nil
}

func (r *ArticleRepo) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE source_id = $1`, sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (r *ArticleRepo) scanArticles(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		err := rows.Scan(
			&a.ID, &a.SourceID, &a.TopicID, &a.Title, &a.URL, &a.Content,
			&a.Excerpt, &a.Author, &a.PublishedAt, &a.ReadingTime, &a.ImageURL,
			pq.Array(&a.Tags), &a.IsProcessed, &a.IsIncluded, &a.Summary,
			pq.Array(&a.KeyTakeaways), &a.RelevanceScore, &a.Sentiment,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}
