package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

var _ SourceRepository = (*SourceRepo)(nil)
var _ TopicRepository = (*TopicRepo)(nil)

// SourceRepo handles database operations for content sources.
type SourceRepo struct {
	db *DB
}

func NewSourceRepo(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const sourceColumns = `id, user_id, topic_id, name, url, type, description,
	is_active, last_fetched, fetch_errors, created_at, updated_at`

func scanSource(row interface{ Scan(...any) error }) (*Source, error) {
	var s Source
	err := row.Scan(&s.ID, &s.UserID, &s.TopicID, &s.Name, &s.URL, &s.Type,
		&s.Description, &s.IsActive, &s.LastFetched, &s.FetchErrors,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SourceRepo) InsertSource(ctx context.Context, source *Source) error {
	if source.ID == "" {
		source.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, user_id, topic_id, name, url, type, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, source.ID, source.UserID, source.TopicID, source.Name, source.URL,
		source.Type, source.Description, source.IsActive)

	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetUserSource(ctx context.Context, id, userID string) (*Source, error) {
	source, err := scanSource(r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1 AND user_id = $2`, id, userID))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user source: %w", err)
	}

	return source, nil
}

func (r *SourceRepo) ListSources(ctx context.Context, userID string) ([]Source, error) {
	return r.listSources(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *SourceRepo) ListActiveSources(ctx context.Context, userID string) ([]Source, error) {
	return r.listSources(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at`, userID)
}

func (r *SourceRepo) listSources(ctx context.Context, query string, args ...any) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceRepo) DeleteSource(ctx context.Context, id, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sources WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// RecordFetchSuccess stamps the fetch attempt and resets the error counter.
func (r *SourceRepo) RecordFetchSuccess(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET last_fetched = NOW(), fetch_errors = 0, updated_at = NOW()
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to record fetch success: %w", err)
	}

	return nil
}

// RecordFetchFailure stamps the fetch attempt and increments the error counter.
// Fetch attempts are recorded whether or not they produce content.
func (r *SourceRepo) RecordFetchFailure(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET last_fetched = NOW(), fetch_errors = fetch_errors + 1, updated_at = NOW()
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to record fetch failure: %w", err)
	}

	return nil
}

// TopicRepo handles database operations for user topics.
type TopicRepo struct {
	db *DB
}

func NewTopicRepo(db *DB) *TopicRepo {
	return &TopicRepo{db: db}
}

func (r *TopicRepo) InsertTopic(ctx context.Context, topic *Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO topics (id, user_id, name, description, color)
		VALUES ($1, $2, $3, $4, $5)
	`, topic.ID, topic.UserID, topic.Name, topic.Description, topic.Color)

	if err != nil {
		return fmt.Errorf("failed to insert topic: %w", err)
	}

	return nil
}

func (r *TopicRepo) ListTopics(ctx context.Context, userID string) ([]Topic, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, description, color, created_at
		FROM topics
		WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.Color, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

func (r *TopicRepo) DeleteTopic(ctx context.Context, id, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM topics WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return nil
}
