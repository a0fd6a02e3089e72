package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var _ DigestRepository = (*DigestRepo)(nil)

// DigestRepo handles database operations for composed digests.
type DigestRepo struct {
	db *DB
}

func NewDigestRepo(db *DB) *DigestRepo {
	return &DigestRepo{db: db}
}

const digestColumns = `id, user_id, title, introduction, conclusion, highlights,
	scheduled_for, generated_at, sent_at, email_sent, email_error, email_id`

// InsertDigest persists the digest and its items in one transaction. Item
// order and highlight flags are fixed here and never mutated afterwards.
func (r *DigestRepo) InsertDigest(ctx context.Context, digest *Digest, items []DigestItem) error {
	if digest.ID == "" {
		digest.ID = uuid.NewString()
	}
	if digest.Highlights == nil {
		digest.Highlights = []string{}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO digests (id, user_id, title, introduction, conclusion, highlights, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING generated_at
	`, digest.ID, digest.UserID, digest.Title, digest.Introduction,
		digest.Conclusion, pq.Array(digest.Highlights), digest.ScheduledFor,
	).Scan(&digest.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to insert digest: %w", err)
	}

	for i := range items {
		items[i].DigestID = digest.ID
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO digest_items (id, digest_id, article_id, item_order, is_highlight)
			VALUES ($1, $2, $3, $4, $5)
		`, items[i].ID, items[i].DigestID, items[i].ArticleID,
			items[i].ItemOrder, items[i].IsHighlight)
		if err != nil {
			return fmt.Errorf("failed to insert digest item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit digest: %w", err)
	}

	return nil
}

func (r *DigestRepo) GetDigest(ctx context.Context, id string) (*Digest, error) {
	digest, err := r.scanDigest(r.db.QueryRowContext(ctx,
		`SELECT `+digestColumns+` FROM digests WHERE id = $1`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}

	return digest, nil
}

func (r *DigestRepo) GetDigestItems(ctx context.Context, digestID string) ([]DigestItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, digest_id, article_id, item_order, is_highlight
		FROM digest_items
		WHERE digest_id = $1
		ORDER BY item_order
	`, digestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get digest items: %w", err)
	}
	defer rows.Close()

	var items []DigestItem
	for rows.Next() {
		var item DigestItem
		if err := rows.Scan(&item.ID, &item.DigestID, &item.ArticleID, &item.ItemOrder, &item.IsHighlight); err != nil {
			return nil, fmt.Errorf("failed to scan digest item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digest item rows: %w", err)
	}

	return items, nil
}

// GetSentDigestSince returns any digest successfully sent to the user at or
// after the given instant. The scheduler's idempotent-send guard.
func (r *DigestRepo) GetSentDigestSince(ctx context.Context, userID string, since time.Time) (*Digest, error) {
	digest, err := r.scanDigest(r.db.QueryRowContext(ctx, `
		SELECT `+digestColumns+`
		FROM digests
		WHERE user_id = $1 AND email_sent = TRUE AND sent_at >= $2
		ORDER BY sent_at DESC
		LIMIT 1
	`, userID, since))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sent digest: %w", err)
	}

	return digest, nil
}

func (r *DigestRepo) MarkDigestSent(ctx context.Context, id string, sentAt time.Time, emailID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE digests
		SET email_sent = TRUE, sent_at = $2, email_id = $3
		WHERE id = $1
	`, id, sentAt, emailID)

	if err != nil {
		return fmt.Errorf("failed to mark digest sent: %w", err)
	}

	return nil
}

func (r *DigestRepo) SetDigestEmailError(ctx context.Context, id string, emailError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE digests SET email_error = $2 WHERE id = $1`, id, emailError)
	if err != nil {
		return fmt.Errorf("failed to set digest email error: %w", err)
	}
	return nil
}

func (r *DigestRepo) ListDigests(ctx context.Context, userID string, limit int) ([]Digest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+digestColumns+`
		FROM digests
		WHERE user_id = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	defer rows.Close()

	var digests []Digest
	for rows.Next() {
		digest, err := r.scanDigest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest row: %w", err)
		}
		digests = append(digests, *digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digest rows: %w", err)
	}

	return digests, nil
}

func (r *DigestRepo) scanDigest(row interface{ Scan(...any) error }) (*Digest, error) {
	var d Digest
	err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Introduction, &d.Conclusion,
		pq.Array(&d.Highlights), &d.ScheduledFor, &d.GeneratedAt, &d.SentAt,
		&d.EmailSent, &d.EmailError, &d.EmailID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
