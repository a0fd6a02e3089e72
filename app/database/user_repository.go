package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

var _ UserRepository = (*UserRepo)(nil)

// UserRepo handles database operations for users and their profiles.
type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, api_key, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.APIKey, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *UserRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, api_key, created_at, updated_at
		FROM users
		WHERE api_key = $1
	`, apiKey).Scan(&user.ID, &user.Email, &user.Name, &user.APIKey, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by API key: %w", err)
	}

	return &user, nil
}

func (r *UserRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return ids, nil
}

func (r *UserRepo) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, digest_emails, schedule_type, custom_days, time_of_day,
		       timezone, summary_depth, summary_format, summary_style,
		       language_preference, max_items_per_digest, include_images,
		       include_videos, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(
		&p.ID, &p.UserID, pq.Array(&p.DigestEmails), &p.ScheduleType,
		pq.Array(&p.CustomDays), &p.TimeOfDay, &p.Timezone, &p.SummaryDepth,
		&p.SummaryFormat, &p.SummaryStyle, &p.LanguagePreference,
		&p.MaxItemsPerDigest, &p.IncludeImages, &p.IncludeVideos,
		&p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, profile *Profile) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET digest_emails = $2, schedule_type = $3, custom_days = $4,
		    time_of_day = $5, timezone = $6, summary_depth = $7,
		    summary_format = $8, summary_style = $9, language_preference = $10,
		    max_items_per_digest = $11, include_images = $12,
		    include_videos = $13, updated_at = NOW()
		WHERE user_id = $1
	`, profile.UserID, pq.Array(profile.DigestEmails), profile.ScheduleType,
		pq.Array(profile.CustomDays), profile.TimeOfDay, profile.Timezone,
		profile.SummaryDepth, profile.SummaryFormat, profile.SummaryStyle,
		profile.LanguagePreference, profile.MaxItemsPerDigest,
		profile.IncludeImages, profile.IncludeVideos)

	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

func (r *UserRepo) ListProfilesBySchedule(ctx context.Context, scheduleType string) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, digest_emails, schedule_type, custom_days, time_of_day,
		       timezone, summary_depth, summary_format, summary_style,
		       language_preference, max_items_per_digest, include_images,
		       include_videos, created_at, updated_at
		FROM user_profiles
		WHERE schedule_type = $1
	`, scheduleType)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles by schedule: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		err := rows.Scan(
			&p.ID, &p.UserID, pq.Array(&p.DigestEmails), &p.ScheduleType,
			pq.Array(&p.CustomDays), &p.TimeOfDay, &p.Timezone, &p.SummaryDepth,
			&p.SummaryFormat, &p.SummaryStyle, &p.LanguagePreference,
			&p.MaxItemsPerDigest, &p.IncludeImages, &p.IncludeVideos,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile rows: %w", err)
	}

	return profiles, nil
}
