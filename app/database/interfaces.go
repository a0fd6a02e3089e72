package database

import (
	"context"
	"time"
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	ListProfilesBySchedule(ctx context.Context, scheduleType string) ([]Profile, error)
}

type TopicRepository interface {
	InsertTopic(ctx context.Context, topic *Topic) error
	ListTopics(ctx context.Context, userID string) ([]Topic, error)
	DeleteTopic(ctx context.Context, id, userID string) error
}

type SourceRepository interface {
	InsertSource(ctx context.Context, source *Source) error
	GetUserSource(ctx context.Context, id, userID string) (*Source, error)
	ListSources(ctx context.Context, userID string) ([]Source, error)
	ListActiveSources(ctx context.Context, userID string) ([]Source, error)
	DeleteSource(ctx context.Context, id, userID string) error
	RecordFetchSuccess(ctx context.Context, id string) error
	RecordFetchFailure(ctx context.Context, id string) error
}

type ArticleRepository interface {
	// InsertIgnoreDuplicate persists the article unless one already exists
	// under the (source_id, url) key. Reports whether a row was created.
	InsertIgnoreDuplicate(ctx context.Context, article *Article) (bool, error)
	ListUnprocessed(ctx context.Context, userID string, limit int) ([]Article, error)
	ListEligibleForDigest(ctx context.Context, userID string, since time.Time, limit int) ([]Article, error)
	MarkProcessed(ctx context.Context, id string) error
	UpdateProcessingResult(ctx context.Context, id string, summary string, takeaways []string, relevance float64, sentiment string, tags []string) error
	CountBySource(ctx context.Context, sourceID string) (int, error)
}

type DigestRepository interface {
	// InsertDigest persists the digest and its items in one transaction,
	// preserving item order and highlight flags.
	InsertDigest(ctx context.Context, digest *Digest, items []DigestItem) error
	GetDigest(ctx context.Context, id string) (*Digest, error)
	GetDigestItems(ctx context.Context, digestID string) ([]DigestItem, error)
	GetSentDigestSince(ctx context.Context, userID string, since time.Time) (*Digest, error)
	MarkDigestSent(ctx context.Context, id string, sentAt time.Time, emailID string) error
	SetDigestEmailError(ctx context.Context, id string, emailError string) error
	ListDigests(ctx context.Context, userID string, limit int) ([]Digest, error)
}
