package api

import (
	"context"

	"github.com/inboxsage/inboxsage/app/database"
)

// SchedulerControl is the slice of the job coordinator the API exposes.
type SchedulerControl interface {
	Status() map[string]bool
	Enabled() bool
	StopAll()
	TriggerContentFetch(ctx context.Context) error
	TriggerAIProcessing(ctx context.Context) error
}

// ContentService fetches source content on demand.
type ContentService interface {
	FetchAllForUser(ctx context.Context, userID string) error
	FetchUserSource(ctx context.Context, sourceID, userID string) error
}

// ProcessingService runs summarization over unprocessed articles.
type ProcessingService interface {
	ProcessArticles(ctx context.Context, userID string, maxArticles int) (int, error)
}

// DigestService composes and delivers digests.
type DigestService interface {
	Preview(ctx context.Context, userID string) (*database.Digest, []database.Article, error)
	CreateAndSend(ctx context.Context, userID string) (*database.Digest, error)
	SendTest(ctx context.Context, userID string) error
}

// Handler carries the dependencies of the HTTP control surface.
type Handler struct {
	users       database.UserRepository
	sources     database.SourceRepository
	topics      database.TopicRepository
	digestStore database.DigestRepository
	scheduler   SchedulerControl
	content     ContentService
	processing  ProcessingService
	digests     DigestService
	version     string
}

func NewHandler(users database.UserRepository, sources database.SourceRepository, topics database.TopicRepository, digestStore database.DigestRepository, scheduler SchedulerControl, content ContentService, processing ProcessingService, digests DigestService, version string) *Handler {
	return &Handler{
		users:       users,
		sources:     sources,
		topics:      topics,
		digestStore: digestStore,
		scheduler:   scheduler,
		content:     content,
		processing:  processing,
		digests:     digests,
		version:     version,
	}
}
