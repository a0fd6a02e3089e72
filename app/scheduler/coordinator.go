package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inboxsage/inboxsage/app/database"
	"github.com/inboxsage/inboxsage/app/digest"
)

// Job names used in the registry and the status endpoint.
const (
	JobContentFetch = "content-fetch"
	JobAIProcessing = "ai-processing"
	JobDailyDigest  = "daily-digest"
	JobWeeklyDigest = "weekly-digest"
)

// Cadences, evaluated in UTC.
const (
	cadenceContentFetch = "0 */2 * * *"
	cadenceAIProcessing = "0 */4 * * *"
	cadenceDailyDigest  = "0 * * * *"
	cadenceWeeklyDigest = "0 9 * * *"
)

const aiProcessingBatchSize = 20

// ContentFetcher pulls new entries for all of a user's active sources.
type ContentFetcher interface {
	FetchAllForUser(ctx context.Context, userID string) error
}

// ArticleProcessor enriches a user's unprocessed articles.
type ArticleProcessor interface {
	ProcessArticles(ctx context.Context, userID string, maxArticles int) (int, error)
}

// DigestSender composes and delivers a digest for a user.
type DigestSender interface {
	CreateAndSend(ctx context.Context, userID string) (*database.Digest, error)
}

// Coordinator owns the recurring jobs: periodic content fetching, AI
// processing sweeps and schedule-aware digest delivery. All cron evaluation
// happens in UTC; per-user delivery windows are resolved against the
// profile's timezone.
type Coordinator struct {
	users       database.UserRepository
	digests     database.DigestRepository
	fetcher     ContentFetcher
	processor   ArticleProcessor
	sender      DigestSender
	workerLimit int
	enabled     bool

	cron *cron.Cron
	mu   sync.Mutex
	jobs map[string]cron.EntryID
	now  func() time.Time
}

func NewCoordinator(users database.UserRepository, digests database.DigestRepository, fetcher ContentFetcher, processor ArticleProcessor, sender DigestSender, workerLimit int, enabled bool) *Coordinator {
	if workerLimit < 1 {
		workerLimit = 1
	}
	return &Coordinator{
		users:       users,
		digests:     digests,
		fetcher:     fetcher,
		processor:   processor,
		sender:      sender,
		workerLimit: workerLimit,
		enabled:     enabled,
		cron:        cron.New(cron.WithLocation(time.UTC)),
		jobs:        make(map[string]cron.EntryID),
		now:         time.Now,
	}
}

// Enabled reports whether the coordinator was configured to auto-start.
func (c *Coordinator) Enabled() bool {
	return c.enabled
}

// Start registers the four recurring jobs and begins the cron runner.
// Calling Start on a coordinator with registered jobs is a no-op.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.jobs) > 0 {
		return nil
	}

	jobs := []struct {
		name    string
		cadence string
		run     func()
	}{
		{JobContentFetch, cadenceContentFetch, c.runContentFetch},
		{JobAIProcessing, cadenceAIProcessing, c.runAIProcessing},
		{JobDailyDigest, cadenceDailyDigest, c.runDailyDigest},
		{JobWeeklyDigest, cadenceWeeklyDigest, c.runWeeklyDigest},
	}
	for _, job := range jobs {
		id, err := c.cron.AddFunc(job.cadence, job.run)
		if err != nil {
			return err
		}
		c.jobs[job.name] = id
		slog.Info("Job scheduled", "name", job.name, "cadence", job.cadence)
	}

	c.cron.Start()
	return nil
}

// StopAll removes every registered job. Safe to call repeatedly.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, id := range c.jobs {
		c.cron.Remove(id)
		delete(c.jobs, name)
		slog.Info("Job stopped", "name", name)
	}
}

// Shutdown stops the cron runner and waits for in-flight jobs.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.StopAll()
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports each known job name mapped to whether it is registered.
func (c *Coordinator) Status() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := make(map[string]bool, 4)
	for _, name := range []string{JobContentFetch, JobAIProcessing, JobDailyDigest, JobWeeklyDigest} {
		_, registered := c.jobs[name]
		status[name] = registered
	}
	return status
}

// TriggerContentFetch runs the content fetch sweep synchronously.
func (c *Coordinator) TriggerContentFetch(ctx context.Context) error {
	return c.forEachUser(ctx, "content-fetch", func(ctx context.Context, userID string) error {
		return c.fetcher.FetchAllForUser(ctx, userID)
	})
}

// TriggerAIProcessing runs the processing sweep synchronously.
func (c *Coordinator) TriggerAIProcessing(ctx context.Context) error {
	return c.forEachUser(ctx, "ai-processing", func(ctx context.Context, userID string) error {
		_, err := c.processor.ProcessArticles(ctx, userID, aiProcessingBatchSize)
		return err
	})
}

func (c *Coordinator) runContentFetch() {
	if err := c.TriggerContentFetch(context.Background()); err != nil {
		slog.Error("Content fetch sweep failed", "error", err)
	}
}

func (c *Coordinator) runAIProcessing() {
	if err := c.TriggerAIProcessing(context.Background()); err != nil {
		slog.Error("AI processing sweep failed", "error", err)
	}
}

// forEachUser fans a task out across all users through a bounded worker
// pool. Per-user errors are logged and swallowed so one user cannot stall
// the sweep.
func (c *Coordinator) forEachUser(ctx context.Context, taskType string, task func(ctx context.Context, userID string) error) error {
	userIDs, err := c.users.ListUserIDs(ctx)
	if err != nil {
		return err
	}

	started := c.now()
	sem := make(chan struct{}, c.workerLimit)
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := task(ctx, userID); err != nil {
				slog.Error("Task failed", "type", taskType, "user_id", userID, "error", err)
			}
		}(userID)
	}
	wg.Wait()

	slog.Info("Task completed", "type", taskType, "users", len(userIDs), "duration", time.Since(started))
	return nil
}

func (c *Coordinator) runDailyDigest() {
	ctx := context.Background()
	profiles, err := c.users.ListProfilesBySchedule(ctx, database.ScheduleDaily)
	if err != nil {
		slog.Error("Failed to list daily profiles", "error", err)
		return
	}

	for _, profile := range profiles {
		if !c.dailyDue(ctx, profile) {
			continue
		}
		c.sendDigest(ctx, profile.UserID)
	}
}

func (c *Coordinator) runWeeklyDigest() {
	ctx := context.Background()
	profiles, err := c.users.ListProfilesBySchedule(ctx, database.ScheduleWeekly)
	if err != nil {
		slog.Error("Failed to list weekly profiles", "error", err)
		return
	}

	for _, profile := range profiles {
		if !c.weeklyDue(ctx, profile) {
			continue
		}
		c.sendDigest(ctx, profile.UserID)
	}
}

// dailyDue reports whether a daily digest should go out now: the user's
// local hour matches their preferred hour and nothing was sent since
// midnight UTC of today. A broken timezone means no send.
func (c *Coordinator) dailyDue(ctx context.Context, profile database.Profile) bool {
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		slog.Warn("Invalid profile timezone", "user_id", profile.UserID, "timezone", profile.Timezone)
		return false
	}

	now := c.now().UTC()
	if now.In(loc).Hour() != profile.TimeOfDay {
		return false
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sent, err := c.digests.GetSentDigestSince(ctx, profile.UserID, midnight)
	if err != nil {
		slog.Error("Failed to check sent digests", "user_id", profile.UserID, "error", err)
		return false
	}
	return sent == nil
}

// weeklyDue reports whether a weekly digest should go out today: the UTC
// weekday is among the profile's custom days (Monday when unset) and
// nothing was sent since the start of the current week.
func (c *Coordinator) weeklyDue(ctx context.Context, profile database.Profile) bool {
	now := c.now().UTC()

	days := profile.CustomDays
	if len(days) == 0 {
		days = []int64{int64(time.Monday)}
	}
	today := int64(now.Weekday())
	due := false
	for _, day := range days {
		if day == today {
			due = true
			break
		}
	}
	if !due {
		return false
	}

	weekStart := startOfWeek(now)
	sent, err := c.digests.GetSentDigestSince(ctx, profile.UserID, weekStart)
	if err != nil {
		slog.Error("Failed to check sent digests", "user_id", profile.UserID, "error", err)
		return false
	}
	return sent == nil
}

func (c *Coordinator) sendDigest(ctx context.Context, userID string) {
	if _, err := c.sender.CreateAndSend(ctx, userID); err != nil {
		if errors.Is(err, digest.ErrNoEligibleArticles) {
			slog.Info("Digest skipped, no eligible articles", "user_id", userID)
			return
		}
		slog.Error("Digest delivery failed", "user_id", userID, "error", err)
	}
}

// startOfWeek returns midnight UTC of the most recent Sunday, the start of
// the week the send-once guard is scoped to.
func startOfWeek(now time.Time) time.Time {
	day := now.AddDate(0, 0, -int(now.Weekday()))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}
