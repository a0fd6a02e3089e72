package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/inboxsage/inboxsage/app/database"
)

type fakeUserRepo struct {
	userIDs  []string
	profiles []database.Profile
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*database.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (*database.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	return f.userIDs, nil
}

func (f *fakeUserRepo) GetProfile(ctx context.Context, userID string) (*database.Profile, error) {
	return nil, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, profile *database.Profile) error {
	return nil
}

func (f *fakeUserRepo) ListProfilesBySchedule(ctx context.Context, scheduleType string) ([]database.Profile, error) {
	return f.profiles, nil
}

type fakeDigestRepo struct {
	sent *database.Digest
}

func (f *fakeDigestRepo) InsertDigest(ctx context.Context, digest *database.Digest, items []database.DigestItem) error {
	return nil
}

func (f *fakeDigestRepo) GetDigest(ctx context.Context, id string) (*database.Digest, error) {
	return nil, nil
}

func (f *fakeDigestRepo) GetDigestItems(ctx context.Context, digestID string) ([]database.DigestItem, error) {
	return nil, nil
}

func (f *fakeDigestRepo) GetSentDigestSince(ctx context.Context, userID string, since time.Time) (*database.Digest, error) {
	if f.sent != nil && f.sent.SentAt != nil && !f.sent.SentAt.Before(since) {
		return f.sent, nil
	}
	return nil, nil
}

func (f *fakeDigestRepo) MarkDigestSent(ctx context.Context, id string, sentAt time.Time, emailID string) error {
	return nil
}

func (f *fakeDigestRepo) SetDigestEmailError(ctx context.Context, id, emailError string) error {
	return nil
}

func (f *fakeDigestRepo) ListDigests(ctx context.Context, userID string, limit int) ([]database.Digest, error) {
	return nil, nil
}

type fakeFetcher struct {
	calls []string
}

func (f *fakeFetcher) FetchAllForUser(ctx context.Context, userID string) error {
	f.calls = append(f.calls, userID)
	return nil
}

type fakeProcessor struct {
	calls []string
	limit int
}

func (f *fakeProcessor) ProcessArticles(ctx context.Context, userID string, maxArticles int) (int, error) {
	f.calls = append(f.calls, userID)
	f.limit = maxArticles
	return 0, nil
}

type fakeSender struct {
	calls []string
}

func (f *fakeSender) CreateAndSend(ctx context.Context, userID string) (*database.Digest, error) {
	f.calls = append(f.calls, userID)
	return &database.Digest{UserID: userID}, nil
}

func newTestCoordinator(users *fakeUserRepo, digests *fakeDigestRepo, fetcher *fakeFetcher, processor *fakeProcessor, sender *fakeSender) *Coordinator {
	// workerLimit 1 keeps fan-out sequential so the fakes need no locking
	return NewCoordinator(users, digests, fetcher, processor, sender, 1, true)
}

func TestStartAndStatus(t *testing.T) {
	coordinator := newTestCoordinator(&fakeUserRepo{}, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, &fakeSender{})
	defer coordinator.StopAll()

	if err := coordinator.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	status := coordinator.Status()
	for _, name := range []string{JobContentFetch, JobAIProcessing, JobDailyDigest, JobWeeklyDigest} {
		if !status[name] {
			t.Errorf("Expected job %s registered", name)
		}
	}
}

func TestStopAllIdempotent(t *testing.T) {
	coordinator := newTestCoordinator(&fakeUserRepo{}, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, &fakeSender{})

	if err := coordinator.Start(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	coordinator.StopAll()
	coordinator.StopAll()

	for name, registered := range coordinator.Status() {
		if registered {
			t.Errorf("Expected job %s removed after StopAll", name)
		}
	}
}

func TestTriggerContentFetchFansOut(t *testing.T) {
	users := &fakeUserRepo{userIDs: []string{"u1", "u2", "u3"}}
	fetcher := &fakeFetcher{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, fetcher, &fakeProcessor{}, &fakeSender{})

	if err := coordinator.TriggerContentFetch(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(fetcher.calls) != 3 {
		t.Errorf("Expected fetch for 3 users, got %d", len(fetcher.calls))
	}
}

func TestTriggerAIProcessingBatchSize(t *testing.T) {
	users := &fakeUserRepo{userIDs: []string{"u1"}}
	processor := &fakeProcessor{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, &fakeFetcher{}, processor, &fakeSender{})

	if err := coordinator.TriggerAIProcessing(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if processor.limit != aiProcessingBatchSize {
		t.Errorf("Expected batch size %d, got %d", aiProcessingBatchSize, processor.limit)
	}
}

func dailyProfile(timezone string, timeOfDay int) database.Profile {
	return database.Profile{
		UserID:       "user-1",
		ScheduleType: database.ScheduleDaily,
		Timezone:     timezone,
		TimeOfDay:    timeOfDay,
	}
}

func TestDailyDigestSentAtPreferredHour(t *testing.T) {
	users := &fakeUserRepo{profiles: []database.Profile{dailyProfile("UTC", 9)}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, sender)
	coordinator.now = func() time.Time { return time.Date(2023, 7, 10, 9, 0, 0, 0, time.UTC) }

	coordinator.runDailyDigest()
	if len(sender.calls) != 1 {
		t.Errorf("Expected 1 digest sent, got %d", len(sender.calls))
	}
}

func TestDailyDigestSkipsHourMismatch(t *testing.T) {
	users := &fakeUserRepo{profiles: []database.Profile{dailyProfile("UTC", 9)}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, sender)
	coordinator.now = func() time.Time { return time.Date(2023, 7, 10, 14, 0, 0, 0, time.UTC) }

	coordinator.runDailyDigest()
	if len(sender.calls) != 0 {
		t.Errorf("Expected no digest outside preferred hour, got %d", len(sender.calls))
	}
}

func TestDailyDigestGuardAgainstDoubleSend(t *testing.T) {
	sentAt := time.Date(2023, 7, 10, 8, 5, 0, 0, time.UTC)
	digests := &fakeDigestRepo{sent: &database.Digest{UserID: "user-1", EmailSent: true, SentAt: &sentAt}}
	users := &fakeUserRepo{profiles: []database.Profile{dailyProfile("UTC", 9)}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, digests, &fakeFetcher{}, &fakeProcessor{}, sender)
	coordinator.now = func() time.Time { return time.Date(2023, 7, 10, 9, 0, 0, 0, time.UTC) }

	coordinator.runDailyDigest()
	if len(sender.calls) != 0 {
		t.Errorf("Expected no second digest on the same day, got %d", len(sender.calls))
	}
}

func TestDailyDigestUsesProfileTimezone(t *testing.T) {
	// 9am in New York is 13:00 or 14:00 UTC depending on DST; July is EDT.
	users := &fakeUserRepo{profiles: []database.Profile{dailyProfile("America/New_York", 9)}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, sender)
	coordinator.now = func() time.Time { return time.Date(2023, 7, 10, 13, 0, 0, 0, time.UTC) }

	coordinator.runDailyDigest()
	if len(sender.calls) != 1 {
		t.Errorf("Expected digest at user-local hour, got %d sends", len(sender.calls))
	}
}

func TestDailyDigestSkipsInvalidTimezone(t *testing.T) {
	users := &fakeUserRepo{profiles: []database.Profile{dailyProfile("Not/AZone", 9)}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, sender)

	coordinator.runDailyDigest()
	if len(sender.calls) != 0 {
		t.Errorf("Expected no send for invalid timezone, got %d", len(sender.calls))
	}
}

func TestWeeklyDigestDefaultsToMonday(t *testing.T) {
	users := &fakeUserRepo{profiles: []database.Profile{{UserID: "user-1", ScheduleType: database.ScheduleWeekly}}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, &fakeDigestRepo{}, &fakeFetcher{}, &fakeProcessor{}, sender)

	// 2023-07-10 is a Monday
	coordinator.now = func() time.Time { return time.Date(2023, 7, 10, 9, 0, 0, 0, time.UTC) }
	coordinator.runWeeklyDigest()
	if len(sender.calls) != 1 {
		t.Errorf("Expected weekly digest on Monday by default, got %d sends", len(sender.calls))
	}

	sender.calls = nil
	coordinator.now = func() time.Time { return time.Date(2023, 7, 11, 9, 0, 0, 0, time.UTC) }
	coordinator.runWeeklyDigest()
	if len(sender.calls) != 0 {
		t.Errorf("Expected no weekly digest on Tuesday, got %d sends", len(sender.calls))
	}
}

func TestWeeklyDigestGuardAgainstDoubleSend(t *testing.T) {
	sentAt := time.Date(2023, 7, 10, 9, 5, 0, 0, time.UTC)
	digests := &fakeDigestRepo{sent: &database.Digest{UserID: "user-1", EmailSent: true, SentAt: &sentAt}}
	users := &fakeUserRepo{profiles: []database.Profile{
		{UserID: "user-1", ScheduleType: database.ScheduleWeekly, CustomDays: []int64{1, 3}},
	}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, digests, &fakeFetcher{}, &fakeProcessor{}, sender)

	// Wednesday of the same week, digest already went out Monday
	coordinator.now = func() time.Time { return time.Date(2023, 7, 12, 9, 0, 0, 0, time.UTC) }
	coordinator.runWeeklyDigest()
	if len(sender.calls) != 0 {
		t.Errorf("Expected no second digest within the week, got %d", len(sender.calls))
	}
}

func TestWeeklyDigestSundayThenMondaySendsOnce(t *testing.T) {
	sentAt := time.Date(2023, 7, 9, 9, 5, 0, 0, time.UTC)
	digests := &fakeDigestRepo{sent: &database.Digest{UserID: "user-1", EmailSent: true, SentAt: &sentAt}}
	users := &fakeUserRepo{profiles: []database.Profile{
		{UserID: "user-1", ScheduleType: database.ScheduleWeekly, CustomDays: []int64{0, 1}},
	}}
	sender := &fakeSender{}
	coordinator := newTestCoordinator(users, digests, &fakeFetcher{}, &fakeProcessor{}, sender)

	// Monday after a Sunday send falls in the same week
	coordinator.now = func() time.Time { return time.Date(2023, 7, 10, 9, 0, 0, 0, time.UTC) }
	coordinator.runWeeklyDigest()
	if len(sender.calls) != 0 {
		t.Errorf("Expected no Monday digest after Sunday send, got %d", len(sender.calls))
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		now      time.Time
		expected time.Time
	}{
		// 2023-07-09 is a Sunday
		{time.Date(2023, 7, 12, 15, 0, 0, 0, time.UTC), time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC), time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 7, 15, 23, 0, 0, 0, time.UTC), time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 7, 16, 8, 0, 0, 0, time.UTC), time.Date(2023, 7, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := startOfWeek(tt.now); !got.Equal(tt.expected) {
			t.Errorf("startOfWeek(%v): expected %v, got %v", tt.now, tt.expected, got)
		}
	}
}
