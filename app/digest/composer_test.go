package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/inboxsage/inboxsage/app/database"
)

type fakeUserRepo struct {
	user    *database.User
	profile *database.Profile
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*database.User, error) {
	return f.user, nil
}

func (f *fakeUserRepo) GetUserByAPIKey(ctx context.Context, apiKey string) (*database.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) ListUserIDs(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeUserRepo) GetProfile(ctx context.Context, userID string) (*database.Profile, error) {
	return f.profile, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, profile *database.Profile) error {
	return nil
}

func (f *fakeUserRepo) ListProfilesBySchedule(ctx context.Context, scheduleType string) ([]database.Profile, error) {
	return nil, nil
}

type fakeArticleRepo struct {
	eligible []database.Article
}

func (f *fakeArticleRepo) InsertIgnoreDuplicate(ctx context.Context, article *database.Article) (bool, error) {
	return true, nil
}

func (f *fakeArticleRepo) ListUnprocessed(ctx context.Context, userID string, limit int) ([]database.Article, error) {
	return nil, nil
}

func (f *fakeArticleRepo) ListEligibleForDigest(ctx context.Context, userID string, since time.Time, limit int) ([]database.Article, error) {
	if limit < len(f.eligible) {
		return f.eligible[:limit], nil
	}
	return f.eligible, nil
}

func (f *fakeArticleRepo) MarkProcessed(ctx context.Context, id string) error { return nil }

func (f *fakeArticleRepo) UpdateProcessingResult(ctx context.Context, id string, summary string, takeaways []string, relevance float64, sentiment string, tags []string) error {
	return nil
}

func (f *fakeArticleRepo) CountBySource(ctx context.Context, sourceID string) (int, error) {
	return 0, nil
}

type fakeDigestRepo struct {
	inserted    *database.Digest
	items       []database.DigestItem
	sentAt      *time.Time
	sentEmailID string
	emailError  string
	markedSent  bool
	errorSet    bool
}

func (f *fakeDigestRepo) InsertDigest(ctx context.Context, digest *database.Digest, items []database.DigestItem) error {
	f.inserted = digest
	f.items = items
	return nil
}

func (f *fakeDigestRepo) GetDigest(ctx context.Context, id string) (*database.Digest, error) {
	return f.inserted, nil
}

func (f *fakeDigestRepo) GetDigestItems(ctx context.Context, digestID string) ([]database.DigestItem, error) {
	return f.items, nil
}

func (f *fakeDigestRepo) GetSentDigestSince(ctx context.Context, userID string, since time.Time) (*database.Digest, error) {
	return nil, nil
}

func (f *fakeDigestRepo) MarkDigestSent(ctx context.Context, id string, sentAt time.Time, emailID string) error {
	f.markedSent = true
	f.sentAt = &sentAt
	f.sentEmailID = emailID
	return nil
}

func (f *fakeDigestRepo) SetDigestEmailError(ctx context.Context, id, emailError string) error {
	f.errorSet = true
	f.emailError = emailError
	return nil
}

func (f *fakeDigestRepo) ListDigests(ctx context.Context, userID string, limit int) ([]database.Digest, error) {
	return nil, nil
}

type fakeMailer struct {
	failFor   map[string]bool
	delivered []string
}

func (f *fakeMailer) SendDigest(ctx context.Context, recipient string, digest *database.Digest, articles []database.Article, profile *database.Profile) (string, error) {
	if f.failFor[recipient] {
		return "", errors.New("provider rejected message")
	}
	f.delivered = append(f.delivered, recipient)
	return "email-" + recipient, nil
}

func (f *fakeMailer) SendTest(ctx context.Context, recipient string) (string, error) {
	if f.failFor[recipient] {
		return "", errors.New("provider rejected message")
	}
	f.delivered = append(f.delivered, recipient)
	return "test-" + recipient, nil
}

func fixedChooser(n int) int { return 0 }

func eligibleArticles(count int) []database.Article {
	articles := make([]database.Article, count)
	for i := range articles {
		summary := fmt.Sprintf("Summary of article %d with enough words to be useful.", i)
		articles[i] = database.Article{
			ID:          fmt.Sprintf("article-%d", i),
			Title:       fmt.Sprintf("Article %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			Summary:     &summary,
			PublishedAt: time.Now().Add(-time.Duration(i) * time.Hour),
			IsProcessed: true,
			IsIncluded:  true,
		}
	}
	return articles
}

func testProfile() *database.Profile {
	return &database.Profile{
		ID:                "profile-1",
		UserID:            "user-1",
		DigestEmails:      []string{"reader@example.com"},
		ScheduleType:      database.ScheduleDaily,
		MaxItemsPerDigest: 5,
	}
}

func newTestGenerator(t *testing.T, users *fakeUserRepo, articles *fakeArticleRepo, digests *fakeDigestRepo, mailer *fakeMailer) *Generator {
	t.Helper()
	templates, err := LoadTemplates("")
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}
	generator := NewGenerator(users, articles, digests, mailer, templates)
	generator.chooser = fixedChooser
	generator.now = func() time.Time { return time.Date(2023, 7, 10, 9, 0, 0, 0, time.UTC) }
	return generator
}

func TestCreateAndSendTruncatesAndHighlights(t *testing.T) {
	users := &fakeUserRepo{profile: testProfile()}
	articles := &fakeArticleRepo{eligible: eligibleArticles(12)}
	digests := &fakeDigestRepo{}
	mailer := &fakeMailer{}
	generator := newTestGenerator(t, users, articles, digests, mailer)

	digest, err := generator.CreateAndSend(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(digests.items) != 5 {
		t.Fatalf("Expected 5 digest items, got %d", len(digests.items))
	}
	for i, item := range digests.items {
		if item.ItemOrder != i {
			t.Errorf("Item %d: expected order %d, got %d", i, i, item.ItemOrder)
		}
		wantHighlight := i < 3
		if item.IsHighlight != wantHighlight {
			t.Errorf("Item %d: expected highlight %v, got %v", i, wantHighlight, item.IsHighlight)
		}
	}
	if len(digest.Highlights) != 3 {
		t.Errorf("Expected 3 highlight lines, got %d", len(digest.Highlights))
	}
	if !strings.HasPrefix(digest.Highlights[0], "Article 0 - ") || !strings.HasSuffix(digest.Highlights[0], "...") {
		t.Errorf("Unexpected highlight line: %q", digest.Highlights[0])
	}
	if !digest.EmailSent {
		t.Error("Expected digest marked sent")
	}
	if digest.EmailID != "email-reader@example.com" {
		t.Errorf("Expected first provider message ID recorded, got %q", digest.EmailID)
	}
	if !digests.markedSent {
		t.Error("Expected MarkDigestSent called")
	}
}

func TestCreateAndSendNoEligibleArticles(t *testing.T) {
	users := &fakeUserRepo{profile: testProfile()}
	generator := newTestGenerator(t, users, &fakeArticleRepo{}, &fakeDigestRepo{}, &fakeMailer{})

	_, err := generator.CreateAndSend(context.Background(), "user-1")
	if !errors.Is(err, ErrNoEligibleArticles) {
		t.Errorf("Expected ErrNoEligibleArticles, got: %v", err)
	}
}

func TestCreateAndSendNoProfile(t *testing.T) {
	generator := newTestGenerator(t, &fakeUserRepo{}, &fakeArticleRepo{eligible: eligibleArticles(3)}, &fakeDigestRepo{}, &fakeMailer{})

	_, err := generator.CreateAndSend(context.Background(), "user-1")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got: %v", err)
	}
}

func TestCreateAndSendPartialFailure(t *testing.T) {
	profile := testProfile()
	profile.DigestEmails = []string{"first@example.com", "second@example.com"}
	users := &fakeUserRepo{profile: profile}
	articles := &fakeArticleRepo{eligible: eligibleArticles(3)}
	digests := &fakeDigestRepo{}
	mailer := &fakeMailer{failFor: map[string]bool{"second@example.com": true}}
	generator := newTestGenerator(t, users, articles, digests, mailer)

	digest, err := generator.CreateAndSend(context.Background(), "user-1")
	if err == nil {
		t.Fatal("Expected error on partial delivery failure")
	}
	if digest == nil {
		t.Fatal("Expected digest returned alongside the error")
	}
	if digest.EmailSent {
		t.Error("Expected emailSent to stay false")
	}
	if !digests.errorSet || !strings.Contains(digests.emailError, "second@example.com") {
		t.Errorf("Expected email error recorded, got %q", digests.emailError)
	}
	if digests.markedSent {
		t.Error("Expected digest not marked sent")
	}
	if len(mailer.delivered) != 1 || mailer.delivered[0] != "first@example.com" {
		t.Errorf("Expected successful delivery not rolled back, got %v", mailer.delivered)
	}
}

func TestHighlightLineKeepsValidUTF8(t *testing.T) {
	summary := strings.Repeat("é", 150)
	article := database.Article{Title: "Accents", Summary: &summary}

	line := highlightLine(article)
	if !utf8.ValidString(line) {
		t.Errorf("Expected valid UTF-8 highlight, got %q", line)
	}
	if !strings.HasSuffix(line, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", line)
	}
	want := "Accents - " + strings.Repeat("é", 100) + "..."
	if line != want {
		t.Errorf("Expected truncation at 100 runes, got %q", line)
	}
}

func TestDigestTitleBySchedule(t *testing.T) {
	now := time.Date(2023, 7, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		scheduleType string
		expected     string
	}{
		{database.ScheduleDaily, "Daily Digest - July 10, 2023"},
		{database.ScheduleWeekly, "Weekly Digest - Week of July 10, 2023"},
		{database.ScheduleCustom, "InboxSage Digest - July 10, 2023"},
	}

	for _, tt := range tests {
		if got := digestTitle(tt.scheduleType, now); got != tt.expected {
			t.Errorf("Schedule %s: expected %q, got %q", tt.scheduleType, tt.expected, got)
		}
	}
}

func TestPreviewDoesNotPersistOrSend(t *testing.T) {
	users := &fakeUserRepo{profile: testProfile()}
	digests := &fakeDigestRepo{}
	mailer := &fakeMailer{}
	generator := newTestGenerator(t, users, &fakeArticleRepo{eligible: eligibleArticles(4)}, digests, mailer)

	digest, articles, err := generator.Preview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(articles) != 4 {
		t.Errorf("Expected 4 articles, got %d", len(articles))
	}
	if digest.Introduction == "" || digest.Conclusion == "" {
		t.Error("Expected intro and conclusion populated")
	}
	if digests.inserted != nil {
		t.Error("Expected preview not to persist a digest")
	}
	if len(mailer.delivered) != 0 {
		t.Error("Expected preview not to send email")
	}
}

func TestSendTestGoesToAccountEmailOnly(t *testing.T) {
	profile := testProfile()
	profile.DigestEmails = []string{"reader@example.com", "second@example.com"}
	users := &fakeUserRepo{
		user:    &database.User{ID: "user-1", Email: "owner@example.com"},
		profile: profile,
	}
	mailer := &fakeMailer{}
	generator := newTestGenerator(t, users, &fakeArticleRepo{}, &fakeDigestRepo{}, mailer)

	if err := generator.SendTest(context.Background(), "user-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(mailer.delivered) != 1 || mailer.delivered[0] != "owner@example.com" {
		t.Errorf("Expected exactly one test email to the account address, got %v", mailer.delivered)
	}
}

func TestSendTestUnknownUser(t *testing.T) {
	generator := newTestGenerator(t, &fakeUserRepo{}, &fakeArticleRepo{}, &fakeDigestRepo{}, &fakeMailer{})

	if err := generator.SendTest(context.Background(), "user-1"); err == nil {
		t.Error("Expected error for unknown user")
	}
}
