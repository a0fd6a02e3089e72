package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/inboxsage/inboxsage/app/database"
)

// ErrNoEligibleArticles is returned when a user has no processed, included,
// summarized articles within the eligibility window.
var ErrNoEligibleArticles = errors.New("no eligible articles for digest")

// ErrProfileNotFound is returned when composing is requested for a user
// without a stored profile.
var ErrProfileNotFound = errors.New("user profile not found")

const (
	eligibilityWindow   = 7 * 24 * time.Hour
	highlightCount      = 3
	highlightSummaryMax = 100
	defaultMaxItems     = 10
)

// Mailer delivers a composed digest to a single recipient and returns the
// provider message ID.
type Mailer interface {
	SendDigest(ctx context.Context, recipient string, digest *database.Digest, articles []database.Article, profile *database.Profile) (string, error)
	SendTest(ctx context.Context, recipient string) (string, error)
}

// Chooser picks an index in [0, n). The default is rand.Intn; tests inject a
// fixed chooser for deterministic template selection.
type Chooser func(n int) int

// Generator composes digests from eligible articles and hands them to the
// mailer. A digest is a snapshot: its items and their order never change
// after insertion.
type Generator struct {
	users     database.UserRepository
	articles  database.ArticleRepository
	digests   database.DigestRepository
	mailer    Mailer
	templates *Templates
	chooser   Chooser
	now       func() time.Time
}

func NewGenerator(users database.UserRepository, articles database.ArticleRepository, digests database.DigestRepository, mailer Mailer, templates *Templates) *Generator {
	return &Generator{
		users:     users,
		articles:  articles,
		digests:   digests,
		mailer:    mailer,
		templates: templates,
		chooser:   rand.Intn,
		now:       time.Now,
	}
}

// Preview composes a digest without persisting or sending anything.
func (g *Generator) Preview(ctx context.Context, userID string) (*database.Digest, []database.Article, error) {
	digest, articles, _, err := g.compose(ctx, userID)
	return digest, articles, err
}

// CreateAndSend composes a digest, persists it with its items, then sends
// one email per configured recipient. Any send failure leaves the digest
// unsent with the error recorded; emails already delivered to other
// recipients are not recalled.
func (g *Generator) CreateAndSend(ctx context.Context, userID string) (*database.Digest, error) {
	digest, articles, profile, err := g.compose(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := lo.Map(articles, func(article database.Article, i int) database.DigestItem {
		return database.DigestItem{
			ID:          uuid.NewString(),
			DigestID:    digest.ID,
			ArticleID:   article.ID,
			ItemOrder:   i,
			IsHighlight: i < highlightCount,
		}
	})
	if err := g.digests.InsertDigest(ctx, digest, items); err != nil {
		return nil, fmt.Errorf("failed to persist digest: %w", err)
	}

	recipients := profile.DigestEmails
	if len(recipients) == 0 {
		user, err := g.users.GetUser(ctx, userID)
		if err != nil || user == nil {
			return nil, fmt.Errorf("no recipient emails configured for user %s", userID)
		}
		recipients = []string{user.Email}
	}

	var firstEmailID string
	var sendErrs []string
	for _, recipient := range recipients {
		emailID, err := g.mailer.SendDigest(ctx, recipient, digest, articles, profile)
		if err != nil {
			slog.Error("Digest email failed", "digest_id", digest.ID, "recipient", recipient, "error", err)
			sendErrs = append(sendErrs, fmt.Sprintf("%s: %v", recipient, err))
			continue
		}
		if firstEmailID == "" {
			firstEmailID = emailID
		}
	}

	if len(sendErrs) > 0 {
		emailError := strings.Join(sendErrs, "; ")
		if err := g.digests.SetDigestEmailError(ctx, digest.ID, emailError); err != nil {
			slog.Error("Failed to record digest email error", "digest_id", digest.ID, "error", err)
		}
		digest.EmailError = emailError
		return digest, fmt.Errorf("digest delivery incomplete: %s", emailError)
	}

	sentAt := g.now().UTC()
	if err := g.digests.MarkDigestSent(ctx, digest.ID, sentAt, firstEmailID); err != nil {
		return digest, fmt.Errorf("failed to mark digest sent: %w", err)
	}
	digest.EmailSent = true
	digest.SentAt = &sentAt
	digest.EmailID = firstEmailID

	slog.Info("Task completed", "type", "digest", "user_id", userID,
		"digest_id", digest.ID, "articles", len(articles), "recipients", len(recipients))
	return digest, nil
}

// SendTest delivers one connectivity-test email to the caller's account
// address. The digest-recipient list is only used for real digests.
func (g *Generator) SendTest(ctx context.Context, userID string) error {
	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	if _, err := g.mailer.SendTest(ctx, user.Email); err != nil {
		return fmt.Errorf("test email to %s failed: %w", user.Email, err)
	}
	return nil
}

func (g *Generator) compose(ctx context.Context, userID string) (*database.Digest, []database.Article, *database.Profile, error) {
	profile, err := g.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load profile for user %s: %w", userID, err)
	}
	if profile == nil {
		return nil, nil, nil, ErrProfileNotFound
	}

	maxItems := profile.MaxItemsPerDigest
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	now := g.now().UTC()
	since := now.Add(-eligibilityWindow)
	articles, err := g.articles.ListEligibleForDigest(ctx, userID, since, maxItems)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list eligible articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil, nil, ErrNoEligibleArticles
	}

	highlights := lo.Map(articles[:min(highlightCount, len(articles))], func(article database.Article, _ int) string {
		return highlightLine(article)
	})

	digest := &database.Digest{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        digestTitle(profile.ScheduleType, now),
		Introduction: fmt.Sprintf(g.templates.Intros[g.chooser(len(g.templates.Intros))], len(articles)),
		Conclusion:   g.templates.Conclusions[g.chooser(len(g.templates.Conclusions))],
		Highlights:   highlights,
		ScheduledFor: now,
	}
	return digest, articles, profile, nil
}

func digestTitle(scheduleType string, now time.Time) string {
	date := now.Format("January 2, 2006")
	switch scheduleType {
	case database.ScheduleDaily:
		return "Daily Digest - " + date
	case database.ScheduleWeekly:
		return "Weekly Digest - Week of " + date
	default:
		return "InboxSage Digest - " + date
	}
}

func highlightLine(article database.Article) string {
	summary := ""
	if article.Summary != nil {
		summary = *article.Summary
	}
	// Truncate on a rune boundary so multi-byte text stays valid UTF-8.
	if utf8.RuneCountInString(summary) > highlightSummaryMax {
		summary = string([]rune(summary)[:highlightSummaryMax])
	}
	return fmt.Sprintf("%s - %s...", article.Title, summary)
}
