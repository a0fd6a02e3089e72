package ai

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/inboxsage/inboxsage/app/database"
)

// ErrProfileNotFound is returned when processing is requested for a user
// without a stored profile. This is a hard failure: preferences drive the
// prompts, so there is no sensible default run.
var ErrProfileNotFound = errors.New("user profile not found")

const (
	minContentLength = 50
	maxTakeaways     = 5

	summaryFallback = "Summary generation failed"
)

var takeawaySplitRe = regexp.MustCompile(`[\n;]`)

// CompletionClient is the slice of the OpenAI client the processor needs.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ CompletionClient = (*openai.Client)(nil)

// Processor enriches unprocessed articles with a summary, key takeaways,
// a relevance score and a sentiment label according to the owning user's
// profile preferences.
type Processor struct {
	client   CompletionClient
	model    string
	articles database.ArticleRepository
	users    database.UserRepository
	now      func() time.Time
}

func NewProcessor(client CompletionClient, model string, articles database.ArticleRepository, users database.UserRepository) *Processor {
	return &Processor{
		client:   client,
		model:    model,
		articles: articles,
		users:    users,
		now:      time.Now,
	}
}

// ProcessArticles runs enrichment for up to maxArticles of the user's
// unprocessed articles. Every attempted article is marked processed whether
// or not enrichment succeeded, so a permanently failing article cannot
// block the queue. Returns the number of successfully enriched articles.
func (p *Processor) ProcessArticles(ctx context.Context, userID string, maxArticles int) (int, error) {
	profile, err := p.users.GetProfile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load profile for user %s: %w", userID, err)
	}
	if profile == nil {
		return 0, ErrProfileNotFound
	}

	articles, err := p.articles.ListUnprocessed(ctx, userID, maxArticles)
	if err != nil {
		return 0, fmt.Errorf("failed to list unprocessed articles: %w", err)
	}

	processed := 0
	for _, article := range articles {
		if err := p.processArticle(ctx, article, profile); err != nil {
			slog.Error("Article processing failed", "article_id", article.ID, "error", err)
			if markErr := p.articles.MarkProcessed(ctx, article.ID); markErr != nil {
				slog.Error("Failed to mark article processed", "article_id", article.ID, "error", markErr)
			}
			continue
		}
		processed++
	}

	slog.Info("Task completed", "type", "ai-processing", "user_id", userID,
		"attempted", len(articles), "processed", processed)
	return processed, nil
}

func (p *Processor) processArticle(ctx context.Context, article database.Article, profile *database.Profile) error {
	content := cmp.Or(article.Content, article.Excerpt, article.Title)
	if len(content) < minContentLength {
		return fmt.Errorf("content too short for article %s", article.ID)
	}

	summary := p.generateSummary(ctx, article.Title, content, profile)
	takeaways := p.extractTakeaways(ctx, content)
	relevance := RelevanceScore(article, p.now())
	sentiment := p.analyzeSentiment(ctx, content)

	if err := p.articles.UpdateProcessingResult(ctx, article.ID, summary, takeaways, relevance, sentiment, article.Tags); err != nil {
		return fmt.Errorf("failed to store processing result: %w", err)
	}
	return nil
}

// generateSummary never fails the pipeline: on API errors it returns a
// fallback string so the article is still marked processed.
func (p *Processor) generateSummary(ctx context.Context, title, content string, profile *database.Profile) string {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   summaryMaxTokens(profile.SummaryDepth),
		Temperature: summaryTemperature(profile.SummaryStyle),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildSummaryPrompt(title, content, profile)},
		},
	})
	if err != nil {
		slog.Warn("Summary generation failed", "error", err)
		return summaryFallback
	}
	if len(resp.Choices) == 0 {
		return summaryFallback
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// extractTakeaways asks for a JSON array; if the model replies with plain
// text instead it splits on newlines and semicolons. API errors yield an
// empty list rather than an error.
func (p *Processor) extractTakeaways(ctx context.Context, content string) []string {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   200,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildTakeawaysPrompt(content)},
		},
	})
	if err != nil {
		slog.Warn("Takeaway extraction failed", "error", err)
		return []string{}
	}
	if len(resp.Choices) == 0 {
		return []string{}
	}
	return parseTakeaways(resp.Choices[0].Message.Content)
}

func parseTakeaways(raw string) []string {
	raw = strings.TrimSpace(raw)

	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		if len(parsed) > maxTakeaways {
			parsed = parsed[:maxTakeaways]
		}
		return parsed
	}

	takeaways := []string{}
	for _, part := range takeawaySplitRe.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		takeaways = append(takeaways, part)
		if len(takeaways) == maxTakeaways {
			break
		}
	}
	return takeaways
}

// analyzeSentiment constrains the model output to a fixed label set,
// defaulting to neutral for anything unexpected.
func (p *Processor) analyzeSentiment(ctx context.Context, content string) string {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   5,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildSentimentPrompt(content)},
		},
	})
	if err != nil {
		slog.Warn("Sentiment analysis failed", "error", err)
		return "neutral"
	}
	if len(resp.Choices) == 0 {
		return "neutral"
	}

	sentiment := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch sentiment {
	case "positive", "negative", "neutral":
		return sentiment
	default:
		return "neutral"
	}
}

// RelevanceScore computes a deterministic score in [0, 1] from reading time,
// recency and tag count. No API call is involved, so scores are comparable
// across articles regardless of model behavior.
func RelevanceScore(article database.Article, now time.Time) float64 {
	score := 0.5

	readingTime := article.ReadingTime
	if readingTime == 0 {
		readingTime = 5
	}
	timeDiff := math.Abs(float64(readingTime) - 5)
	score += math.Max(0, (5-timeDiff)/10)

	days := math.Floor(now.Sub(article.PublishedAt).Hours() / 24)
	score += math.Max(0, (7-days)/14)

	score += 0.05 * float64(len(article.Tags))

	return math.Min(1, math.Max(0, score))
}
