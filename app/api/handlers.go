package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/inboxsage/inboxsage/app/database"
	"github.com/inboxsage/inboxsage/app/digest"
	"github.com/inboxsage/inboxsage/app/feed"
)

const (
	defaultProcessBatchSize   = 10
	defaultDigestHistoryLimit = 20
)

func userID(c *gin.Context) string {
	return c.GetString("userID")
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled": h.scheduler.Enabled(),
		"status":  h.scheduler.Status(),
	})
}

func (h *Handler) PostSchedulerAction(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	switch req.Action {
	case "trigger-content":
		if err := h.scheduler.TriggerContentFetch(c.Request.Context()); err != nil {
			slog.Error("Content fetch trigger failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Content fetch failed"})
			return
		}
	case "trigger-ai":
		if err := h.scheduler.TriggerAIProcessing(c.Request.Context()); err != nil {
			slog.Error("AI processing trigger failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "AI processing failed"})
			return
		}
	case "stop-all":
		h.scheduler.StopAll()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action: " + req.Action})
		return
	}

	c.JSON(http.StatusOK, gin.H{"action": req.Action, "status": h.scheduler.Status()})
}

func (h *Handler) FetchContent(c *gin.Context) {
	var req struct {
		SourceID string `json:"sourceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.SourceID != "" {
		if err := h.content.FetchUserSource(c.Request.Context(), req.SourceID, userID(c)); err != nil {
			if errors.Is(err, feed.ErrSourceNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
				return
			}
			slog.Error("Source fetch failed", "source_id", req.SourceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Source fetch failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"fetched": req.SourceID})
		return
	}

	if err := h.content.FetchAllForUser(c.Request.Context(), userID(c)); err != nil {
		slog.Error("Content fetch failed", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Content fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fetched": "all"})
}

func (h *Handler) ProcessContent(c *gin.Context) {
	var req struct {
		MaxArticles int `json:"maxArticles"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.MaxArticles <= 0 {
		req.MaxArticles = defaultProcessBatchSize
	}

	processed, err := h.processing.ProcessArticles(c.Request.Context(), userID(c), req.MaxArticles)
	if err != nil {
		slog.Error("Article processing failed", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Article processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

func (h *Handler) PreviewDigest(c *gin.Context) {
	preview, articles, err := h.digests.Preview(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, digest.ErrNoEligibleArticles) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No content available for digest"})
			return
		}
		slog.Error("Digest preview failed", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Digest preview failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":        preview.Title,
		"introduction": preview.Introduction,
		"conclusion":   preview.Conclusion,
		"highlights":   preview.Highlights,
		"items": lo.Map(articles, func(article database.Article, _ int) gin.H {
			return articleJSON(article)
		}),
	})
}

func (h *Handler) SendDigest(c *gin.Context) {
	sent, err := h.digests.CreateAndSend(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, digest.ErrNoEligibleArticles) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No content available for digest"})
			return
		}
		slog.Error("Digest delivery failed", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Digest delivery failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"digest_id":  sent.ID,
		"title":      sent.Title,
		"email_sent": sent.EmailSent,
		"email_id":   sent.EmailID,
	})
}

func (h *Handler) SendTestEmail(c *gin.Context) {
	if err := h.digests.SendTest(c.Request.Context(), userID(c)); err != nil {
		slog.Error("Test email failed", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Test email failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sources.ListSources(c.Request.Context(), userID(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": lo.Map(sources, func(source database.Source, _ int) gin.H {
			return sourceJSON(source)
		}),
	})
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		URL         string  `json:"url" binding:"required"`
		Type        string  `json:"type" binding:"required"`
		TopicID     *string `json:"topicId"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, url and type are required"})
		return
	}

	switch req.Type {
	case database.SourceTypeRSS, database.SourceTypeNewsletter, database.SourceTypeTwitter,
		database.SourceTypeMedium, database.SourceTypeCustomURL:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source type: " + req.Type})
		return
	}

	source := &database.Source{
		ID:          uuid.NewString(),
		UserID:      userID(c),
		TopicID:     req.TopicID,
		Name:        req.Name,
		URL:         req.URL,
		Type:        req.Type,
		Description: req.Description,
		IsActive:    true,
	}
	if err := h.sources.InsertSource(c.Request.Context(), source); err != nil {
		slog.Error("Database error", "operation", "insert_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create source"})
		return
	}
	c.JSON(http.StatusCreated, sourceJSON(*source))
}

func (h *Handler) DeleteSource(c *gin.Context) {
	id := c.Param("id")
	source, err := h.sources.GetUserSource(c.Request.Context(), id, userID(c))
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	if err := h.sources.DeleteSource(c.Request.Context(), id, userID(c)); err != nil {
		slog.Error("Database error", "operation", "delete_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.topics.ListTopics(c.Request.Context(), userID(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_topics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list topics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": lo.Map(topics, func(topic database.Topic, _ int) gin.H {
			return gin.H{
				"id":          topic.ID,
				"name":        topic.Name,
				"description": topic.Description,
				"color":       topic.Color,
			}
		}),
	})
}

func (h *Handler) CreateTopic(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Color       string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	topic := &database.Topic{
		ID:          uuid.NewString(),
		UserID:      userID(c),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}
	if err := h.topics.InsertTopic(c.Request.Context(), topic); err != nil {
		slog.Error("Database error", "operation", "insert_topic", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create topic"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": topic.ID, "name": topic.Name})
}

func (h *Handler) DeleteTopic(c *gin.Context) {
	if err := h.topics.DeleteTopic(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		slog.Error("Database error", "operation", "delete_topic", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete topic"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDigests returns the caller's digest history. Each digest is reported
// with the item order and highlight flags fixed at composition time.
func (h *Handler) ListDigests(c *gin.Context) {
	limit := defaultDigestHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	digests, err := h.digestStore.ListDigests(c.Request.Context(), userID(c), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_digests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list digests"})
		return
	}

	history := make([]gin.H, 0, len(digests))
	for _, entry := range digests {
		items, err := h.digestStore.GetDigestItems(c.Request.Context(), entry.ID)
		if err != nil {
			slog.Error("Database error", "operation", "get_digest_items", "digest_id", entry.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load digest items"})
			return
		}
		history = append(history, digestJSON(&entry, items))
	}
	c.JSON(http.StatusOK, gin.H{"digests": history})
}

// GetDigest returns one digest from the caller's history with its items.
func (h *Handler) GetDigest(c *gin.Context) {
	entry, err := h.digestStore.GetDigest(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("Database error", "operation", "get_digest", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load digest"})
		return
	}
	if entry == nil || entry.UserID != userID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Digest not found"})
		return
	}

	items, err := h.digestStore.GetDigestItems(c.Request.Context(), entry.ID)
	if err != nil {
		slog.Error("Database error", "operation", "get_digest_items", "digest_id", entry.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load digest items"})
		return
	}
	c.JSON(http.StatusOK, digestJSON(entry, items))
}

func digestJSON(entry *database.Digest, items []database.DigestItem) gin.H {
	return gin.H{
		"id":           entry.ID,
		"title":        entry.Title,
		"generated_at": entry.GeneratedAt,
		"sent_at":      entry.SentAt,
		"email_sent":   entry.EmailSent,
		"email_error":  entry.EmailError,
		"items": lo.Map(items, func(item database.DigestItem, _ int) gin.H {
			return gin.H{
				"article_id":   item.ArticleID,
				"order":        item.ItemOrder,
				"is_highlight": item.IsHighlight,
			}
		}),
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		slog.Error("Database error", "operation", "get_profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, profileJSON(profile))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		slog.Error("Database error", "operation", "get_profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	var req struct {
		DigestEmails       *[]string `json:"digestEmails"`
		ScheduleType       *string   `json:"scheduleType"`
		CustomDays         *[]int64  `json:"customDays"`
		TimeOfDay          *int      `json:"timeOfDay"`
		Timezone           *string   `json:"timezone"`
		SummaryDepth       *string   `json:"summaryDepth"`
		SummaryFormat      *string   `json:"summaryFormat"`
		SummaryStyle       *string   `json:"summaryStyle"`
		LanguagePreference *string   `json:"languagePreference"`
		MaxItemsPerDigest  *int      `json:"maxItemsPerDigest"`
		IncludeImages      *bool     `json:"includeImages"`
		IncludeVideos      *bool     `json:"includeVideos"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.DigestEmails != nil {
		profile.DigestEmails = *req.DigestEmails
	}
	if req.ScheduleType != nil {
		profile.ScheduleType = *req.ScheduleType
	}
	if req.CustomDays != nil {
		profile.CustomDays = *req.CustomDays
	}
	if req.TimeOfDay != nil {
		profile.TimeOfDay = *req.TimeOfDay
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown timezone: " + *req.Timezone})
			return
		}
		profile.Timezone = *req.Timezone
	}
	if req.SummaryDepth != nil {
		profile.SummaryDepth = *req.SummaryDepth
	}
	if req.SummaryFormat != nil {
		profile.SummaryFormat = *req.SummaryFormat
	}
	if req.SummaryStyle != nil {
		profile.SummaryStyle = *req.SummaryStyle
	}
	if req.LanguagePreference != nil {
		profile.LanguagePreference = *req.LanguagePreference
	}
	if req.MaxItemsPerDigest != nil {
		profile.MaxItemsPerDigest = *req.MaxItemsPerDigest
	}
	if req.IncludeImages != nil {
		profile.IncludeImages = *req.IncludeImages
	}
	if req.IncludeVideos != nil {
		profile.IncludeVideos = *req.IncludeVideos
	}

	if err := h.users.UpdateProfile(c.Request.Context(), profile); err != nil {
		slog.Error("Database error", "operation", "update_profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, profileJSON(profile))
}

func sourceJSON(source database.Source) gin.H {
	return gin.H{
		"id":           source.ID,
		"name":         source.Name,
		"url":          source.URL,
		"type":         source.Type,
		"is_active":    source.IsActive,
		"last_fetched": source.LastFetched,
		"fetch_errors": source.FetchErrors,
	}
}

func articleJSON(article database.Article) gin.H {
	return gin.H{
		"id":              article.ID,
		"title":           article.Title,
		"url":             article.URL,
		"summary":         article.Summary,
		"key_takeaways":   article.KeyTakeaways,
		"relevance_score": article.RelevanceScore,
		"sentiment":       article.Sentiment,
		"published_at":    article.PublishedAt,
	}
}

func profileJSON(profile *database.Profile) gin.H {
	return gin.H{
		"digest_emails":        profile.DigestEmails,
		"schedule_type":        profile.ScheduleType,
		"custom_days":          profile.CustomDays,
		"time_of_day":          profile.TimeOfDay,
		"timezone":             profile.Timezone,
		"summary_depth":        profile.SummaryDepth,
		"summary_format":       profile.SummaryFormat,
		"summary_style":        profile.SummaryStyle,
		"language_preference":  profile.LanguagePreference,
		"max_items_per_digest": profile.MaxItemsPerDigest,
		"include_images":       profile.IncludeImages,
		"include_videos":       profile.IncludeVideos,
	}
}
