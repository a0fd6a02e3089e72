package database

import (
	"time"
)

// Source types. Only feed-style sources (RSS, MEDIUM) are fetched; the
// remaining types are accepted but produce no entries.
const (
	SourceTypeRSS        = "RSS"
	SourceTypeNewsletter = "NEWSLETTER"
	SourceTypeTwitter    = "TWITTER"
	SourceTypeMedium     = "MEDIUM"
	SourceTypeCustomURL  = "CUSTOM_URL"
)

// Digest schedule types.
const (
	ScheduleDaily  = "DAILY"
	ScheduleWeekly = "WEEKLY"
	ScheduleCustom = "CUSTOM"
)

type User struct {
	ID        string
	Email     string
	Name      string
	APIKey    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile holds a user's digest and summarization preferences. Every user
// has exactly one profile after creation.
type Profile struct {
	ID                 string
	UserID             string
	DigestEmails       []string
	ScheduleType       string
	CustomDays         []int64 // 0 = Sunday .. 6 = Saturday
	TimeOfDay          int     // local hour 0-23 for daily digests
	Timezone           string
	SummaryDepth       string // BASIC, DEEP, EXTRACTIVE
	SummaryFormat      string // BULLETS, PARAGRAPHS, MIXED
	SummaryStyle       string // PROFESSIONAL, CASUAL, WITTY
	LanguagePreference string
	MaxItemsPerDigest  int
	IncludeImages      bool
	IncludeVideos      bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Topic struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
}

type Source struct {
	ID          string
	UserID      string
	TopicID     *string
	Name        string
	URL         string
	Type        string
	Description string
	IsActive    bool
	LastFetched *time.Time
	FetchErrors int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Article struct {
	ID             string
	SourceID       string
	TopicID        *string
	Title          string
	URL            string
	Content        string
	Excerpt        string
	Author         string
	PublishedAt    time.Time
	ReadingTime    int
	ImageURL       string
	Tags           []string
	IsProcessed    bool
	IsIncluded     bool
	Summary        *string
	KeyTakeaways   []string
	RelevanceScore *float64
	Sentiment      *string
	CreatedAt      time.Time
}

// Digest is a point-in-time snapshot of composed content; its items keep the
// order and highlight flags fixed at composition time.
type Digest struct {
	ID           string
	UserID       string
	Title        string
	Introduction string
	Conclusion   string
	Highlights   []string
	ScheduledFor time.Time
	GeneratedAt  time.Time
	SentAt       *time.Time
	EmailSent    bool
	EmailError   string
	EmailID      string
}

type DigestItem struct {
	ID          string
	DigestID    string
	ArticleID   string
	ItemOrder   int
	IsHighlight bool
}
