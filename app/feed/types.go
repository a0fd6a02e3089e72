package feed

import (
	"time"
)

// Entry is one normalized item pulled from an external feed, ready for
// ingestion into the article store.
type Entry struct {
	Title       string
	URL         string
	Content     string
	Excerpt     string
	Author      string
	PublishedAt time.Time
	ReadingTime int // minutes
	ImageURL    string
	Tags        []string
}
