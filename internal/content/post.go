// Package content holds the published-post model and its Postgres
// store. The routing pipeline reads from here; authoring and editing
// happen in a separate control plane.
package content

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means no published post matches the slug.
var ErrNotFound = errors.New("post not found")

// Post is one published article, body already rendered to HTML.
type Post struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	Body            string    `json:"body"`
	CoverImage      string    `json:"cover_image"`
	Tags            []string  `json:"tags"`
	TopicGroup      string    `json:"topic_group"`
	NoIndex         bool      `json:"no_index"`
	PublishedAt     time.Time `json:"published_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplayTitle prefers the SEO title override over the article title.
func (p *Post) DisplayTitle() string {
	if p.MetaTitle != "" {
		return p.MetaTitle
	}
	return p.Title
}
