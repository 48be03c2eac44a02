package blog

import (
	"errors"
	"time"
)

// PostStatus enumerates post lifecycle states.
type PostStatus string

const (
	StatusDraft     PostStatus = "DRAFT"
	StatusPublished PostStatus = "PUBLISHED"
)

// Post is a blog article shown on the storefront.
type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Body        string     `json:"body"`
	CoverURL    string     `json:"cover_url"`
	Status      PostStatus `json:"status"`
	AuthorID    int64      `json:"author_id"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var (
	ErrPostNotFound = errors.New("blog: post not found")
	ErrInvalidPost  = errors.New("blog: title and body are required")
)
