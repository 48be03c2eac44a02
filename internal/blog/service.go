package blog

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListPublished is the storefront view.
func (s *Service) ListPublished(ctx context.Context, limit, page int) ([]Post, int, error) {
	return s.repo.List(ctx, ListFilters{Status: StatusPublished, Limit: limit, Page: page})
}

// ListAll is the back-office view including drafts.
func (s *Service) ListAll(ctx context.Context, limit, page int) ([]Post, int, error) {
	return s.repo.List(ctx, ListFilters{Limit: limit, Page: page})
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Post, error) {
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	if post.Status != StatusPublished {
		return Post{}, ErrPostNotFound
	}
	return post, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	if id <= 0 {
		return Post{}, ErrPostNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, post Post, authorID int64) (Post, error) {
	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Body) == "" {
		return Post{}, ErrInvalidPost
	}
	post.Status = StatusDraft
	post.AuthorID = authorID
	if post.Slug == "" {
		post.Slug = Slugify(post.Title)
	}
	return s.repo.Create(ctx, post)
}

func (s *Service) Update(ctx context.Context, id int64, post Post) error {
	if id <= 0 {
		return ErrPostNotFound
	}
	if strings.TrimSpace(post.Title) == "" || strings.TrimSpace(post.Body) == "" {
		return ErrInvalidPost
	}
	if post.Slug == "" {
		post.Slug = Slugify(post.Title)
	}
	return s.repo.Update(ctx, id, post)
}

func (s *Service) Publish(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrPostNotFound
	}
	return s.repo.Publish(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrPostNotFound
	}
	return s.repo.Delete(ctx, id)
}

var titleCaser = cases.Lower(language.Und)

// Slugify turns a title into a URL slug.
func Slugify(title string) string {
	lowered := titleCaser.String(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := true
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
