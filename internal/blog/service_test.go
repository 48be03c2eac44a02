package blog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	posts  map[int64]*Post
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: make(map[int64]*Post)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Post, int, error) {
	var out []Post
	for _, p := range r.posts {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetBySlug(ctx context.Context, slug string) (Post, error) {
	for _, p := range r.posts {
		if p.Slug == slug {
			return *p, nil
		}
	}
	return Post{}, ErrPostNotFound
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return *p, nil
}

func (r *memoryRepo) Create(ctx context.Context, post Post) (Post, error) {
	r.nextID++
	post.ID = r.nextID
	r.posts[post.ID] = &post
	return post, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, post Post) error {
	p, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	post.ID = id
	post.Status = p.Status
	*p = post
	return nil
}

func (r *memoryRepo) Publish(ctx context.Context, id int64) error {
	p, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	now := time.Now()
	p.Status = StatusPublished
	p.PublishedAt = &now
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "promo-de-rentr-e-2026", Slugify("Promo de rentrée 2026"))
	require.Equal(t, "nouveaux-produits", Slugify("  Nouveaux   Produits!  "))
	require.Equal(t, "", Slugify("!!!"))
}

func TestDraftsHiddenUntilPublished(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	post, err := svc.Create(ctx, Post{Title: "Ouverture du depot", Body: "..."}, 7)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, post.Status)
	require.Equal(t, "ouverture-du-depot", post.Slug)

	published, _, err := svc.ListPublished(ctx, 10, 1)
	require.NoError(t, err)
	require.Empty(t, published)

	_, err = svc.GetBySlug(ctx, post.Slug)
	require.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, svc.Publish(ctx, post.ID))
	got, err := svc.GetBySlug(ctx, post.Slug)
	require.NoError(t, err)
	require.Equal(t, StatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Post{Title: "", Body: "corps"}, 1)
	require.ErrorIs(t, err, ErrInvalidPost)

	_, err = svc.Create(ctx, Post{Title: "Titre", Body: " "}, 1)
	require.ErrorIs(t, err, ErrInvalidPost)
}
