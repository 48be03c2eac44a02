package blog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilters narrows post listings.
type ListFilters struct {
	Status PostStatus
	Limit  int
	Page   int
}

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Post, int, error)
	GetBySlug(ctx context.Context, slug string) (Post, error)
	Get(ctx context.Context, id int64) (Post, error)
	Create(ctx context.Context, post Post) (Post, error)
	Update(ctx context.Context, id int64, post Post) error
	Publish(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const postColumns = `id, title, slug, body, cover_url, status, author_id, published_at, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Post, int, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM posts WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		clause := ` AND status = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, string(filters.Status))
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &p.CoverURL, &p.Status, &p.AuthorID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Post, error) {
	return r.getBy(ctx, `slug = $1`, slug)
}

func (r *repository) Get(ctx context.Context, id int64) (Post, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (Post, error) {
	var p Post
	err := r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE `+where, arg).
		Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &p.CoverURL, &p.Status, &p.AuthorID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, post Post) (Post, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO posts (title, slug, body, cover_url, status, author_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
		post.Title, post.Slug, post.Body, post.CoverURL, string(post.Status), post.AuthorID, now).Scan(&post.ID)
	if err != nil {
		return Post{}, err
	}
	post.CreatedAt = now
	post.UpdatedAt = now
	return post, nil
}

func (r *repository) Update(ctx context.Context, id int64, post Post) error {
	ct, err := r.db.Exec(ctx, `UPDATE posts SET title = $1, slug = $2, body = $3, cover_url = $4, updated_at = $5 WHERE id = $6`,
		post.Title, post.Slug, post.Body, post.CoverURL, time.Now(), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *repository) Publish(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `UPDATE posts SET status = $1, published_at = NOW(), updated_at = NOW() WHERE id = $2`,
		string(StatusPublished), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}
