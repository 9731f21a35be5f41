package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads published posts for one tenant.
type Store interface {
	// BySlug returns the published post with the given slug.
	BySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Post, error)

	// Recent lists published posts, newest first.
	Recent(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Post, error)

	// ByTag lists published posts carrying the given tag, newest first.
	ByTag(ctx context.Context, tenantID uuid.UUID, tag string, limit, offset int) ([]Post, error)

	// ByTopic lists published posts in the given topic group, newest first.
	ByTopic(ctx context.Context, tenantID uuid.UUID, topic string, limit, offset int) ([]Post, error)
}

const postColumns = `id, tenant_id, slug, title, meta_title, meta_description,
	body, cover_image, tags, topic_group, no_index, published_at, updated_at`

// Drafts carry a NULL published_at; every query here filters them out.
const publishedFilter = `published_at IS NOT NULL AND published_at <= now()`

// PGStore is the Postgres-backed post store.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGStore creates a post store on top of an existing pool.
func NewPGStore(pool *pgxpool.Pool, logger *slog.Logger) *PGStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{pool: pool, logger: logger}
}

// BySlug implements Store.
func (s *PGStore) BySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Post, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE tenant_id = $1 AND slug = $2 AND `+publishedFilter,
		tenantID, slug)

	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post by slug: %w", err)
	}
	return p, nil
}

// Recent implements Store.
func (s *PGStore) Recent(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Post, error) {
	return s.list(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE tenant_id = $1 AND `+publishedFilter+`
		 ORDER BY published_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
}

// ByTag implements Store.
func (s *PGStore) ByTag(ctx context.Context, tenantID uuid.UUID, tag string, limit, offset int) ([]Post, error) {
	return s.list(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE tenant_id = $1 AND $2 = ANY(tags) AND `+publishedFilter+`
		 ORDER BY published_at DESC LIMIT $3 OFFSET $4`,
		tenantID, tag, limit, offset)
}

// ByTopic implements Store.
func (s *PGStore) ByTopic(ctx context.Context, tenantID uuid.UUID, topic string, limit, offset int) ([]Post, error) {
	return s.list(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE tenant_id = $1 AND topic_group = $2 AND `+publishedFilter+`
		 ORDER BY published_at DESC LIMIT $3 OFFSET $4`,
		tenantID, topic, limit, offset)
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("post list: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("post scan: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("post list: %w", err)
	}
	return posts, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Slug, &p.Title, &p.MetaTitle, &p.MetaDescription,
		&p.Body, &p.CoverImage, &p.Tags, &p.TopicGroup, &p.NoIndex,
		&p.PublishedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
