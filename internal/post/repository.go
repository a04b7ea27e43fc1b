package post

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListAll(ctx context.Context) ([]Post, error) {
	return r.list(ctx, `
		SELECT p.id, p.title, p.content, p.created_at, p.author_id, u.username
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC
	`)
}

func (r *Repository) ListByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	return r.list(ctx, `
		SELECT p.id, p.title, p.content, p.created_at, p.author_id, u.username
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.author_id = $1
		ORDER BY p.created_at DESC
	`, authorID)
}

func (r *Repository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (r *Repository) Create(ctx context.Context, authorID, authorUsername string, input PostInput) (Post, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Post{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	p := Post{
		ID:             id.String(),
		Title:          input.Title,
		Content:        input.Content,
		CreatedAt:      time.Now().UTC(),
		AuthorID:       authorID,
		AuthorUsername: authorUsername,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, content, created_at, author_id)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Title, p.Content, p.CreatedAt, p.AuthorID)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}

	return p, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.AuthorID, &p.AuthorUsername); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}
