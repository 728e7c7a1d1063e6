package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"campushub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// SplitTags turns the comma-joined tags column into a trimmed slice. A NULL
// column yields an empty slice, not nil.
func SplitTags(tags sql.NullString) []string {
	if !tags.Valid {
		return []string{}
	}
	return lo.Map(strings.Split(tags.String, ","), func(tag string, _ int) string {
		return strings.TrimSpace(tag)
	})
}

func postSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"posts.id", "posts.title", "posts.content", "posts.image_url",
		"posts.category", "posts.tags", "posts.like_count", "posts.comment_count",
		"posts.created_at", "posts.updated_at",
		"users.id", "users.first_name", "users.last_name",
	)
	sb.From("posts")
	sb.Join("users", "users.id = posts.author_id")
	return sb
}

func scanPosts(rows *sql.Rows) ([]models.PostView, error) {
	var posts []models.PostView
	for rows.Next() {
		var post models.PostView
		var imageUrl, tags sql.NullString
		var updatedAt sql.NullTime
		if err := rows.Scan(
			&post.Id, &post.Title, &post.Content, &imageUrl,
			&post.Category, &tags, &post.LikeCount, &post.CommentCount,
			&post.CreatedAt, &updatedAt,
			&post.Author.Id, &post.Author.FirstName, &post.Author.LastName,
		); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Skipping malformed post row")
			continue
		}
		if imageUrl.Valid {
			post.ImageUrl = &imageUrl.String
		}
		if updatedAt.Valid {
			post.UpdatedAt = &updatedAt.Time
		}
		post.Tags = SplitTags(tags)
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// CreatePost inserts a new post and returns its id. Tags may be nil.
func (db *DB) CreatePost(ctx context.Context, authorId int64, title, content, category string, imageUrl, tags *string) (int64, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("posts")
	ib.Cols("author_id", "title", "content", "category", "image_url", "tags")
	ib.Values(authorId, title, content, category, imageUrl, tags)
	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	return id, nil
}

// GetPost returns a single active post.
func (db *DB) GetPost(ctx context.Context, id int64) (*models.PostView, error) {
	sb := postSelect()
	sb.Where(sb.Equal("posts.id", id))
	sb.Where(sb.Equal("posts.is_active", true))

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

// ListPosts returns active posts newest first.
func (db *DB) ListPosts(ctx context.Context, limit int) ([]models.PostView, error) {
	return db.RecentPosts(ctx, limit)
}

// RecentPosts returns at most count active posts, newest first, with no time
// window. Feed source for posts.
func (db *DB) RecentPosts(ctx context.Context, count int) ([]models.PostView, error) {
	if count <= 0 {
		return nil, nil
	}

	sb := postSelect()
	sb.Where(sb.Equal("posts.is_active", true))
	sb.OrderBy("posts.created_at").Desc()
	sb.Limit(count)

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// LikePost records a like once per user and bumps the counter.
func (db *DB) LikePost(ctx context.Context, postId, userId int64) error {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)",
		postId, userId,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrAlreadyLiked
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert error: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET like_count = like_count + 1 WHERE id = $1", postId,
	); err != nil {
		return fmt.Errorf("update error: %w", err)
	}

	return tx.Commit()
}

// AddComment stores a comment and bumps the post counter, returning the
// comment id.
func (db *DB) AddComment(ctx context.Context, postId, userId int64, content string) (int64, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING id",
		postId, userId, content,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("insert error: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1", postId,
	); err != nil {
		return 0, fmt.Errorf("update error: %w", err)
	}

	return id, tx.Commit()
}
