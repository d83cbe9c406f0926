package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-while/go-stockblog/internal/models"
)

// --- Posts ---

// validateTitle rejects only the empty title. Whitespace is a title.
func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	return nil
}

func notFound(id int64) error {
	return fmt.Errorf("%w: id %d", ErrPostNotFound, id)
}

// CreatePost inserts a new post and returns its id. The creation timestamp is set by the database.
const query_CreatePost = `INSERT INTO posts (title, content) VALUES (?, ?)`

func (db *Database) CreatePost(ctx context.Context, title, content string) (int64, error) {
	if err := validateTitle(title); err != nil {
		return 0, err
	}

	var id int64
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		result, err := retryableExec(ctx, conn, query_CreatePost, title, content)
		if err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get new post id: %w", err)
		}
		return nil
	})
	return id, err
}

// GetPost returns the post with the given id
const query_GetPost = `SELECT id, title, content, created FROM posts WHERE id = ?`

func (db *Database) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var post *models.Post
	err := db.withConn(ctx, func(conn *sql.Conn) (err error) {
		post, err = getPost(ctx, conn, id)
		return err
	})
	return post, err
}

func getPost(ctx context.Context, q execQueryer, id int64) (*models.Post, error) {
	var post models.Post
	err := retryableQueryRowScan(ctx, q, query_GetPost, []any{id},
		&post.ID, &post.Title, &post.Content, &post.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return &post, nil
}

// ListPosts returns all posts ordered by id ascending
const query_ListPosts = `SELECT id, title, content, created FROM posts ORDER BY id ASC`

func (db *Database) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := retryableQuery(ctx, conn, query_ListPosts)
		if err != nil {
			return fmt.Errorf("failed to list posts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var post models.Post
			if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.Created); err != nil {
				return fmt.Errorf("failed to scan post: %w", err)
			}
			posts = append(posts, &post)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePost replaces title and content of an existing post. Created is never touched.
const query_UpdatePost = `UPDATE posts SET title = ?, content = ? WHERE id = ?`

func (db *Database) UpdatePost(ctx context.Context, id int64, title, content string) error {
	return db.withConn(ctx, func(conn *sql.Conn) error {
		return retryableTransaction(ctx, conn, func(tx *sql.Tx) error {
			if _, err := getPost(ctx, tx, id); err != nil {
				return err
			}
			if err := validateTitle(title); err != nil {
				return err
			}
			result, err := tx.ExecContext(ctx, query_UpdatePost, title, content, id)
			if err != nil {
				return fmt.Errorf("failed to update post %d: %w", id, err)
			}
			if n, err := result.RowsAffected(); err == nil && n == 0 {
				return notFound(id)
			}
			return nil
		})
	})
}

// DeletePost removes the post and returns the record as it was before deletion
const query_DeletePost = `DELETE FROM posts WHERE id = ?`

func (db *Database) DeletePost(ctx context.Context, id int64) (*models.Post, error) {
	var deleted *models.Post
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		return retryableTransaction(ctx, conn, func(tx *sql.Tx) error {
			post, err := getPost(ctx, tx, id)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query_DeletePost, id); err != nil {
				return fmt.Errorf("failed to delete post %d: %w", id, err)
			}
			deleted = post
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// CountPosts returns the number of stored posts
const query_CountPosts = `SELECT COUNT(*) FROM posts`

func (db *Database) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		if err := retryableQueryRowScan(ctx, conn, query_CountPosts, nil, &count); err != nil {
			return fmt.Errorf("failed to count posts: %w", err)
		}
		return nil
	})
	return count, err
}
