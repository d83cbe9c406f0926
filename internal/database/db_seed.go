package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// SeedPost is a post inserted into a fresh database
type SeedPost struct {
	Title   string
	Content string
}

// DefaultSeedPosts are the posts a new installation starts with
var DefaultSeedPosts = []SeedPost{
	{Title: "First Stock", Content: "Content for the first stock option"},
	{Title: "Second Stock", Content: "Content for the second option"},
}

// SeedPosts inserts DefaultSeedPosts when the posts table is empty.
// It returns the number of inserted posts, 0 if posts already exist.
func (db *Database) SeedPosts(ctx context.Context) (int, error) {
	inserted := 0
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		return retryableTransaction(ctx, conn, func(tx *sql.Tx) error {
			inserted = 0
			var count int
			if err := tx.QueryRowContext(ctx, query_CountPosts).Scan(&count); err != nil {
				return fmt.Errorf("failed to count posts: %w", err)
			}
			if count > 0 {
				log.Printf("[DB]: SeedPosts: %d posts exist, skipping", count)
				return nil
			}
			for _, p := range DefaultSeedPosts {
				if _, err := tx.ExecContext(ctx, query_CreatePost, p.Title, p.Content); err != nil {
					return fmt.Errorf("failed to seed post %q: %w", p.Title, err)
				}
				inserted++
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
