package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	cfg := DefaultDBConfig()
	cfg.DataDir = t.TempDir()
	db, err := OpenDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	return db
}

func TestOpenDatabaseCreatesSchema(t *testing.T) {
	db := openTestDB(t)
	assert.True(t, FileExists(db.Path()))
	assert.Equal(t, "database.db", filepath.Base(db.Path()))

	count, err := db.CountPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// reopening applies nothing twice
	require.NoError(t, db.Migrate())
	var applied int
	require.NoError(t, db.GetMainDB().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	migrations, err := getEmbeddedMigrationFiles()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), applied)
}

func TestSkipMigrateRequiresProvisionedSchema(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultDBConfig()
	cfg.DataDir = dir
	cfg.SkipMigrate = true
	db, err := OpenDatabase(cfg)
	assert.Nil(t, db)
	require.ErrorIs(t, err, ErrSchemaNotProvisioned)

	// provision once, the way init-db does
	cfg.SkipMigrate = false
	db, err = OpenDatabase(cfg)
	require.NoError(t, err)
	pending, err := db.PendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)
	require.NoError(t, db.Close())

	cfg.SkipMigrate = true
	db, err = OpenDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	_, err = db.CreatePost(context.Background(), "Hello", "World")
	assert.NoError(t, err)
}

func TestCreateAndGetPost(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	before := time.Now().UTC().Add(-2 * time.Second)
	id, err := db.CreatePost(ctx, "Hello", "World")
	require.NoError(t, err)
	assert.Positive(t, id)

	post, err := db.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, post.ID)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "World", post.Content)
	assert.False(t, post.Created.Before(before), "created is set on insert")
}

func TestCreatePostRequiresTitle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.CreatePost(ctx, "", "content")
	assert.ErrorIs(t, err, ErrTitleRequired)

	count, err := db.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "a rejected create persists nothing")
}

func TestCreatePostKeepsWhitespaceTitle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, title := range []string{"   ", "\t\n"} {
		id, err := db.CreatePost(ctx, title, "body")
		require.NoError(t, err)
		post, err := db.GetPost(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, title, post.Title, "the title is stored unchanged")
	}
}

func TestPostIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first, err := db.CreatePost(ctx, "a", "")
	require.NoError(t, err)
	second, err := db.CreatePost(ctx, "b", "")
	require.NoError(t, err)
	assert.Greater(t, second, first)

	_, err = db.DeletePost(ctx, second)
	require.NoError(t, err)

	third, err := db.CreatePost(ctx, "c", "")
	require.NoError(t, err)
	assert.Greater(t, third, second)
}

func TestListPostsOrderedByID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	posts, err := db.ListPosts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		id, err := db.CreatePost(ctx, title, title+" body")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	posts, err = db.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for i, post := range posts {
		assert.Equal(t, ids[i], post.ID)
	}
	assert.Equal(t, "three", posts[2].Title)
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.CreatePost(ctx, "Old", "old body")
	require.NoError(t, err)
	orig, err := db.GetPost(ctx, id)
	require.NoError(t, err)

	require.NoError(t, db.UpdatePost(ctx, id, "New", "new body"))
	post, err := db.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New", post.Title)
	assert.Equal(t, "new body", post.Content)
	assert.True(t, orig.Created.Equal(post.Created), "created never changes")

	// same values again still counts as an update
	require.NoError(t, db.UpdatePost(ctx, id, "New", "new body"))

	err = db.UpdatePost(ctx, id, "", "ignored")
	assert.ErrorIs(t, err, ErrTitleRequired)
	post, err = db.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New", post.Title, "a rejected update leaves the post unchanged")
	assert.Equal(t, "new body", post.Content)
}

func TestMissingPost(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetPost(ctx, 42)
	assert.ErrorIs(t, err, ErrPostNotFound)

	err = db.UpdatePost(ctx, 42, "title", "content")
	assert.ErrorIs(t, err, ErrPostNotFound)

	err = db.UpdatePost(ctx, 42, "", "content")
	assert.ErrorIs(t, err, ErrPostNotFound, "a missing post wins over an empty title")

	_, err = db.DeletePost(ctx, 42)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePostReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.CreatePost(ctx, "Doomed", "bye")
	require.NoError(t, err)

	deleted, err := db.DeletePost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.ID)
	assert.Equal(t, "Doomed", deleted.Title)
	assert.Equal(t, "bye", deleted.Content)

	_, err = db.GetPost(ctx, id)
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = db.DeletePost(ctx, id)
	assert.ErrorIs(t, err, ErrPostNotFound, "second delete of the same id")
}

func TestSeedPosts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	n, err := db.SeedPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultSeedPosts), n)

	posts, err := db.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "First Stock", posts[0].Title)
	assert.Equal(t, "Content for the first stock option", posts[0].Content)
	assert.Equal(t, "Second Stock", posts[1].Title)

	n, err = db.SeedPosts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding a non-empty table is a no-op")
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.CreatePost(ctx, "concurrent", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := db.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}

func TestConnectionsAreReleased(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetPost(ctx, 1)
	require.Error(t, err)
	_, err = db.CreatePost(ctx, "", "")
	require.Error(t, err)
	_, err = db.ListPosts(ctx)
	require.NoError(t, err)

	assert.Zero(t, db.GetMainDB().Stats().InUse)
}

func TestParseMigrationFileName(t *testing.T) {
	m, err := parseMigrationFileName("0001_main_posts.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, MigrationTypeMain, m.Type)
	assert.Equal(t, "posts", m.Description)

	for _, name := range []string{"0001_main.sql", "abc_main_posts.sql", "0001_group_posts.sql", "0001_main_posts.txt"} {
		_, err := parseMigrationFileName(name)
		assert.Error(t, err, name)
	}
}
