package dao

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/db/sqlite"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newPost(author string, minutes int) *model.Post {
	ts := baseTime.Add(time.Duration(minutes) * time.Minute)
	return &model.Post{
		Title:     "post by " + author,
		Content:   "content",
		UserID:    author,
		AuthorID:  author,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// testStores returns every backend that runs without external services
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	jf, err := OpenJSONFile(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)

	sdb, err := sqlite.NewDB(ctx, sqlite.MemoryPath)
	require.NoError(t, err)

	stores := map[string]Store{
		DriverMemory:   NewMemory(),
		DriverJSONFile: jf,
		DriverSQLite:   NewSQLite(sdb),
	}
	for _, s := range stores {
		require.NoError(t, s.Setup(ctx))
		s := s
		t.Cleanup(func() { _ = s.Close(context.Background()) })
	}

	return stores
}

func TestStorePostLifecycle(t *testing.T) {
	for name, store := range testStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p := newPost("u1", 0)
			require.NoError(t, store.InsertPost(ctx, p))
			require.NotEmpty(t, p.ID)

			got, err := store.GetPost(ctx, p.ID)
			require.NoError(t, err)
			require.Equal(t, p.Title, got.Title)
			require.Equal(t, "u1", got.AuthorID)
			require.True(t, p.CreatedAt.Equal(got.CreatedAt))

			got.Title = "changed"
			require.NoError(t, store.ReplacePost(ctx, got))
			got, err = store.GetPost(ctx, p.ID)
			require.NoError(t, err)
			require.Equal(t, "changed", got.Title)

			require.NoError(t, store.RemovePost(ctx, p.ID))
			_, err = store.GetPost(ctx, p.ID)
			require.ErrorIs(t, err, model.ErrNotFound)
		})
	}
}

func TestStoreMissingPost(t *testing.T) {
	for name, store := range testStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.InsertPost(ctx, newPost("u1", 0)))

			_, err := store.GetPost(ctx, "999")
			require.ErrorIs(t, err, model.ErrNotFound)

			err = store.ReplacePost(ctx, &model.Post{ID: "999", Title: "x"})
			require.ErrorIs(t, err, model.ErrNotFound)

			err = store.RemovePost(ctx, "999")
			require.ErrorIs(t, err, model.ErrNotFound)

			_, total, err := store.ListPosts(ctx, model.ListOptions{})
			require.NoError(t, err)
			require.Equal(t, 1, total)
		})
	}
}

func TestStoreListPosts(t *testing.T) {
	for name, store := range testStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.InsertPost(ctx, newPost("u1", 2)))
			require.NoError(t, store.InsertPost(ctx, newPost("u2", 1)))
			require.NoError(t, store.InsertPost(ctx, newPost("u1", 3)))
			require.NoError(t, store.InsertPost(ctx, newPost("u1", 0)))

			posts, total, err := store.ListPosts(ctx, model.ListOptions{})
			require.NoError(t, err)
			require.Equal(t, 4, total)
			require.Len(t, posts, 4)
			for i := 1; i < len(posts); i++ {
				require.False(t, posts[i].CreatedAt.Before(posts[i-1].CreatedAt))
			}

			posts, total, err = store.ListPosts(ctx, model.ListOptions{AuthorID: "u1", Desc: true})
			require.NoError(t, err)
			require.Equal(t, 3, total)
			require.True(t, posts[0].CreatedAt.Equal(baseTime.Add(3*time.Minute)))

			posts, total, err = store.ListPosts(ctx, model.ListOptions{UserID: "u1", Page: 2, Limit: 2})
			require.NoError(t, err)
			require.Equal(t, 3, total)
			require.Len(t, posts, 1)
			require.True(t, posts[0].CreatedAt.Equal(baseTime.Add(3*time.Minute)))

			posts, total, err = store.ListPosts(ctx, model.ListOptions{Page: 9, Limit: 2})
			require.NoError(t, err)
			require.Equal(t, 4, total)
			require.Empty(t, posts)
		})
	}
}

func TestStoreUsers(t *testing.T) {
	for name, store := range testStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			u := &model.User{Email: " Alice@Example.com ", Name: "alice", Password: "hash", CreatedAt: baseTime}
			require.NoError(t, store.InsertUser(ctx, u))
			require.NotEmpty(t, u.ID)
			require.Equal(t, "alice@example.com", u.Email)

			got, err := store.GetUserByEmail(ctx, "ALICE@example.com")
			require.NoError(t, err)
			require.Equal(t, u.ID, got.ID)
			require.Equal(t, "hash", got.Password)

			got, err = store.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			require.Equal(t, "alice", got.Name)

			err = store.InsertUser(ctx, &model.User{Email: "alice@example.com", Name: "other", Password: "x", CreatedAt: baseTime})
			require.ErrorIs(t, err, model.ErrUserExists)

			_, err = store.GetUserByID(ctx, "nobody")
			require.ErrorIs(t, err, model.ErrNotFound)
			_, err = store.GetUserByEmail(ctx, "nobody@example.com")
			require.ErrorIs(t, err, model.ErrNotFound)
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemory()

	p := newPost("u1", 0)
	require.NoError(t, store.InsertPost(ctx, p))
	p.Title = "mutated outside"

	got, err := store.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "post by u1", got.Title)

	got.AuthorID = "u2"
	again, err := store.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", again.AuthorID)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Driver: "cassandra"})
	require.Error(t, err)

	s, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)
}
