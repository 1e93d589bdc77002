package dao

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

var postRowColumns = []string{"id", "title", "content", "image", "user_id", "author_id", "created_at", "updated_at"}

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return NewPostgres(mock), mock
}

func TestPostgresSetup(t *testing.T) {
	store, mock := newMockPostgres(t)
	for range pgSchema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, store.Setup(context.Background()))
}

func TestPostgresGetPost(t *testing.T) {
	store, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + postColumns + ` FROM blogs WHERE id = $1`)).
		WithArgs("1").
		WillReturnRows(pgxmock.NewRows(postRowColumns).
			AddRow("1", "A", "body", "", "u1", "u1", baseTime, baseTime))
	mock.ExpectQuery("FROM blogs WHERE id").
		WithArgs("999").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.GetPost(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "u1", p.AuthorID)

	_, err = store.GetPost(ctx, "999")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestPostgresListPosts(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM blogs WHERE author_id = $1`)).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`)).
		WithArgs("u1", 2, 2).
		WillReturnRows(pgxmock.NewRows(postRowColumns).
			AddRow("3", "C", "body", "", "u1", "u1", baseTime, baseTime))

	posts, total, err := store.ListPosts(context.Background(),
		model.ListOptions{AuthorID: "u1", Page: 2, Limit: 2, Desc: true})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, posts, 1)
	require.Equal(t, "3", posts[0].ID)
}

func TestPostgresReplaceAndRemove(t *testing.T) {
	store, mock := newMockPostgres(t)
	ctx := context.Background()

	p := newPost("u1", 0)
	p.ID = "1"
	mock.ExpectExec("UPDATE blogs SET").
		WithArgs(p.ID, p.Title, p.Content, p.Image, p.UserID, p.AuthorID, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE blogs SET").
		WithArgs("999", p.Title, p.Content, p.Image, p.UserID, p.AuthorID, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM blogs WHERE id = $1`)).
		WithArgs("999").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.ReplacePost(ctx, p))

	missing := p.Clone()
	missing.ID = "999"
	require.ErrorIs(t, store.ReplacePost(ctx, missing), model.ErrNotFound)
	require.ErrorIs(t, store.RemovePost(ctx, "999"), model.ErrNotFound)
}

func TestPostgresInsertDuplicatedUser(t *testing.T) {
	store, mock := newMockPostgres(t)

	u := &model.User{ID: "u1", Email: "a@b.c", Name: "a", Password: "h", CreatedAt: baseTime}
	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.Name, u.Password, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	require.ErrorIs(t, store.InsertUser(context.Background(), u), model.ErrUserExists)
}
