package dao

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/mattn/go-sqlite3"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/db/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS blogs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS blogs_author_id_idx ON blogs (author_id)`,
	`CREATE INDEX IF NOT EXISTS blogs_created_at_idx ON blogs (created_at)`,
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
}

// SQLite stores documents in a sqlite database
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database file at path
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	return NewSQLite(db), nil
}

// NewSQLite wraps an opened database
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Setup creates tables and indexes
func (s *SQLite) Setup(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

// Close implements Store
func (s *SQLite) Close(context.Context) error {
	return errors.Wrap(s.db.Close(), "close sqlite")
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row rowScanner) (*model.Post, error) {
	p := new(model.Post)
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Image,
		&p.UserID, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func sqlitePostsWhere(opt model.ListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if opt.AuthorID != "" {
		conds = append(conds, "author_id = ?")
		args = append(args, opt.AuthorID)
	}
	if opt.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, opt.UserID)
	}
	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPosts implements PostStore
func (s *SQLite) ListPosts(ctx context.Context, opt model.ListOptions) ([]*model.Post, int, error) {
	where, args := sqlitePostsWhere(opt)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM blogs`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count posts")
	}

	query := `SELECT ` + postColumns + ` FROM blogs` + where +
		` ORDER BY created_at ` + orderDirection(opt) + `, rowid ASC`
	if opt.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opt.Limit, opt.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "query posts")
	}
	defer rows.Close() // nolint: errcheck

	posts := []*model.Post{}
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan post")
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterate posts")
	}

	return posts, total, nil
}

// GetPost implements PostStore
func (s *SQLite) GetPost(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanSQLitePost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("post", id)
		}
		return nil, errors.Wrapf(err, "get post %q", id)
	}

	return p, nil
}

// InsertPost implements PostStore
func (s *SQLite) InsertPost(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = NewID()
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO blogs (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, p.Image, p.UserID, p.AuthorID, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	); err != nil {
		return errors.Wrapf(err, "insert post %q", p.ID)
	}

	return nil
}

func requireAffected(ret sql.Result, kind, id string) error {
	n, err := ret.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// ReplacePost implements PostStore
func (s *SQLite) ReplacePost(ctx context.Context, p *model.Post) error {
	ret, err := s.db.ExecContext(ctx,
		`UPDATE blogs SET title = ?, content = ?, image = ?, user_id = ?, author_id = ?, `+
			`created_at = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Content, p.Image, p.UserID, p.AuthorID, p.CreatedAt.UTC(), p.UpdatedAt.UTC(), p.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "replace post %q", p.ID)
	}

	return requireAffected(ret, "post", p.ID)
}

// RemovePost implements PostStore
func (s *SQLite) RemovePost(ctx context.Context, id string) error {
	ret, err := s.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete post %q", id)
	}

	return requireAffected(ret, "post", id)
}

// InsertUser implements UserStore
func (s *SQLite) InsertUser(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = NewID()
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Password, u.CreatedAt.UTC(),
	); err != nil {
		if isSQLiteUniqueViolation(err) {
			return errors.Wrapf(model.ErrUserExists, "email %q", u.Email)
		}
		return errors.Wrap(err, "insert user")
	}

	return nil
}

func (s *SQLite) findUser(ctx context.Context, column, key string) (*model.User, error) {
	u := new(model.User)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, key,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("user", key)
		}
		return nil, errors.Wrapf(err, "get user %q", key)
	}

	return u, nil
}

// GetUserByID implements UserStore
func (s *SQLite) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id", id)
}

// GetUserByEmail implements UserStore
func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, "email", normalizeEmail(email))
}
