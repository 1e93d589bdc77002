package dao

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/db/postgres"
)

const pgUniqueViolation = "23505"

// pgConn is satisfied by *pgxpool.Pool and pgxmock pools
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS blogs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS blogs_author_id_idx ON blogs (author_id)`,
	`CREATE INDEX IF NOT EXISTS blogs_created_at_idx ON blogs (created_at)`,
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
}

const (
	postColumns = `id, title, content, image, user_id, author_id, created_at, updated_at`
	userColumns = `id, email, name, password, created_at`
)

// Postgres stores documents in the `blogs` and `users` tables
type Postgres struct {
	conn pgConn
}

// OpenPostgres connects to postgres described by cfg
func OpenPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	pool, err := postgres.NewDB(ctx, postgres.DialInfo{
		Addr:   cfg.Addr,
		DBName: cfg.DBName,
		User:   cfg.User,
		Pwd:    cfg.Pwd,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	return NewPostgres(pool), nil
}

// NewPostgres wraps an opened connection pool
func NewPostgres(conn pgConn) *Postgres {
	return &Postgres{conn: conn}
}

// Setup creates tables and indexes
func (s *Postgres) Setup(ctx context.Context) error {
	for _, stmt := range pgSchema {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

// Close implements Store
func (s *Postgres) Close(context.Context) error {
	s.conn.Close()
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// postsWhere builds the WHERE clause with placeholders starting at $1
func postsWhere(opt model.ListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if opt.AuthorID != "" {
		args = append(args, opt.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if opt.UserID != "" {
		args = append(args, opt.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderDirection(opt model.ListOptions) string {
	if opt.Desc {
		return "DESC"
	}
	return "ASC"
}

func scanPost(row pgx.Row) (*model.Post, error) {
	p := new(model.Post)
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Image,
		&p.UserID, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPosts implements PostStore
func (s *Postgres) ListPosts(ctx context.Context, opt model.ListOptions) ([]*model.Post, int, error) {
	where, args := postsWhere(opt)

	var total int
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM blogs`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count posts")
	}

	query := `SELECT ` + postColumns + ` FROM blogs` + where +
		` ORDER BY created_at ` + orderDirection(opt) + `, id ASC`
	if opt.Limit > 0 {
		args = append(args, opt.Limit, opt.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "query posts")
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
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
func (s *Postgres) GetPost(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanPost(s.conn.QueryRow(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("post", id)
		}
		return nil, errors.Wrapf(err, "get post %q", id)
	}

	return p, nil
}

// InsertPost implements PostStore
func (s *Postgres) InsertPost(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = NewID()
	}

	if _, err := s.conn.Exec(ctx,
		`INSERT INTO blogs (`+postColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Title, p.Content, p.Image, p.UserID, p.AuthorID, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert post %q", p.ID)
	}

	return nil
}

// ReplacePost implements PostStore
func (s *Postgres) ReplacePost(ctx context.Context, p *model.Post) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE blogs SET title = $2, content = $3, image = $4, user_id = $5, author_id = $6, `+
			`created_at = $7, updated_at = $8 WHERE id = $1`,
		p.ID, p.Title, p.Content, p.Image, p.UserID, p.AuthorID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "replace post %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return notFound("post", p.ID)
	}

	return nil
}

// RemovePost implements PostStore
func (s *Postgres) RemovePost(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete post %q", id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("post", id)
	}

	return nil
}

// InsertUser implements UserStore
func (s *Postgres) InsertUser(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = NewID()
	}

	if _, err := s.conn.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Name, u.Password, u.CreatedAt,
	); err != nil {
		if isPgUniqueViolation(err) {
			return errors.Wrapf(model.ErrUserExists, "email %q", u.Email)
		}
		return errors.Wrap(err, "insert user")
	}

	return nil
}

func (s *Postgres) findUser(ctx context.Context, column, key string) (*model.User, error) {
	u := new(model.User)
	err := s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, key,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("user", key)
		}
		return nil, errors.Wrapf(err, "get user %q", key)
	}

	return u, nil
}

// GetUserByID implements UserStore
func (s *Postgres) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id", id)
}

// GetUserByEmail implements UserStore
func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, "email", normalizeEmail(email))
}
