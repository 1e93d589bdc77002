// Package dao contains the document stores behind the blog service.
package dao

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/google/uuid"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverJSONFile = "jsonfile"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Drivers lists the supported store drivers
func Drivers() []string {
	return []string{DriverMemory, DriverJSONFile, DriverMongo, DriverPostgres, DriverSQLite}
}

// PostStore persists blog posts.
//
// Lookups of absent ids return an error wrapping model.ErrNotFound.
type PostStore interface {
	// ListPosts returns one page of posts and the total number of matched posts
	ListPosts(ctx context.Context, opt model.ListOptions) (posts []*model.Post, total int, err error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	// InsertPost stores a new post, assigning an id when p.ID is empty
	InsertPost(ctx context.Context, p *model.Post) error
	// ReplacePost overwrites the stored post with the same id
	ReplacePost(ctx context.Context, p *model.Post) error
	RemovePost(ctx context.Context, id string) error
}

// UserStore persists users.
//
// InsertUser returns an error wrapping model.ErrUserExists on duplicated email.
type UserStore interface {
	InsertUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Store is a document store with an explicit lifecycle
type Store interface {
	PostStore
	UserStore
	// Setup creates indexes/tables, safe to call repeatedly
	Setup(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config selects and locates a store backend
type Config struct {
	Driver string
	// Addr, DBName, User, Pwd used by mongo and postgres
	Addr,
	DBName,
	User,
	Pwd string
	// Path used by jsonfile and sqlite
	Path string
}

// ConfigFromSettings reads `settings.db.blog.*`
func ConfigFromSettings() Config {
	driver := strings.ToLower(strings.TrimSpace(gconfig.Shared.GetString("settings.db.blog.driver")))
	if driver == "" {
		driver = DriverMongo
	}

	return Config{
		Driver: driver,
		Addr:   gconfig.Shared.GetString("settings.db.blog.addr"),
		DBName: gconfig.Shared.GetString("settings.db.blog.db"),
		User:   gconfig.Shared.GetString("settings.db.blog.user"),
		Pwd:    gconfig.Shared.GetString("settings.db.blog.pwd"),
		Path:   gconfig.Shared.GetString("settings.db.blog.path"),
	}
}

// Open connects to the backend named by cfg.Driver.
// The caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverJSONFile:
		return OpenJSONFile(cfg.Path)
	case DriverMongo:
		return OpenMongo(ctx, cfg)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewID generates a document id
func NewID() string {
	return uuid.NewString()
}

func notFound(kind, id string) error {
	return errors.Wrapf(model.ErrNotFound, "%s %q", kind, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
