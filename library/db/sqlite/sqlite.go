// Package sqlite opens file backed sqlite databases.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// NewDB opens the sqlite database at path, creating parent directories.
func NewDB(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create dir for %q", path)
		}
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// sqlite serializes writers, and every :memory: conn is a separate db
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	log.Logger.Info("opened sqlite", zap.String("path", path))
	return db, nil
}
