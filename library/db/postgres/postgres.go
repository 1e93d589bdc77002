// Package postgres opens pooled PostgreSQL connections.
package postgres

import (
	"context"
	"fmt"
	"net"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

const defaultPort = "5432"

// DialInfo postgres dial info
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
}

// BuildDSN builds a PostgreSQL DSN.
//
// Addr may carry an explicit port (`host:port`), otherwise 5432 is used.
func BuildDSN(dialInfo DialInfo) string {
	host, port := dialInfo.Addr, defaultPort
	if h, p, err := net.SplitHostPort(dialInfo.Addr); err == nil {
		host, port = h, p
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		host, port, dialInfo.User, dialInfo.Pwd, dialInfo.DBName)
}

// NewDB create a new postgres connection pool
func NewDB(ctx context.Context, dialInfo DialInfo) (*pgxpool.Pool, error) {
	if dialInfo.Addr == "" || dialInfo.DBName == "" {
		return nil, errors.New("postgres addr and db name are required")
	}

	cfg, err := pgxpool.ParseConfig(BuildDSN(dialInfo))
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres dsn")
	}
	cfg.MaxConns = 50
	cfg.MaxConnLifetime = time.Hour

	log.Logger.Info("try to connect to postgres",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName))

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "new postgres pool")
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	return pool, nil
}
