package cmd

import (
	"context"
	"sync/atomic"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dao"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/log"
)

const defaultImportWorkers = 8

// importConfig holds the configuration for the import command
type importConfig struct {
	File    string
	Workers int
	DryRun  bool
}

// importStats counts what an import wrote
type importStats struct {
	Users        int64
	SkippedUsers int64
	Posts        int64
}

var importCMD = &cobra.Command{
	Use:   "import",
	Short: "import data from external sources",
	Long:  `Import data from external sources into the configured blog store`,
	Args:  gcmd.NoExtraArgs,
}

var importDBFileCMD = &cobra.Command{
	Use:   "dbfile",
	Short: "import a json-server db.json",
	Long: `Import users and blogs of a json-server database file into the configured store.

Users are imported first, users whose email already exists are skipped.
Ids, owners and password hashes are kept as is.

Example usage:
  go run main.go import dbfile -c settings.yml --file db.json`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		if err := initialize(context.Background(), cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		workers, err := cmd.Flags().GetInt("workers")
		if err != nil {
			log.Logger.Panic("read workers flag", zap.Error(err))
		}
		cfg := importConfig{
			File:    cmd.Flag("file").Value.String(),
			Workers: workers,
			DryRun:  gconfig.Shared.GetBool("dry"),
		}

		store, err := openStore(ctx)
		if err != nil {
			log.Logger.Panic("open store", zap.Error(err))
		}
		defer closeStore(store)

		if _, err := runImportDBFile(ctx, store, cfg); err != nil {
			log.Logger.Panic("import dbfile", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(importCMD)
	importCMD.AddCommand(importDBFileCMD)

	importDBFileCMD.Flags().String("file", "", "path to the json-server db.json (required)")
	importDBFileCMD.Flags().Int("workers", defaultImportWorkers, "number of concurrent inserts")
	if err := importDBFileCMD.MarkFlagRequired("file"); err != nil {
		log.Logger.Panic("mark flag required", zap.Error(err))
	}
}

// runImportDBFile loads cfg.File into store.
// In dry run the file is only parsed and counted.
func runImportDBFile(ctx context.Context, store dao.Store, cfg importConfig) (*importStats, error) {
	logger := log.Logger.Named("import-dbfile")
	if cfg.Workers <= 0 {
		cfg.Workers = defaultImportWorkers
	}

	snap, err := dao.ReadDBFile(cfg.File)
	if err != nil {
		return nil, errors.Wrap(err, "read db file")
	}
	logger.Info("parsed db file",
		zap.String("file", cfg.File),
		zap.Int("users", len(snap.Users)),
		zap.Int("posts", len(snap.Posts)),
		zap.Bool("dry_run", cfg.DryRun),
	)

	stats := new(importStats)
	if cfg.DryRun {
		return stats, nil
	}

	// users first, posts reference them
	if err = importEach(ctx, cfg.Workers, snap.Users, func(ctx context.Context, u *model.User) error {
		err := store.InsertUser(ctx, u)
		switch {
		case errors.Is(err, model.ErrUserExists):
			logger.Warn("skip existing user", zap.String("email", u.Email))
			atomic.AddInt64(&stats.SkippedUsers, 1)
			return nil
		case err != nil:
			return errors.Wrapf(err, "insert user %q", u.Email)
		}

		atomic.AddInt64(&stats.Users, 1)
		return nil
	}); err != nil {
		return stats, err
	}

	if err = importEach(ctx, cfg.Workers, snap.Posts, func(ctx context.Context, p *model.Post) error {
		if err := store.InsertPost(ctx, p); err != nil {
			return errors.Wrapf(err, "insert post %q", p.ID)
		}

		atomic.AddInt64(&stats.Posts, 1)
		return nil
	}); err != nil {
		return stats, err
	}

	logger.Info("import done",
		zap.Int64("users", stats.Users),
		zap.Int64("skipped_users", stats.SkippedUsers),
		zap.Int64("posts", stats.Posts),
	)
	return stats, nil
}

// importEach runs fn over items with at most workers in flight,
// stopping at the first error
func importEach[T any](ctx context.Context, workers int, items []T,
	fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	return g.Wait()
}
