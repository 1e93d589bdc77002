package cmd

import (
	"context"

	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `create the indexes/tables of the configured blog store`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		// openStore runs Setup
		store, err := openStore(context.Background())
		if err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}
		closeStore(store)

		log.Logger.Info("migrate done")
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
