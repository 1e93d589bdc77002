package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-blog-rest/internal/web"
	blogCtl "github.com/Laisky/laisky-blog-rest/internal/web/blog/controller"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/service"
	"github.com/Laisky/laisky-blog-rest/library/auth"
	"github.com/Laisky/laisky-blog-rest/library/config"
	"github.com/Laisky/laisky-blog-rest/library/jwt"
	"github.com/Laisky/laisky-blog-rest/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `serve the blog REST API`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// runAPI wires store, auth, service and controller, then serves until ctx is done
func runAPI(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	issuer, err := jwt.New([]byte(gconfig.Shared.GetString("settings.secret")),
		jwt.WithTTL(config.GetDuration("settings.auth.token_ttl", jwt.DefaultTTL)))
	if err != nil {
		return errors.Wrap(err, "new token issuer")
	}
	authenticator, err := auth.New(issuer)
	if err != nil {
		return errors.Wrap(err, "new authenticator")
	}

	loginThrottle, closeThrottle, err := newLoginThrottle(ctx)
	if err != nil {
		return err
	}
	defer closeThrottle()

	opts := []service.Option{service.WithLoginThrottle(loginThrottle)}
	uploader, err := newImageUploader()
	if err != nil {
		return err
	}
	if uploader != nil {
		opts = append(opts, service.WithImageUploader(uploader))
	}

	svc, err := service.New(log.Logger.Named("blog"), store, issuer, opts...)
	if err != nil {
		return errors.Wrap(err, "new blog service")
	}
	ctrl, err := blogCtl.New(svc, authenticator)
	if err != nil {
		return errors.Wrap(err, "new blog controller")
	}

	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := web.NewServer(log.Logger, web.ConfigFromSettings(), ctrl)
	if err != nil {
		return errors.Wrap(err, "new http server")
	}

	return srv.Run(ctx)
}
