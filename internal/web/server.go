// Package web gin server
package web

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultAddr is used when `listen` is not configured
	DefaultAddr = "localhost:3000"
	// DefaultAllowedOrigin is the dev server of the web frontend
	DefaultAllowedOrigin = "http://localhost:5173"

	defaultShutdownTimeout = 10 * time.Second
)

// Router mounts handlers on the engine
type Router interface {
	RegisterRoutes(r gin.IRouter)
}

// Config http server settings
type Config struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// ConfigFromSettings reads `listen` and `settings.web.*`
func ConfigFromSettings() Config {
	cfg := Config{
		Addr:           gconfig.Shared.GetString("listen"),
		AllowedOrigins: gconfig.Shared.GetStringSlice("settings.web.cors.allowed_origins"),
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{DefaultAllowedOrigin}
	}

	return cfg
}

// Server serves the blog api
type Server struct {
	cfg    Config
	logger glog.Logger
	engine *gin.Engine
}

// NewServer builds the engine and mounts routers
func NewServer(logger glog.Logger, cfg Config, routers ...Router) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	origins, err := normalizeOrigins(cfg.AllowedOrigins)
	if err != nil {
		return nil, errors.Wrap(err, "cors origins")
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(logger.Named("gin")),
		),
		allowCORS(origins),
	)

	engine.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})
	for _, r := range routers {
		r.RegisterRoutes(engine)
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		engine: engine,
	}, nil
}

// Handler returns the http handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on cfg.Addr until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %q", s.cfg.Addr)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln, shutting down gracefully when ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening on http", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve http")
		}

		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down http server")

		sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return errors.Wrap(err, "shutdown http server")
		}

		return nil
	})

	return g.Wait()
}

// normalizeOrigins lower-cases origins and drops trailing slashes
func normalizeOrigins(origins []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		origin = normalizeOrigin(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return nil, errors.New("wildcard origin cannot be used with credentials")
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, errors.Errorf("origin %q must start with http:// or https://", origin)
		}

		set[origin] = struct{}{}
	}

	return set, nil
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}

func allowCORS(allowed map[string]struct{}) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" {
			ctx.Next()
			return
		}

		if _, ok := allowed[normalizeOrigin(origin)]; !ok {
			// deny preflight from disallowed origins
			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusForbidden)
				return
			}

			ctx.Next()
			return
		}

		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		ctx.Header("Access-Control-Expose-Headers", "X-Total-Count")
		ctx.Header("Access-Control-Max-Age", "86400")
		ctx.Header("Vary", "Origin")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
