// Package controller http handlers of the blog api
package controller

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/service"
	"github.com/Laisky/laisky-blog-rest/library/auth"
)

// DefaultTimeout bounds the service call of each request
const DefaultTimeout = 10 * time.Second

// BlogService is the part of service.Blog used by the handlers
type BlogService interface {
	ListPosts(ctx context.Context, opt model.ListOptions) ([]*model.Post, int, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	RenderPostHTML(ctx context.Context, id string) (*service.PostHTML, error)
	CreatePost(ctx context.Context, caller auth.Identity, in *model.Post) (*model.Post, error)
	AuthorizePost(ctx context.Context, caller auth.Identity, id string) error
	UpdatePost(ctx context.Context, caller auth.Identity, id string, in *model.Post) (*model.Post, error)
	PatchPost(ctx context.Context, caller auth.Identity, id string, patch *model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, caller auth.Identity, id string) error
	Register(ctx context.Context, email, password, name string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	GetUser(ctx context.Context, id string) (*model.PublicUser, error)
}

// Authenticator verifies the Authorization header
type Authenticator interface {
	Authenticate(header string) (auth.Identity, error)
}

// Blog blog api handlers
type Blog struct {
	svc     BlogService
	auth    Authenticator
	timeout time.Duration
}

// Option configures Blog
type Option func(*Blog)

// WithTimeout overrides DefaultTimeout
func WithTimeout(timeout time.Duration) Option {
	return func(b *Blog) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// New creates the handlers
func New(svc BlogService, authenticator Authenticator, opts ...Option) (*Blog, error) {
	if svc == nil || authenticator == nil {
		return nil, errors.New("service and authenticator are required")
	}

	b := &Blog{
		svc:     svc,
		auth:    authenticator,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// RegisterRoutes mounts the api on r
func (b *Blog) RegisterRoutes(r gin.IRouter) {
	r.POST("/register", b.register)
	r.POST("/login", b.login)

	r.GET("/users/:id", b.getUser)

	blogs := r.Group("/blogs")
	blogs.GET("", b.listPosts)
	blogs.GET("/:id", b.getPost)
	blogs.GET("/:id/html", b.getPostHTML)
	blogs.POST("", b.createPost)
	blogs.PUT("/:id", b.updatePost)
	blogs.PATCH("/:id", b.patchPost)
	blogs.DELETE("/:id", b.deletePost)
}

// withTimeout derives the context passed to the service
func (b *Blog) withTimeout(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), b.timeout)
}

// identity authenticates the request, aborting with 401 on failure
func (b *Blog) identity(ctx *gin.Context) (auth.Identity, bool) {
	ident, err := b.auth.Authenticate(ctx.GetHeader("Authorization"))
	if err != nil {
		abortWithError(ctx, errors.Wrap(model.ErrUnauthorized, err.Error()), nil)
		return auth.Identity{}, false
	}

	return ident, true
}

// bindJSON decodes the body, aborting with 400 wrapping sentinel on failure
func bindJSON(ctx *gin.Context, obj any, sentinel error) bool {
	if err := ctx.ShouldBindJSON(obj); err != nil {
		abortWithError(ctx, errors.Wrapf(sentinel, "decode body: %s", err), nil)
		return false
	}

	return true
}
