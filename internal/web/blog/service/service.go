// Package service is the service layer of blog.
package service

import (
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v6/log"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dao"
	"github.com/Laisky/laisky-blog-rest/library/media"
	"github.com/Laisky/laisky-blog-rest/library/throttle"
)

// TokenSigner issues access tokens for logged in users
type TokenSigner interface {
	Sign(userID, email string) (string, error)
}

// Blog blog service
type Blog struct {
	logger   glog.Logger
	store    dao.Store
	signer   TokenSigner
	throttle throttle.LoginThrottle
	images   media.Uploader
	now      func() time.Time
}

// Option configures Blog
type Option func(*Blog)

// WithLoginThrottle limits failed logins per email
func WithLoginThrottle(t throttle.LoginThrottle) Option {
	return func(b *Blog) {
		b.throttle = t
	}
}

// WithImageUploader offloads inline images before posts are stored
func WithImageUploader(u media.Uploader) Option {
	return func(b *Blog) {
		b.images = u
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *Blog) {
		b.now = now
	}
}

// New new blog service
func New(logger glog.Logger, store dao.Store, signer TokenSigner, opts ...Option) (*Blog, error) {
	switch {
	case logger == nil:
		return nil, errors.New("logger is nil")
	case store == nil:
		return nil, errors.New("store is nil")
	case signer == nil:
		return nil, errors.New("token signer is nil")
	}

	b := &Blog{
		logger: logger,
		store:  store,
		signer: signer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

func (s *Blog) utcNow() time.Time {
	return s.now().UTC()
}
