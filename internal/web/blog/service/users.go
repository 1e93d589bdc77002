package service

import (
	"context"
	"sync"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// AuthResult is returned by register and login
type AuthResult struct {
	AccessToken string            `json:"accessToken"`
	User        *model.PublicUser `json:"user"`
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareDummyHash spends the same bcrypt work as a real check,
// so unknown emails cannot be told apart by latency
func compareDummyHash(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Register create a new user and log it in
func (s *Blog) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email, err := sanitizeEmail(email)
	if err != nil {
		return nil, invalid(model.ErrInvalidUser, err)
	}
	if password, err = sanitizeUserPassword(password); err != nil {
		return nil, invalid(model.ErrInvalidUser, err)
	}
	if name, err = sanitizeUserName(name); err != nil {
		return nil, invalid(model.ErrInvalidUser, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &model.User{
		Email:     email,
		Name:      name,
		Password:  string(hash),
		CreatedAt: s.utcNow(),
	}
	if err = s.store.InsertUser(ctx, user); err != nil {
		return nil, errors.Wrapf(err, "insert user %q", email)
	}

	s.logger.Info("register user", zap.String("user", user.ID), zap.String("email", email))
	return s.issue(user)
}

// Login verifies the password and returns a fresh access token.
//
// Unknown emails and wrong passwords fail the same way.
func (s *Blog) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := sanitizeEmail(email)
	if err != nil {
		return nil, errors.WithStack(model.ErrInvalidCredentials)
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Check(ctx, email)
		if err != nil {
			return nil, errors.Wrap(err, "check login throttle")
		}
		if !allowed {
			return nil, errors.Wrapf(model.ErrTooManyAttempts, "email %q", email)
		}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, model.ErrNotFound):
		compareDummyHash(password)
		return nil, s.loginFailed(ctx, email)
	case err != nil:
		return nil, errors.Wrapf(err, "get user %q", email)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, s.loginFailed(ctx, email)
	}

	if s.throttle != nil {
		if err = s.throttle.Reset(ctx, email); err != nil {
			s.logger.Warn("reset login throttle", zap.Error(err), zap.String("email", email))
		}
	}

	s.logger.Info("user login", zap.String("user", user.ID))
	return s.issue(user)
}

func (s *Blog) loginFailed(ctx context.Context, email string) error {
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, email); err != nil {
			s.logger.Warn("record login failure", zap.Error(err), zap.String("email", email))
		}
	}

	return errors.Wrapf(model.ErrInvalidCredentials, "email %q", email)
}

func (s *Blog) issue(user *model.User) (*AuthResult, error) {
	token, err := s.signer.Sign(user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}

	return &AuthResult{
		AccessToken: token,
		User:        user.Public(),
	}, nil
}

// GetUser load the public profile of a user
func (s *Blog) GetUser(ctx context.Context, id string) (*model.PublicUser, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %q", id)
	}

	return user.Public(), nil
}
