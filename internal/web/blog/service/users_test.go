package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/jwt"
	"github.com/Laisky/laisky-blog-rest/library/throttle"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestBlog(t)

	ret, err := svc.Register(ctx, "  Alice@Example.COM ", "pass", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, ret.AccessToken)
	require.Equal(t, "alice@example.com", ret.User.Email)
	require.Equal(t, "Alice", ret.User.Name)

	claims, err := newTestIssuer(t).Parse(ret.AccessToken)
	require.NoError(t, err)
	require.Equal(t, ret.User.ID, claims.UserID())
	require.Equal(t, "alice@example.com", claims.Email)

	stored, err := store.GetUserByID(ctx, ret.User.ID)
	require.NoError(t, err)
	require.NotEqual(t, "pass", stored.Password)
	require.Equal(t, fixedNow, stored.CreatedAt)

	_, err = svc.Register(ctx, "alice@example.com", "other", "")
	requireErrorIs(t, err, model.ErrUserExists)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestBlog(t)

	for _, tc := range []struct{ email, password string }{
		{"", "pass"},
		{"not-an-email", "pass"},
		{"Alice <alice@example.com>", "pass"},
		{"alice@example.com", "abc"},
		{"alice@example.com", string(make([]byte, 73))},
	} {
		_, err := svc.Register(context.Background(), tc.email, tc.password, "")
		requireErrorIs(t, err, model.ErrInvalidUser)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestBlog(t)

	reg, err := svc.Register(ctx, "bob@example.com", "secret", "bob")
	require.NoError(t, err)

	ret, err := svc.Login(ctx, "BOB@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, ret.User.ID)
	require.NotEmpty(t, ret.AccessToken)

	_, err = svc.Login(ctx, "bob@example.com", "wrong")
	requireErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret")
	requireErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "garbage", "secret")
	requireErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestLoginThrottle(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	th, err := throttle.NewMemory(ctx, 2, 15*time.Minute)
	require.NoError(t, err)
	svc, _ := newTestBlog(t, WithLoginThrottle(th))

	_, err = svc.Register(ctx, "carol@example.com", "secret", "carol")
	require.NoError(t, err)

	// a success resets earlier failures
	_, err = svc.Login(ctx, "carol@example.com", "wrong")
	requireErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "carol@example.com", "secret")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.Login(ctx, "carol@example.com", "wrong")
		requireErrorIs(t, err, model.ErrInvalidCredentials)
	}

	// locked, even with the right password
	_, err = svc.Login(ctx, "carol@example.com", "secret")
	requireErrorIs(t, err, model.ErrTooManyAttempts)

	// other emails are not affected
	_, err = svc.Login(ctx, "dave@example.com", "whatever")
	requireErrorIs(t, err, model.ErrInvalidCredentials)
}

type failingSigner struct{}

func (failingSigner) Sign(string, string) (string, error) {
	return "", jwt.ErrInvalidToken
}

func TestLoginSignFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestBlog(t)
	_, err := svc.Register(ctx, "erin@example.com", "secret", "")
	require.NoError(t, err)

	svc.signer = failingSigner{}
	_, err = svc.Login(ctx, "erin@example.com", "secret")
	require.Error(t, err)
	require.NotErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestBlog(t)

	reg, err := svc.Register(ctx, "frank@example.com", "secret", "frank")
	require.NoError(t, err)

	u, err := svc.GetUser(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, "frank", u.Name)

	_, err = svc.GetUser(ctx, "nobody")
	requireErrorIs(t, err, model.ErrNotFound)
}
