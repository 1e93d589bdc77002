package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// Login authenticates and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	sess := new(Session)
	if _, err := c.do(ctx, http.MethodPost, "/login", nil,
		&dto.LoginRequest{Email: email, Password: password}, sess); err != nil {
		return nil, errors.Wrap(err, "login")
	}

	c.SetToken(sess.AccessToken)
	return sess, nil
}

// Register creates an account and keeps the returned token for later calls
func (c *Client) Register(ctx context.Context, email, password, name string) (*Session, error) {
	sess := new(Session)
	if _, err := c.do(ctx, http.MethodPost, "/register", nil,
		&dto.RegisterRequest{Email: email, Password: password, Name: name}, sess); err != nil {
		return nil, errors.Wrap(err, "register")
	}

	c.SetToken(sess.AccessToken)
	return sess, nil
}

// GetUser loads the public profile of user id
func (c *Client) GetUser(ctx context.Context, id string) (*model.PublicUser, error) {
	if id == "" {
		return nil, errors.New("empty user id")
	}

	u := new(model.PublicUser)
	if _, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, u); err != nil {
		return nil, errors.Wrapf(err, "get user %q", id)
	}

	return u, nil
}
