package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/media"
)

// MinContentLength is the shortest post body the editor form accepts
const MinContentLength = 50

// PostForm is the editor form of a post.
//
// Image is an http(s) url or a data url, ImageData is raw image bytes
// that will be sent as a data url. ImageData wins when both are set.
type PostForm struct {
	Title     string
	Content   string
	Image     string
	ImageData []byte
}

// Validate checks the form the way the editor does before submitting
func (f *PostForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return errors.Wrap(model.ErrInvalidPost, "title is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Content)) < MinContentLength {
		return errors.Wrapf(model.ErrInvalidPost, "content must be at least %d characters", MinContentLength)
	}
	if len(f.ImageData) > media.MaxImageSize {
		return errors.Wrapf(model.ErrInvalidPost, "image exceeds %d bytes", media.MaxImageSize)
	}

	return nil
}

// request validates the form and builds the request body owned by userID
func (f *PostForm) request(userID string) (*dto.PostRequest, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	req := &dto.PostRequest{
		Title:    strings.TrimSpace(f.Title),
		Content:  f.Content,
		Image:    strings.TrimSpace(f.Image),
		UserID:   userID,
		AuthorID: userID,
	}
	if len(f.ImageData) != 0 {
		dataURL, err := media.EncodeDataURL(f.ImageData)
		if err != nil {
			return nil, errors.Wrap(model.ErrInvalidPost, err.Error())
		}
		req.Image = dataURL
	}

	return req, nil
}

// ListQuery filters and pages ListPosts
type ListQuery struct {
	AuthorID string
	UserID   string
	Page     int
	Limit    int
	Desc     bool
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.AuthorID != "" {
		v.Set("authorId", q.AuthorID)
	}
	if q.UserID != "" {
		v.Set("userId", q.UserID)
	}
	if q.Page > 0 {
		v.Set("_page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("_limit", strconv.Itoa(q.Limit))
	}
	if q.Desc {
		v.Set("_order", dto.OrderDesc)
	}

	return v
}

func postPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("empty post id")
	}

	return "/blogs/" + url.PathEscape(id), nil
}

// ListPosts lists posts
func (c *Client) ListPosts(ctx context.Context, q ListQuery) (*PostPage, error) {
	page := new(PostPage)
	header, err := c.do(ctx, http.MethodGet, "/blogs", q.values(), nil, &page.Posts)
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}

	page.Total = len(page.Posts)
	if total := header.Get("X-Total-Count"); total != "" {
		if page.Total, err = strconv.Atoi(total); err != nil {
			return nil, errors.Wrapf(err, "parse total count %q", total)
		}
	}

	return page, nil
}

// GetPost loads one post
func (c *Client) GetPost(ctx context.Context, id string) (*model.Post, error) {
	path, err := postPath(id)
	if err != nil {
		return nil, err
	}

	post := new(model.Post)
	if _, err = c.do(ctx, http.MethodGet, path, nil, nil, post); err != nil {
		return nil, errors.Wrapf(err, "get post %q", id)
	}

	return post, nil
}

// CreatePost submits the form as a new post of the logged-in user
func (c *Client) CreatePost(ctx context.Context, form *PostForm) (*model.Post, error) {
	userID, err := c.UserID()
	if err != nil {
		return nil, err
	}
	req, err := form.request(userID)
	if err != nil {
		return nil, err
	}

	post := new(model.Post)
	if _, err = c.do(ctx, http.MethodPost, "/blogs", nil, req, post); err != nil {
		return nil, errors.Wrap(err, "create post")
	}

	return post, nil
}

// UpdatePost replaces the editable fields of post id with the form
func (c *Client) UpdatePost(ctx context.Context, id string, form *PostForm) (*model.Post, error) {
	path, err := postPath(id)
	if err != nil {
		return nil, err
	}
	userID, err := c.UserID()
	if err != nil {
		return nil, err
	}
	req, err := form.request(userID)
	if err != nil {
		return nil, err
	}

	post := new(model.Post)
	if _, err = c.do(ctx, http.MethodPut, path, nil, req, post); err != nil {
		return nil, errors.Wrapf(err, "update post %q", id)
	}

	return post, nil
}

// PatchPost merges the set fields of patch into post id
func (c *Client) PatchPost(ctx context.Context, id string, patch *model.PostPatch) (*model.Post, error) {
	if patch == nil {
		return nil, errors.New("patch is nil")
	}
	path, err := postPath(id)
	if err != nil {
		return nil, err
	}

	post := new(model.Post)
	if _, err = c.do(ctx, http.MethodPatch, path, nil, patch, post); err != nil {
		return nil, errors.Wrapf(err, "patch post %q", id)
	}

	return post, nil
}

// DeletePost removes post id and returns the server acknowledgement
func (c *Client) DeletePost(ctx context.Context, id string) (string, error) {
	path, err := postPath(id)
	if err != nil {
		return "", err
	}

	var resp dto.MessageResponse
	if _, err = c.do(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return "", errors.Wrapf(err, "delete post %q", id)
	}

	return resp.Message, nil
}
