package service

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/jinzhu/copier"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/auth"
)

// PostHTML is a post rendered from markdown
type PostHTML struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
	Menu  string `json:"menu"`
}

// ListPosts load one page of posts and the total number of matches
func (s *Blog) ListPosts(ctx context.Context, opt model.ListOptions) ([]*model.Post, int, error) {
	opt, err := sanitizeListOptions(opt)
	if err != nil {
		return nil, 0, err
	}

	posts, total, err := s.store.ListPosts(ctx, opt)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list posts")
	}

	return posts, total, nil
}

// GetPost load post by id
func (s *Blog) GetPost(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get post %q", id)
	}

	return post, nil
}

// RenderPostHTML renders the markdown content of a post
func (s *Blog) RenderPostHTML(ctx context.Context, id string) (*PostHTML, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	html := ParseMarkdown2HTML([]byte(post.Content))
	return &PostHTML{
		ID:    post.ID,
		Title: post.Title,
		HTML:  html,
		Menu:  ExtractMenu(html),
	}, nil
}

// CreatePost insert new post owned by the caller.
//
// in.UserID must be the caller, and in.AuthorID, if set, too.
func (s *Blog) CreatePost(ctx context.Context, caller auth.Identity, in *model.Post) (*model.Post, error) {
	if caller.IsZero() {
		return nil, errors.WithStack(model.ErrUnauthorized)
	}
	if in.UserID != caller.UserID {
		return nil, errors.Wrapf(model.ErrForbidden, "userId %q does not match the caller", in.UserID)
	}
	if in.AuthorID != "" && in.AuthorID != caller.UserID {
		return nil, errors.Wrapf(model.ErrForbidden, "authorId %q does not match the caller", in.AuthorID)
	}

	post := in.Clone()
	if err := sanitizePostBody(post); err != nil {
		return nil, err
	}
	if err := s.offloadImage(ctx, post); err != nil {
		return nil, err
	}

	now := s.utcNow()
	post.ID = ""
	post.UserID = caller.UserID
	post.AuthorID = caller.UserID
	post.CreatedAt = now
	post.UpdatedAt = now
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, errors.Wrap(err, "insert post")
	}

	s.logger.Info("create post", zap.String("post", post.ID), zap.String("user", caller.UserID))
	return post, nil
}

// loadOwnedPost is the gate shared by every mutation:
// credential first, then existence, then ownership.
func (s *Blog) loadOwnedPost(ctx context.Context, caller auth.Identity, id string) (*model.Post, error) {
	if caller.IsZero() {
		return nil, errors.WithStack(model.ErrUnauthorized)
	}

	stored, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get post %q", id)
	}

	if !stored.IsOwnedBy(caller.UserID) {
		return nil, errors.Wrapf(model.ErrForbidden, "post %q is not owned by %q", id, caller.UserID)
	}

	return stored, nil
}

// AuthorizePost runs the mutation gate of post id without writing
func (s *Blog) AuthorizePost(ctx context.Context, caller auth.Identity, id string) error {
	_, err := s.loadOwnedPost(ctx, caller, id)
	return err
}

// UpdatePost replaces the post body, owner fields are kept from the stored post
func (s *Blog) UpdatePost(ctx context.Context, caller auth.Identity, id string, in *model.Post) (*model.Post, error) {
	stored, err := s.loadOwnedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	post := in.Clone()
	return s.replace(ctx, caller, stored, post)
}

// PatchPost merges the set fields of patch onto the stored post
func (s *Blog) PatchPost(ctx context.Context, caller auth.Identity, id string, patch *model.PostPatch) (*model.Post, error) {
	stored, err := s.loadOwnedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	post := stored.Clone()
	if err = copier.CopyWithOption(post, patch, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, errors.Wrap(err, "merge patch")
	}

	return s.replace(ctx, caller, stored, post)
}

// replace validates post and stores it in place of stored
func (s *Blog) replace(ctx context.Context, caller auth.Identity, stored, post *model.Post) (*model.Post, error) {
	post.ID = stored.ID
	post.UserID = stored.UserID
	post.AuthorID = stored.AuthorID
	post.CreatedAt = stored.CreatedAt
	post.UpdatedAt = s.utcNow()

	if err := sanitizePostBody(post); err != nil {
		return nil, err
	}
	if err := s.offloadImage(ctx, post); err != nil {
		return nil, err
	}

	if err := s.store.ReplacePost(ctx, post); err != nil {
		return nil, errors.Wrapf(err, "replace post %q", post.ID)
	}

	s.logger.Info("update post", zap.String("post", post.ID), zap.String("user", caller.UserID))
	return post, nil
}

// DeletePost removes a post owned by the caller
func (s *Blog) DeletePost(ctx context.Context, caller auth.Identity, id string) error {
	stored, err := s.loadOwnedPost(ctx, caller, id)
	if err != nil {
		return err
	}

	if err = s.store.RemovePost(ctx, stored.ID); err != nil {
		return errors.Wrapf(err, "remove post %q", stored.ID)
	}

	s.logger.Info("delete post", zap.String("post", stored.ID), zap.String("user", caller.UserID))
	return nil
}

// offloadImage replaces an inline image with its uploaded URL
func (s *Blog) offloadImage(ctx context.Context, post *model.Post) error {
	if s.images == nil || !post.HasInlineImage() {
		return nil
	}

	url, err := s.images.Upload(ctx, post.Image)
	if err != nil {
		return errors.Wrap(err, "upload image")
	}

	post.Image = url
	return nil
}
