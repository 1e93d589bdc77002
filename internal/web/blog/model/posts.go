// Package model contains all the models used in the application.
package model

import (
	"strings"
	"time"
)

// Post blog post
type Post struct {
	// ID unique identifier, assigned by the store
	ID string `bson:"_id" json:"id"`
	// Title title of the post, must not be blank
	Title string `bson:"title" json:"title"`
	// Content body of the post in markdown
	Content string `bson:"content" json:"content"`
	// Image optional cover image, either a `data:` URL or an http(s) URL
	Image string `bson:"image,omitempty" json:"image,omitempty"`
	// UserID owner of the post, set at creation
	UserID string `bson:"user_id" json:"userId"`
	// AuthorID owner of the post, authoritative for authorization
	AuthorID string `bson:"author_id" json:"authorId"`
	// CreatedAt time when the post was created
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	// UpdatedAt time when the post was last modified
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Collection returns the name of the collection/table for posts
func (Post) Collection() string {
	return "blogs"
}

// IsOwnedBy reports whether userID owns the post
func (p *Post) IsOwnedBy(userID string) bool {
	return userID != "" && p.AuthorID == userID
}

// Clone returns a copy of the post
func (p *Post) Clone() *Post {
	cp := *p
	return &cp
}

// HasInlineImage reports whether the image is embedded as a data URL
func (p *Post) HasInlineImage() bool {
	return strings.HasPrefix(p.Image, "data:")
}

// PostPatch partial update of a post, only non-nil fields are applied
type PostPatch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Image    *string `json:"image,omitempty"`
	UserID   *string `json:"userId,omitempty"`
	AuthorID *string `json:"authorId,omitempty"`
}

// ListOptions filter and pagination for listing posts
type ListOptions struct {
	// AuthorID only return posts with this author
	AuthorID string
	// UserID only return posts with this user
	UserID string
	// Page 1-based page number, 0 disables pagination
	Page int
	// Limit page size, 0 means no limit
	Limit int
	// Desc sort by creation time descending
	Desc bool
}

// Offset returns the number of posts to skip
func (o ListOptions) Offset() int {
	if o.Page <= 1 || o.Limit <= 0 {
		return 0
	}

	return (o.Page - 1) * o.Limit
}
