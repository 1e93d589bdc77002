// Package dto request and response bodies of the blog api
package dto

import (
	"strings"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

// Sort orders accepted by `_order`
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// RegisterRequest body of `POST /register`
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest body of `POST /login`
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostRequest body of `POST /blogs` and `PUT /blogs/:id`
type PostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Image    string `json:"image,omitempty"`
	UserID   string `json:"userId,omitempty"`
	AuthorID string `json:"authorId,omitempty"`
}

// Post converts the request into a post
func (r *PostRequest) Post() *model.Post {
	return &model.Post{
		Title:    r.Title,
		Content:  r.Content,
		Image:    r.Image,
		UserID:   r.UserID,
		AuthorID: r.AuthorID,
	}
}

// ListQuery query string of `GET /blogs`
type ListQuery struct {
	AuthorID string `form:"authorId"`
	UserID   string `form:"userId"`
	Page     int    `form:"_page" binding:"min=0"`
	Limit    int    `form:"_limit" binding:"min=0"`
	Order    string `form:"_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ListOptions converts the query into store list options
func (q *ListQuery) ListOptions() model.ListOptions {
	return model.ListOptions{
		AuthorID: q.AuthorID,
		UserID:   q.UserID,
		Page:     q.Page,
		Limit:    q.Limit,
		Desc:     strings.EqualFold(q.Order, OrderDesc),
	}
}

// MessageResponse generic acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// DeletedMessage acknowledges a removed post
const DeletedMessage = "Blog deleted successfully"
