package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/auth"
)

// TotalCountHeader carries the number of posts matching a list query
const TotalCountHeader = "X-Total-Count"

func (b *Blog) listPosts(ctx *gin.Context) {
	var q dto.ListQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		abortWithError(ctx, errors.Wrapf(model.ErrInvalidQuery, "bind query: %s", err), nil)
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	posts, total, err := b.svc.ListPosts(sctx, q.ListOptions())
	if err != nil {
		abortWithError(ctx, err, nil)
		return
	}

	ctx.Header(TotalCountHeader, strconv.Itoa(total))
	ctx.JSON(http.StatusOK, posts)
}

func (b *Blog) getPost(ctx *gin.Context) {
	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	post, err := b.svc.GetPost(sctx, ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err, readMessages)
		return
	}

	ctx.JSON(http.StatusOK, post)
}

func (b *Blog) getPostHTML(ctx *gin.Context) {
	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	out, err := b.svc.RenderPostHTML(sctx, ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err, readMessages)
		return
	}

	ctx.JSON(http.StatusOK, out)
}

func (b *Blog) createPost(ctx *gin.Context) {
	caller, ok := b.identity(ctx)
	if !ok {
		return
	}

	var req dto.PostRequest
	if !bindJSON(ctx, &req, model.ErrInvalidPost) {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	post, err := b.svc.CreatePost(sctx, caller, req.Post())
	if err != nil {
		abortWithError(ctx, err, createMessages)
		return
	}

	ctx.JSON(http.StatusCreated, post)
}

// bindOwnedJSON decodes the body of a mutation on post :id.
// A body that fails to decode is reported only after the caller passes
// the existence and ownership checks.
func (b *Blog) bindOwnedJSON(sctx context.Context, ctx *gin.Context,
	caller auth.Identity, obj any) bool {
	err := ctx.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	if gateErr := b.svc.AuthorizePost(sctx, caller, ctx.Param("id")); gateErr != nil {
		abortWithError(ctx, gateErr, editMessages)
		return false
	}

	abortWithError(ctx, errors.Wrapf(model.ErrInvalidPost, "decode body: %s", err), nil)
	return false
}

func (b *Blog) updatePost(ctx *gin.Context) {
	caller, ok := b.identity(ctx)
	if !ok {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var req dto.PostRequest
	if !b.bindOwnedJSON(sctx, ctx, caller, &req) {
		return
	}

	post, err := b.svc.UpdatePost(sctx, caller, ctx.Param("id"), req.Post())
	if err != nil {
		abortWithError(ctx, err, editMessages)
		return
	}

	ctx.JSON(http.StatusOK, post)
}

func (b *Blog) patchPost(ctx *gin.Context) {
	caller, ok := b.identity(ctx)
	if !ok {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	patch := new(model.PostPatch)
	if !b.bindOwnedJSON(sctx, ctx, caller, patch) {
		return
	}

	post, err := b.svc.PatchPost(sctx, caller, ctx.Param("id"), patch)
	if err != nil {
		abortWithError(ctx, err, editMessages)
		return
	}

	ctx.JSON(http.StatusOK, post)
}

func (b *Blog) deletePost(ctx *gin.Context) {
	caller, ok := b.identity(ctx)
	if !ok {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.svc.DeletePost(sctx, caller, ctx.Param("id")); err != nil {
		abortWithError(ctx, err, deleteMessages)
		return
	}

	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: dto.DeletedMessage})
}
