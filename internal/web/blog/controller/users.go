package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

func (b *Blog) register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(ctx, &req, model.ErrInvalidUser) {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ret, err := b.svc.Register(sctx, req.Email, req.Password, req.Name)
	if err != nil {
		abortWithError(ctx, err, nil)
		return
	}

	ctx.JSON(http.StatusCreated, ret)
}

func (b *Blog) login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(ctx, &req, model.ErrInvalidCredentials) {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ret, err := b.svc.Login(sctx, req.Email, req.Password)
	if err != nil {
		abortWithError(ctx, maskLoginError(err), nil)
		return
	}

	ctx.JSON(http.StatusOK, ret)
}

// getUser serves profiles to signed-in callers only, they carry the email
func (b *Blog) getUser(ctx *gin.Context) {
	if _, ok := b.identity(ctx); !ok {
		return
	}

	sctx, cancel := b.withTimeout(ctx)
	defer cancel()

	u, err := b.svc.GetUser(sctx, ctx.Param("id"))
	if err != nil {
		abortWithError(ctx, err, userMessages)
		return
	}

	ctx.JSON(http.StatusOK, u)
}
