package controller

import (
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
)

const internalErrorMessage = "internal error"

// client messages of post routes
const (
	msgPostNotFound    = "Blog not found"
	msgUserNotFound    = "User not found"
	msgCreateForbidden = "Invalid user ID"
	msgEditForbidden   = "You are not authorized to edit this blog"
	msgDeleteForbidden = "You are not authorized to delete this blog"
)

// routeMessages replaces the client message of a sentinel on one route
type routeMessages map[error]string

var (
	readMessages = routeMessages{
		model.ErrNotFound: msgPostNotFound,
	}
	userMessages = routeMessages{
		model.ErrNotFound: msgUserNotFound,
	}
	createMessages = routeMessages{
		model.ErrForbidden: msgCreateForbidden,
	}
	editMessages = routeMessages{
		model.ErrNotFound:  msgPostNotFound,
		model.ErrForbidden: msgEditForbidden,
	}
	deleteMessages = routeMessages{
		model.ErrNotFound:  msgPostNotFound,
		model.ErrForbidden: msgDeleteForbidden,
	}
)

// errorStatus maps sentinels to http status.
// detail means the wrapped message is safe to show to the client.
var errorStatus = []struct {
	sentinel error
	status   int
	detail   bool
}{
	{model.ErrUnauthorized, http.StatusUnauthorized, false},
	{model.ErrForbidden, http.StatusForbidden, false},
	{model.ErrNotFound, http.StatusNotFound, false},
	{model.ErrInvalidPost, http.StatusBadRequest, true},
	{model.ErrInvalidQuery, http.StatusBadRequest, true},
	{model.ErrInvalidUser, http.StatusBadRequest, true},
	{model.ErrUserExists, http.StatusBadRequest, false},
	{model.ErrInvalidCredentials, http.StatusBadRequest, false},
	{model.ErrTooManyAttempts, http.StatusTooManyRequests, false},
}

// httpError resolves the status and client message of err,
// msgs overrides the message of matching sentinels
func httpError(err error, msgs routeMessages) (status int, msg string) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.sentinel) {
			continue
		}

		if m, ok := msgs[e.sentinel]; ok {
			return e.status, m
		}
		if e.detail {
			return e.status, detailMessage(err, e.sentinel)
		}
		return e.status, e.sentinel.Error()
	}

	return http.StatusInternalServerError, internalErrorMessage
}

// detailMessage renders `<sentinel>: <detail>` for err wrapping sentinel
func detailMessage(err, sentinel error) string {
	full := err.Error()
	detail := strings.TrimSuffix(full, ": "+sentinel.Error())
	if detail == full || detail == "" {
		return full
	}

	return sentinel.Error() + ": " + detail
}

// abortWithError writes `{"error": msg}`, server errors are logged and masked
func abortWithError(ctx *gin.Context, err error, msgs routeMessages) {
	status, msg := httpError(err, msgs)
	logger := gmw.GetLogger(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err),
			zap.String("path", ctx.FullPath()))
	} else {
		logger.Debug("request rejected", zap.Error(err), zap.Int("status", status))
	}

	ctx.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
}

// maskLoginError drops everything but the failure class from login errors,
// so responses never reveal whether the email exists.
func maskLoginError(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		model.ErrInvalidCredentials,
		model.ErrTooManyAttempts,
	} {
		if errors.Is(err, sentinel) {
			return errors.WithStack(sentinel)
		}
	}

	return err
}
