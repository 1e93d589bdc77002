package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

func TestServerAttachesContextLogger(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	var loggerNotNil, ginCtxFound bool
	srv, err := NewServer(log.Logger, Config{}, routerFunc(func(r gin.IRouter) {
		r.GET("/blogs/:id", func(c *gin.Context) {
			logger := gmw.GetLogger(c).Named("get_post").With(
				zap.String("id", c.Param("id")),
			)
			loggerNotNil = logger != nil
			logger.Debug("load post")

			// services receive the gin context as a std context
			_, ginCtxFound = gmw.GetGinCtxFromStdCtx(context.Context(c))

			c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
		})
	}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blogs/42", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "42")
	require.True(t, loggerNotNil, "logger should be accessible from context")
	require.True(t, ginCtxFound, "gin context should be found in std context")
}

func TestLoggerFallbackWhenNoGinContext(t *testing.T) {
	t.Parallel()

	logger := gmw.GetLogger(context.Background())
	require.NotNil(t, logger, "logger should have a fallback when no gin context")
	logger.Debug("fallback logger test")
}
