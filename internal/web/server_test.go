package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

var (
	ginModeOnce sync.Once
)

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type routerFunc func(r gin.IRouter)

func (f routerFunc) RegisterRoutes(r gin.IRouter) { f(r) }

func newTestServer(t *testing.T, origins ...string) *Server {
	t.Helper()
	setupGinTestMode()

	if len(origins) == 0 {
		origins = []string{DefaultAllowedOrigin, "https://blog.example.com/"}
	}
	srv, err := NewServer(log.Logger, Config{AllowedOrigins: origins},
		routerFunc(func(r gin.IRouter) {
			r.GET("/blogs", func(ctx *gin.Context) {
				ctx.JSON(http.StatusOK, []string{})
			})
			r.POST("/blogs", func(ctx *gin.Context) {
				ctx.Status(http.StatusCreated)
			})
		}))
	require.NoError(t, err)
	return srv
}

func TestAllowCORS(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		origin         string
		expectedStatus int
		expectedOrigin string
	}{
		{
			name:           "no origin header passes through",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "allowed origin GET",
			method:         http.MethodGet,
			origin:         "http://localhost:5173",
			expectedStatus: http.StatusOK,
			expectedOrigin: "http://localhost:5173",
		},
		{
			name:           "allowed origin POST",
			method:         http.MethodPost,
			origin:         "https://blog.example.com",
			expectedStatus: http.StatusCreated,
			expectedOrigin: "https://blog.example.com",
		},
		{
			name:           "allowed origin preflight",
			method:         http.MethodOptions,
			origin:         "https://blog.example.com",
			expectedStatus: http.StatusNoContent,
			expectedOrigin: "https://blog.example.com",
		},
		{
			name:           "case insensitive match",
			method:         http.MethodGet,
			origin:         "https://Blog.EXAMPLE.com",
			expectedStatus: http.StatusOK,
			expectedOrigin: "https://Blog.EXAMPLE.com",
		},
		{
			name:           "disallowed origin preflight",
			method:         http.MethodOptions,
			origin:         "https://evil.com",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "disallowed origin GET gets no cors headers",
			method:         http.MethodGet,
			origin:         "https://evil.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "suffix of allowed origin",
			method:         http.MethodGet,
			origin:         "https://blog.example.com.evil.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "scheme must match",
			method:         http.MethodOptions,
			origin:         "http://blog.example.com",
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/blogs", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.expectedOrigin == "" {
				require.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
				return
			}

			require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			require.Equal(t, "GET, POST, PUT, DELETE, PATCH, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			require.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
			require.Equal(t, "X-Total-Count", w.Header().Get("Access-Control-Expose-Headers"))
			require.Equal(t, "Origin", w.Header().Get("Vary"))
		})
	}
}

func TestNewServerRejectsBadOrigins(t *testing.T) {
	t.Parallel()
	setupGinTestMode()

	for _, origins := range [][]string{
		{"*"},
		{"blog.example.com"},
		{"http://localhost:5173", "ftp://files.example.com"},
	} {
		_, err := NewServer(log.Logger, Config{AllowedOrigins: origins})
		require.Error(t, err, origins)
	}

	_, err := NewServer(nil, Config{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPost} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(method, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code, method)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	t.Parallel()
	setupGinTestMode()

	srv, err := NewServer(log.Logger, Config{}, routerFunc(func(r gin.IRouter) {
		r.GET("/panic", func(*gin.Context) { panic("boom") })
	}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "hello, world", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
