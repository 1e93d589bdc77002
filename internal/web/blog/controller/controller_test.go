package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dao"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dto"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/internal/web/blog/service"
	"github.com/Laisky/laisky-blog-rest/library/auth"
	"github.com/Laisky/laisky-blog-rest/library/jwt"
	"github.com/Laisky/laisky-blog-rest/library/log"
	"github.com/Laisky/laisky-blog-rest/library/throttle"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type testAPI struct {
	router *gin.Engine
	store  dao.Store
	issuer *jwt.Issuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	setupGinTestMode()

	issuer, err := jwt.New([]byte("0123456789abcdef0123456789abcdef"), jwt.WithClock(time.Now))
	require.NoError(t, err)
	authenticator, err := auth.New(issuer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	th, err := throttle.NewMemory(ctx, 3, time.Minute)
	require.NoError(t, err)

	store := dao.NewMemory()
	svc, err := service.New(log.Logger, store, issuer, service.WithLoginThrottle(th))
	require.NoError(t, err)

	ctrl, err := New(svc, authenticator)
	require.NoError(t, err)

	router := gin.New()
	router.Use(gmw.NewLoggerMiddleware(gmw.WithLogger(log.Logger)))
	ctrl.RegisterRoutes(router)

	return &testAPI{router: router, store: store, issuer: issuer}
}

func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := a.issuer.Sign(userID, userID+"@example.com")
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) seed(t *testing.T, id, owner string) {
	t.Helper()
	require.NoError(t, a.store.InsertPost(context.Background(), &model.Post{
		ID: id, Title: "A", Content: "body", UserID: owner, AuthorID: owner,
	}))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, msg, decode[dto.ErrorResponse](t, w).Error)
}

func TestUpdatePostOwnership(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.seed(t, "1", "u1")

	w := api.do(t, http.MethodPut, "/blogs/1", api.token(t, "u2"), dto.PostRequest{Title: "B"})
	requireError(t, w, http.StatusForbidden, msgEditForbidden)

	w = api.do(t, http.MethodPut, "/blogs/1", api.token(t, "u1"),
		map[string]string{"title": "B", "authorId": "u2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	post := decode[model.Post](t, w)
	require.Equal(t, "B", post.Title)
	require.Equal(t, "u1", post.AuthorID)

	stored, err := api.store.GetPost(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "B", stored.Title)
	require.Equal(t, "u1", stored.AuthorID)
	require.Equal(t, "u1", stored.UserID)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.seed(t, "1", "u1")

	w := api.do(t, http.MethodDelete, "/blogs/999", api.token(t, "u1"), nil)
	requireError(t, w, http.StatusNotFound, msgPostNotFound)

	w = api.do(t, http.MethodDelete, "/blogs/1", api.token(t, "u2"), nil)
	requireError(t, w, http.StatusForbidden, msgDeleteForbidden)

	w = api.do(t, http.MethodDelete, "/blogs/1", api.token(t, "u1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, dto.DeletedMessage, decode[dto.MessageResponse](t, w).Message)

	w = api.do(t, http.MethodGet, "/blogs/1", "", nil)
	requireError(t, w, http.StatusNotFound, msgPostNotFound)
}

func TestMutationsRequireBearer(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.seed(t, "1", "u1")

	expired, err := jwt.New([]byte("0123456789abcdef0123456789abcdef"),
		jwt.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	expiredToken, err := expired.Sign("u1", "u1@example.com")
	require.NoError(t, err)

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer not-a-jwt", "Bearer " + expiredToken} {
		for _, req := range []struct{ method, path string }{
			{http.MethodPost, "/blogs"},
			{http.MethodPut, "/blogs/1"},
			{http.MethodPatch, "/blogs/1"},
			{http.MethodDelete, "/blogs/1"},
			{http.MethodDelete, "/blogs/999"},
		} {
			r := httptest.NewRequest(req.method, req.path, strings.NewReader(`{"title":"x","userId":"u1"}`))
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			api.router.ServeHTTP(w, r)
			requireError(t, w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
		}
	}

	stored, err := api.store.GetPost(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "A", stored.Title)
}

func TestCreatePost(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token := api.token(t, "u1")

	w := api.do(t, http.MethodPost, "/blogs", token, dto.PostRequest{Title: "T", Content: "c", UserID: "u2"})
	requireError(t, w, http.StatusForbidden, msgCreateForbidden)

	w = api.do(t, http.MethodPost, "/blogs", token, dto.PostRequest{Title: " ", UserID: "u1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	msg := decode[dto.ErrorResponse](t, w).Error
	require.True(t, strings.HasPrefix(msg, model.ErrInvalidPost.Error()+": "), msg)
	require.Contains(t, msg, "title is required")

	w = api.do(t, http.MethodPost, "/blogs", token, `{"title": `)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/blogs", token, dto.PostRequest{Title: "T", Content: "c", UserID: "u1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[model.Post](t, w)
	require.NotEmpty(t, post.ID)
	require.Equal(t, "u1", post.AuthorID)

	_, total, err := api.store.ListPosts(context.Background(), model.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestPatchPost(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.seed(t, "1", "u1")

	w := api.do(t, http.MethodPatch, "/blogs/1", api.token(t, "u2"), map[string]string{"title": "x"})
	requireError(t, w, http.StatusForbidden, msgEditForbidden)

	w = api.do(t, http.MethodPatch, "/blogs/1", api.token(t, "u1"),
		map[string]string{"content": "patched", "userId": "u2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	post := decode[model.Post](t, w)
	require.Equal(t, "A", post.Title)
	require.Equal(t, "patched", post.Content)
	require.Equal(t, "u1", post.UserID)
}

func TestListPosts(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.seed(t, "1", "u1")
	api.seed(t, "2", "u2")
	api.seed(t, "3", "u1")

	w := api.do(t, http.MethodGet, "/blogs?authorId=u1&_page=1&_limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "2", w.Header().Get(TotalCountHeader))
	require.Len(t, decode[[]model.Post](t, w), 1)

	w = api.do(t, http.MethodGet, "/blogs", "", nil)
	require.Equal(t, "3", w.Header().Get(TotalCountHeader))
	require.Len(t, decode[[]model.Post](t, w), 3)

	for _, q := range []string{"_limit=201", "_limit=abc", "_page=-1", "_order=sideways"} {
		w = api.do(t, http.MethodGet, "/blogs?"+q, "", nil)
		require.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetPostHTML(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	require.NoError(t, api.store.InsertPost(context.Background(), &model.Post{
		ID: "md", Title: "T", Content: "*hi*", UserID: "u1", AuthorID: "u1",
	}))

	w := api.do(t, http.MethodGet, "/blogs/md/html", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[service.PostHTML](t, w)
	require.Equal(t, "md", out.ID)
	require.Contains(t, out.HTML, "<em>hi</em>")

	w = api.do(t, http.MethodGet, "/blogs/nope/html", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/register", "",
		dto.RegisterRequest{Email: "Gina@Example.com", Password: "secret", Name: "gina"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[service.AuthResult](t, w)
	require.NotEmpty(t, reg.AccessToken)
	require.Equal(t, "gina@example.com", reg.User.Email)
	require.NotContains(t, w.Body.String(), "password")

	w = api.do(t, http.MethodPost, "/register", "",
		dto.RegisterRequest{Email: "gina@example.com", Password: "secret"})
	requireError(t, w, http.StatusBadRequest, "Email already exists")

	w = api.do(t, http.MethodPost, "/register", "", dto.RegisterRequest{Email: "x@example.com", Password: "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Email: "gina@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[service.AuthResult](t, w)
	require.Equal(t, reg.User.ID, login.User.ID)

	// the token from login authorizes mutations
	w = api.do(t, http.MethodPost, "/blogs", login.AccessToken,
		dto.PostRequest{Title: "T", UserID: reg.User.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// profiles carry the email, anonymous callers get nothing
	w = api.do(t, http.MethodGet, "/users/"+reg.User.ID, "", nil)
	requireError(t, w, http.StatusUnauthorized, model.ErrUnauthorized.Error())
	require.NotContains(t, w.Body.String(), "gina@example.com")

	w = api.do(t, http.MethodGet, "/users/"+reg.User.ID, api.token(t, "someone-else"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gina", decode[model.PublicUser](t, w).Name)

	w = api.do(t, http.MethodGet, "/users/nobody", login.AccessToken, nil)
	requireError(t, w, http.StatusNotFound, msgUserNotFound)
}

func TestLoginFailuresAreMaskedAndThrottled(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/register", "", dto.RegisterRequest{Email: "h@example.com", Password: "secret"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Email: "nobody@example.com", Password: "secret"})
	requireError(t, w, http.StatusBadRequest, model.ErrInvalidCredentials.Error())

	for i := 0; i < 3; i++ {
		w = api.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Email: "h@example.com", Password: "wrong"})
		requireError(t, w, http.StatusBadRequest, model.ErrInvalidCredentials.Error())
	}

	w = api.do(t, http.MethodPost, "/login", "", dto.LoginRequest{Email: "h@example.com", Password: "secret"})
	requireError(t, w, http.StatusTooManyRequests, model.ErrTooManyAttempts.Error())
}

func TestMutationGateRunsBeforeBodyDecode(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.seed(t, "1", "u1")

	cases := []struct {
		method, path, user, body string
		status                   int
		msg                      string
	}{
		{http.MethodPut, "/blogs/1", "u2", `{"userId": 5}`, http.StatusForbidden, msgEditForbidden},
		{http.MethodPut, "/blogs/999", "u1", `{"userId": 5}`, http.StatusNotFound, msgPostNotFound},
		{http.MethodPut, "/blogs/999", "u2", `{"title": `, http.StatusNotFound, msgPostNotFound},
		{http.MethodPatch, "/blogs/1", "u2", `{"title": 5}`, http.StatusForbidden, msgEditForbidden},
		{http.MethodPatch, "/blogs/999", "u1", `not json`, http.StatusNotFound, msgPostNotFound},
	}
	for _, tc := range cases {
		w := api.do(t, tc.method, tc.path, api.token(t, tc.user), tc.body)
		requireError(t, w, tc.status, tc.msg)
	}

	// the owner gets the decode failure
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		w := api.do(t, method, "/blogs/1", api.token(t, "u1"), `{"title": 5}`)
		require.Equal(t, http.StatusBadRequest, w.Code, method)
		require.Contains(t, decode[dto.ErrorResponse](t, w).Error, model.ErrInvalidPost.Error()+": decode body")
	}

	stored, err := api.store.GetPost(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "A", stored.Title)
}
