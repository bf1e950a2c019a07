package http

// Интеграционные тесты HTTP-слоя поверх httptest: роутер + middleware +
// хендлеры + сервис на замоканном сторадже и верификаторе токенов.
//
//  Проверяем:
//  - POST /comments: создание комментария и ветка ответа (parentId);
//  - GET /comments: конверт выдачи, ETag/Cache-Control, условный запрос 304,
//    force_refresh/_t -> запрет кэширования, 400 на мусорные page/limit;
//  - GET /comments/count;
//  - POST /comments/like: 401 для анонима, 200 для авторизованного,
//    409 на повторный лайк, деградация невалидного токена до анонима;
//  - служебные /livez и /healthz;
//  - формат конверта ошибки с request_id.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-blog-comments/internal/auth"
	"github.com/pribylovaa/go-blog-comments/internal/config"
	"github.com/pribylovaa/go-blog-comments/internal/models"
	"github.com/pribylovaa/go-blog-comments/internal/service"
	"github.com/pribylovaa/go-blog-comments/internal/storage"
	"github.com/pribylovaa/go-blog-comments/mocks"
)

// testEnv — собранный HTTP-стек на моках.
type testEnv struct {
	handler  http.Handler
	store    *mocks.MockStorage
	verifier *mocks.MockTokenVerifier
}

func newTestEnv(t *testing.T) (*testEnv, *gomock.Controller) {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	verifier := mocks.NewMockTokenVerifier(ctrl)

	cfg := config.Config{
		Limits: config.LimitsConfig{Default: 10, Max: 50, MaxContentLen: 1000},
	}
	svc := service.New(store, cfg)

	handler := NewRouter(svc, verifier, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Debug:  false,
	})

	return &testEnv{handler: handler, store: store, verifier: verifier}, ctrl
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func storedComment() *models.Comment {
	return &models.Comment{
		ID:        "507f1f77bcf86cd799439011",
		Username:  "alice",
		Avatar:    models.DefaultAvatar,
		Content:   "hello",
		CreatedAt: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
		Likes:     0,
		LikedBy:   []string{},
		Replies:   []models.Reply{},
	}
}

func TestRouter_CreateComment(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().
		InsertComment(gomock.Any(), gomock.Any()).
		Return(storedComment(), nil)

	rec := doJSON(t, env.handler, http.MethodPost, "/comments", map[string]any{
		"username": "alice",
		"content":  "hello",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message string `json:"message"`
		Comment struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Avatar   string `json:"avatar"`
			HasLiked bool   `json:"hasLiked"`
		} `json:"comment"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "comment saved", resp.Message)
	require.Equal(t, "507f1f77bcf86cd799439011", resp.Comment.ID)
	require.Equal(t, models.DefaultAvatar, resp.Comment.Avatar)
	// liked_by наружу не отдаётся.
	require.NotContains(t, rec.Body.String(), "likedBy")
	require.NotContains(t, rec.Body.String(), "liked_by")
}

func TestRouter_CreateComment_ReplyBranch(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().
		AppendReply(gomock.Any(), "507f1f77bcf86cd799439011", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, reply models.Reply) (*models.Reply, error) {
			out := reply
			out.ID = "2d3b9a1e-5c77-4b6e-9f0a-8f1f77bcf86c"
			out.CreatedAt = time.Date(2025, 3, 14, 12, 1, 0, 0, time.UTC)
			out.LikedBy = []string{}
			return &out, nil
		})

	rec := doJSON(t, env.handler, http.MethodPost, "/comments", map[string]any{
		"username":    "bob",
		"content":     "re: hello",
		"parentId":    "507f1f77bcf86cd799439011",
		"replyToUser": "alice",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message string `json:"message"`
		Reply   struct {
			ID          string `json:"id"`
			ReplyToUser string `json:"replyToUser"`
		} `json:"reply"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "reply saved", resp.Message)
	require.Equal(t, "2d3b9a1e-5c77-4b6e-9f0a-8f1f77bcf86c", resp.Reply.ID)
	require.Equal(t, "alice", resp.Reply.ReplyToUser)
}

// parentId из одних пробелов — не ветка ответа: создаётся корневой комментарий.
func TestRouter_CreateComment_WhitespaceParentID(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().
		InsertComment(gomock.Any(), gomock.Any()).
		Return(storedComment(), nil)

	rec := doJSON(t, env.handler, http.MethodPost, "/comments", map[string]any{
		"username": "alice",
		"content":  "hello",
		"parentId": "   ",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"message":"comment saved"`)
}

func TestRouter_CreateComment_Validation(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	// Пустой контент не доходит до стораджа.
	rec := doJSON(t, env.handler, http.MethodPost, "/comments", map[string]any{
		"username": "alice",
		"content":  "   ",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Неизвестные поля отклоняются strict-декодером.
	rec = doJSON(t, env.handler, http.MethodPost, "/comments", map[string]any{
		"username": "alice",
		"content":  "ok",
		"isAdmin":  true,
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "invalid_argument", resp.Error.Code)
	// request_id всегда присутствует: его генерирует middleware.
	require.NotEmpty(t, resp.Error.RequestID)
}

func TestRouter_ListComments_Headers(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().CountComments(gomock.Any()).Return(int64(1), nil)
	env.store.EXPECT().Page(gomock.Any(), int64(1), int64(10)).
		Return([]models.Comment{*storedComment()}, nil)

	rec := doJSON(t, env.handler, http.MethodGet, "/comments", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=300, s-maxage=600", rec.Header().Get("Cache-Control"))
	require.Equal(t, "Authorization", rec.Header().Get("Vary"))
	require.NotEmpty(t, rec.Header().Get("ETag"))
	require.NotEmpty(t, rec.Header().Get("Last-Modified"))

	var resp struct {
		Comments   []json.RawMessage `json:"comments"`
		Pagination struct {
			CurrentPage   int64 `json:"currentPage"`
			TotalPages    int64 `json:"totalPages"`
			TotalComments int64 `json:"totalComments"`
			HasNextPage   bool  `json:"hasNextPage"`
			HasPrevPage   bool  `json:"hasPrevPage"`
		} `json:"pagination"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Comments, 1)
	require.EqualValues(t, 1, resp.Pagination.CurrentPage)
	require.EqualValues(t, 1, resp.Pagination.TotalPages)
	require.EqualValues(t, 1, resp.Pagination.TotalComments)
}

func TestRouter_ListComments_ConditionalRequest(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().CountComments(gomock.Any()).Return(int64(1), nil).Times(2)
	env.store.EXPECT().Page(gomock.Any(), int64(1), int64(10)).
		Return([]models.Comment{*storedComment()}, nil).Times(2)

	first := doJSON(t, env.handler, http.MethodGet, "/comments", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := doJSON(t, env.handler, http.MethodGet, "/comments", nil, map[string]string{
		"If-None-Match": etag,
	})
	require.Equal(t, http.StatusNotModified, second.Code)
	require.Equal(t, etag, second.Header().Get("ETag"))
	require.Equal(t, "Authorization", second.Header().Get("Vary"))
	require.Empty(t, second.Body.String())
}

// Персональная проекция hasLiked не должна утекать через общие кэши:
// авторизованная выдача обязана нести Vary: Authorization, чтобы
// интермедиарий не отдал страницу пользователя A пользователю B.
func TestRouter_ListComments_VaryByViewer(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	liked := storedComment()
	liked.Likes = 1
	liked.LikedBy = []string{"u1"}

	env.verifier.EXPECT().
		ResolveUserID(gomock.Any(), "tok-u1").
		Return("u1", nil)
	env.store.EXPECT().CountComments(gomock.Any()).Return(int64(1), nil)
	env.store.EXPECT().Page(gomock.Any(), int64(1), int64(10)).
		Return([]models.Comment{*liked}, nil)

	rec := doJSON(t, env.handler, http.MethodGet, "/comments", nil, map[string]string{
		"Authorization": "Bearer tok-u1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"hasLiked":true`)
	require.Equal(t, "Authorization", rec.Header().Get("Vary"))
}

func TestRouter_ListComments_ForceRefresh(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().CountComments(gomock.Any()).Return(int64(1), nil).Times(2)
	env.store.EXPECT().Page(gomock.Any(), int64(1), int64(10)).
		Return([]models.Comment{*storedComment()}, nil).Times(2)

	rec := doJSON(t, env.handler, http.MethodGet, "/comments?force_refresh=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	require.Equal(t, "0", rec.Header().Get("Expires"))
	require.Empty(t, rec.Header().Get("ETag"))

	// Легаси cache-busting параметр старого фронта.
	rec = doJSON(t, env.handler, http.MethodGet, "/comments?_t=1742000000", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestRouter_ListComments_BadQuery(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	for _, target := range []string{
		"/comments?page=abc",
		"/comments?page=-1",
		"/comments?limit=x",
	} {
		rec := doJSON(t, env.handler, http.MethodGet, target, nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestRouter_CountComments(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.store.EXPECT().CountAll(gomock.Any()).Return(int64(42), nil)

	rec := doJSON(t, env.handler, http.MethodGet, "/comments/count", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))

	var resp struct {
		TotalCount int64 `json:"totalCount"`
	}
	decodeBody(t, rec, &resp)
	require.EqualValues(t, 42, resp.TotalCount)
}

func TestRouter_ToggleLike_Anonymous(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	rec := doJSON(t, env.handler, http.MethodPost, "/comments/like", map[string]any{
		"commentId": "507f1f77bcf86cd799439011",
		"action":    "like",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "unauthenticated", resp.Error.Code)
}

func TestRouter_ToggleLike_Authorized(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.verifier.EXPECT().
		ResolveUserID(gomock.Any(), "valid-token").
		Return("u1", nil)
	env.store.EXPECT().
		LikeComment(gomock.Any(), "507f1f77bcf86cd799439011", "u1").
		Return(int64(1), nil)

	rec := doJSON(t, env.handler, http.MethodPost, "/comments/like", map[string]any{
		"commentId": "507f1f77bcf86cd799439011",
		"action":    "like",
	}, map[string]string{"Authorization": "Bearer valid-token"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message  string `json:"message"`
		Likes    int64  `json:"likes"`
		HasLiked bool   `json:"hasLiked"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "liked", resp.Message)
	require.EqualValues(t, 1, resp.Likes)
	require.True(t, resp.HasLiked)
}

func TestRouter_ToggleLike_Conflict(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.verifier.EXPECT().
		ResolveUserID(gomock.Any(), "valid-token").
		Return("u1", nil)
	env.store.EXPECT().
		LikeComment(gomock.Any(), "507f1f77bcf86cd799439011", "u1").
		Return(int64(0), storage.ErrAlreadyLiked)

	rec := doJSON(t, env.handler, http.MethodPost, "/comments/like", map[string]any{
		"commentId": "507f1f77bcf86cd799439011",
		"action":    "like",
	}, map[string]string{"Authorization": "Bearer valid-token"})

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, "already_liked", resp.Error.Code)
}

// Невалидный токен деградирует до анонима: защищённая операция отвечает 401,
// а не 500, и запрос не прерывается на middleware.
func TestRouter_ToggleLike_InvalidTokenDegrades(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.verifier.EXPECT().
		ResolveUserID(gomock.Any(), "bad-token").
		Return("", auth.ErrInvalidToken)

	rec := doJSON(t, env.handler, http.MethodPost, "/comments/like", map[string]any{
		"commentId": "507f1f77bcf86cd799439011",
		"action":    "like",
	}, map[string]string{"Authorization": "Bearer bad-token"})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Невалидный токен не мешает анонимному чтению ленты (hasLiked=false).
func TestRouter_ListComments_InvalidTokenStillAnonymous(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	env.verifier.EXPECT().
		ResolveUserID(gomock.Any(), "bad-token").
		Return("", auth.ErrInvalidToken)
	env.store.EXPECT().CountComments(gomock.Any()).Return(int64(0), nil)
	env.store.EXPECT().Page(gomock.Any(), int64(1), int64(10)).Return([]models.Comment{}, nil)

	rec := doJSON(t, env.handler, http.MethodGet, "/comments", nil, map[string]string{
		"Authorization": "Bearer bad-token",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Ops(t *testing.T) {
	env, ctrl := newTestEnv(t)
	defer ctrl.Finish()

	rec := doJSON(t, env.handler, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.handler, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

// Ready=false переводит /healthz в 503, /livez остаётся 200.
func TestRouter_Healthz_NotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStorage(ctrl)
	svc := service.New(store, config.Config{
		Limits: config.LimitsConfig{Default: 10, Max: 50, MaxContentLen: 1000},
	})

	handler := NewRouter(svc, nil, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Ready:  func() bool { return false },
	})

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

// BasePath монтирует REST-роуты под префиксом, служебные остаются на корне.
func TestRouter_BasePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStorage(ctrl)
	svc := service.New(store, config.Config{
		Limits: config.LimitsConfig{Default: 10, Max: 50, MaxContentLen: 1000},
	})

	handler := NewRouter(svc, nil, Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		BasePath: "/api",
	})

	store.EXPECT().CountAll(gomock.Any()).Return(int64(7), nil)

	rec := doJSON(t, handler, http.MethodGet, "/api/comments/count", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Вне префикса ресурсные роуты не видны.
	rec = doJSON(t, handler, http.MethodGet, "/comments/count", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
