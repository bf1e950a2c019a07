package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-blog-comments/internal/service"
	"github.com/pribylovaa/go-blog-comments/internal/transport/http/httperr"
	"github.com/pribylovaa/go-blog-comments/internal/transport/http/middleware"
)

// Политика кэширования ленты: та же, что выдавал исходный фронтовый API.
const (
	cacheControlPublic  = "public, max-age=300, s-maxage=600"
	cacheControlNoStore = "no-cache, no-store, must-revalidate"
	cacheControlCount   = "public, max-age=300"
)

// CreateComment — POST /comments.
// Непустой parentId переключает запрос в режим дозаписи ответа.
// Аутентификация не требуется: комментарии подписываются свободным username.
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in CreateCommentRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument, h.debug)
		return
	}

	if in.ParentID = strings.TrimSpace(in.ParentID); in.ParentID != "" {
		reply, err := h.svc.CreateReply(r.Context(), service.CreateReplyInput{
			ParentID:    in.ParentID,
			ReplyToUser: in.ReplyToUser,
			Username:    in.Username,
			Content:     in.Content,
			Avatar:      in.Avatar,
			CreatedAt:   in.CreatedAt,
		})
		if err != nil {
			httperr.WriteError(w, r, err, h.debug)
			return
		}

		writeJSON(w, http.StatusCreated, CreateReplyResponse{
			Message: "reply saved",
			Reply:   replyViewFromModel(reply),
		})
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), service.CreateCommentInput{
		Username:  in.Username,
		Content:   in.Content,
		Avatar:    in.Avatar,
		CreatedAt: in.CreatedAt,
	})
	if err != nil {
		httperr.WriteError(w, r, err, h.debug)
		return
	}

	writeJSON(w, http.StatusCreated, CreateCommentResponse{
		Message: "comment saved",
		Comment: commentViewFromModel(comment),
	})
}

// ListComments — GET /comments?page=&limit=&force_refresh=.
// Поддерживает условные запросы: If-None-Match против ETag страницы.
// Легаси-параметр _t (cache-busting таймстемп старого фронта)
// трактуется как force_refresh.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var in service.ListFeedInput

	if v := q.Get("page"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			httperr.WriteError(w, r, service.ErrInvalidArgument, h.debug)
			return
		}

		in.Page = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			httperr.WriteError(w, r, service.ErrInvalidArgument, h.debug)
			return
		}

		in.Limit = n
	}

	if v := q.Get("force_refresh"); v == "1" || v == "true" {
		in.ForceRefresh = true
	}
	if q.Has("_t") {
		in.ForceRefresh = true
	}

	in.UserID = middleware.UserIDFrom(r.Context())
	in.IfNoneMatch = r.Header.Get("If-None-Match")

	feed, err := h.svc.ListComments(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrNotModified) {
			w.Header().Set("Cache-Control", cacheControlPublic)
			w.Header().Set("Vary", "Authorization")
			w.Header().Set("ETag", in.IfNoneMatch)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		httperr.WriteError(w, r, err, h.debug)
		return
	}

	if in.ForceRefresh {
		w.Header().Set("Cache-Control", cacheControlNoStore)
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
	} else {
		w.Header().Set("Cache-Control", cacheControlPublic)
		w.Header().Set("ETag", feed.ETag)
	}
	// Тело зависит от зрителя (hasLiked), поэтому общие кэши обязаны
	// ключевать ответ по Authorization — иначе страница пользователя A
	// уедет пользователю B или анониму.
	w.Header().Set("Vary", "Authorization")
	w.Header().Set("Last-Modified", feed.LastModified.UTC().Format(http.TimeFormat))

	writeJSON(w, http.StatusOK, feedResponseFromModel(feed))
}

// CountComments — GET /comments/count: корневые + все ответы.
func (h *Handlers) CountComments(w http.ResponseWriter, r *http.Request) {
	total, err := h.svc.CountComments(r.Context())
	if err != nil {
		httperr.WriteError(w, r, err, h.debug)
		return
	}

	w.Header().Set("Cache-Control", cacheControlCount)
	writeJSON(w, http.StatusOK, CountResponse{TotalCount: total})
}

// ToggleLike — POST /comments/like. Требует аутентифицированного
// пользователя; аноним получает 401 из сервисного слоя.
func (h *Handlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var in ToggleLikeRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument, h.debug)
		return
	}

	likes, hasLiked, err := h.svc.ToggleLike(r.Context(), service.ToggleLikeInput{
		CommentID: in.CommentID,
		ReplyID:   in.ReplyID,
		Action:    in.Action,
		UserID:    middleware.UserIDFrom(r.Context()),
	})
	if err != nil {
		httperr.WriteError(w, r, err, h.debug)
		return
	}

	msg := "liked"
	if !hasLiked {
		msg = "unliked"
	}

	writeJSON(w, http.StatusOK, ToggleLikeResponse{
		Message:  msg,
		Likes:    likes,
		HasLiked: hasLiked,
	})
}
