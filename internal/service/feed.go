package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/go-blog-comments/internal/models"
	"github.com/pribylovaa/go-blog-comments/pkg/log"
)

// ListFeedInput — параметры сборки страницы ленты.
//   - Page: по умолчанию 1, значения < 1 поднимаются до 1;
//   - Limit: по умолчанию limits.default, клампится в [1, limits.max];
//   - UserID: пустой для анонима (hasLiked всегда false);
//   - IfNoneMatch: клиентский валидатор кэша (ранее выданный ETag);
//   - ForceRefresh: обходит проверку валидатора; транспорт дополнительно
//     запрещает кэширование ответа.
type ListFeedInput struct {
	Page         int64
	Limit        int64
	UserID       string
	IfNoneMatch  string
	ForceRefresh bool
}

// ListComments собирает страницу ленты: выдача + пагинация + ETag.
//
// Подсчёт и выборка — независимые read-only запросы, выполняются
// конкурентно. Все булевы пагинации считаются из одного значения total,
// чтобы не получить расхождение totalPages и hasNextPage.
//
// Ошибки:
//   - ErrNotModified — валидатор клиента совпал с тегом (HTTP 304);
//   - ErrUnavailable / ErrInternal — по слою storage.
func (s *Service) ListComments(ctx context.Context, in ListFeedInput) (*models.Feed, error) {
	const op = "service/feed/ListComments"

	lg := log.From(ctx).With("op", op, "page", in.Page, "limit", in.Limit)

	page := in.Page
	if page < 1 {
		page = 1
	}

	limit := in.Limit
	if limit <= 0 {
		limit = s.cfg.Limits.Default
	}
	if limit > s.cfg.Limits.Max {
		limit = s.cfg.Limits.Max
	}

	var (
		items []models.Comment
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.storage.CountComments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.storage.Page(gctx, page, limit)
		return err
	})

	if err := g.Wait(); err != nil {
		mapped := mapStorageErr(err)
		if errors.Is(mapped, ErrInternal) {
			lg.Error("storage error on feed fetch", "err", err)
		} else {
			lg.Warn("feed fetch failed", "err", err)
		}
		return nil, fmt.Errorf("%s: %w", op, mapped)
	}

	feed := buildFeed(items, total, page, limit, in.UserID)

	if !in.ForceRefresh && in.IfNoneMatch != "" && in.IfNoneMatch == feed.ETag {
		return nil, fmt.Errorf("%s: %w", op, ErrNotModified)
	}

	return feed, nil
}

// buildFeed — проекция записей хранилища в выдачу:
// liked_by скрывается, вместо него вычисленный hasLiked текущего пользователя.
func buildFeed(items []models.Comment, total, page, limit int64, userID string) *models.Feed {
	comments := make([]models.FeedComment, 0, len(items))
	for i := range items {
		c := &items[i]

		replies := make([]models.FeedReply, 0, len(c.Replies))
		for j := range c.Replies {
			r := &c.Replies[j]
			replies = append(replies, models.FeedReply{
				ID:          r.ID,
				ReplyToUser: r.ReplyToUser,
				Username:    r.Username,
				Avatar:      r.Avatar,
				Content:     r.Content,
				CreatedAt:   r.CreatedAt,
				Likes:       r.Likes,
				HasLiked:    r.HasLiked(userID),
			})
		}

		comments = append(comments, models.FeedComment{
			ID:        c.ID,
			Username:  c.Username,
			Avatar:    c.Avatar,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			Likes:     c.Likes,
			HasLiked:  c.HasLiked(userID),
			Replies:   replies,
		})
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	lastModified := time.Now().UTC()
	if len(comments) > 0 {
		lastModified = comments[0].CreatedAt
	}

	return &models.Feed{
		Comments: comments,
		Pagination: models.Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalComments: total,
			HasNextPage:   page < totalPages,
			HasPrevPage:   page > 1,
		},
		ETag:         feedETag(comments, total),
		LastModified: lastModified,
	}
}

// feedETag — детерминированный отпечаток страницы: SHA-256 от
// канонического JSON содержимого и общего количества. Идентичное
// содержимое даёт идентичный тег; любой лайк/вставка на странице его меняет.
// ВАЖНО: тег считается от содержимого, а не от пары (total, page) —
// лайк меняет страницу, не меняя количество комментариев.
func feedETag(comments []models.FeedComment, total int64) string {
	payload := struct {
		Comments []models.FeedComment
		Total    int64
	}{Comments: comments, Total: total}

	raw, err := json.Marshal(payload)
	if err != nil {
		// Маршалинг plain-структур не падает; ветка для полноты.
		return ""
	}

	sum := sha256.Sum256(raw)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
