package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pribylovaa/go-blog-comments/internal/models"
	"github.com/pribylovaa/go-blog-comments/pkg/log"
)

// Входные структуры сервисного слоя.

// CreateCommentInput — создание корневого комментария.
// Правила:
//   - Username и Content нормализуются (TrimSpace) и не должны быть пустыми;
//   - Content после нормализации не длиннее limits.max_content_len
//     (превышение — ошибка валидации, без молчаливого усечения);
//   - Avatar непрозрачен; пустое значение заменяется дефолтным;
//   - CreatedAt уважается, если передан (клиентский порядок при clock skew),
//     иначе время проставит хранилище.
type CreateCommentInput struct {
	Username  string
	Content   string
	Avatar    string
	CreatedAt time.Time
}

// CreateReplyInput — дозапись ответа к существующему родителю.
// Те же правила валидации, что и у CreateCommentInput;
// ReplyToUser — отображаемое имя адресата, без проверки существования.
type CreateReplyInput struct {
	ParentID    string
	ReplyToUser string
	Username    string
	Content     string
	Avatar      string
	CreatedAt   time.Time
}

// ToggleLikeInput — переключение лайка.
// Пустой ReplyID означает like/unlike самого комментария,
// непустой — конкретного ответа внутри него.
type ToggleLikeInput struct {
	CommentID string
	ReplyID   string
	Action    string // "like" | "unlike"
	UserID    string
}

const (
	ActionLike   = "like"
	ActionUnlike = "unlike"
)

// validateAuthored — общая валидация username/content с нормализацией.
func (s *Service) validateAuthored(username, content string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", fmt.Errorf("empty username: %w", ErrInvalidArgument)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", "", fmt.Errorf("empty content: %w", ErrInvalidArgument)
	}

	if utf8.RuneCountInString(content) > s.cfg.Limits.MaxContentLen {
		return "", "", fmt.Errorf("content too long: %w", ErrInvalidArgument)
	}

	return username, content, nil
}

// CreateComment — бизнес-операция создания корневого комментария.
//
// Поведение/ошибки:
//   - ErrInvalidArgument — пустой username/content или слишком длинный content;
//   - ErrUnavailable — сторадж недоступен (ретраибельно);
//   - ErrInternal — прочие ошибки стораджа.
func (s *Service) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	const op = "service/comments/CreateComment"

	lg := log.From(ctx).With("op", op)

	username, content, err := s.validateAuthored(in.Username, in.Content)
	if err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avatar := strings.TrimSpace(in.Avatar)
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	comm := models.Comment{
		Username:  username,
		Avatar:    avatar,
		Content:   content,
		CreatedAt: in.CreatedAt,
	}

	result, err := s.storage.InsertComment(ctx, comm)
	if err != nil {
		mapped := mapStorageErr(err)
		if errors.Is(mapped, ErrInternal) {
			lg.Error("storage error on InsertComment", "err", err)
		} else {
			lg.Warn("insert rejected", "err", err)
		}
		return nil, fmt.Errorf("%s: %w", op, mapped)
	}

	return result, nil
}

// CreateReply — бизнес-операция дозаписи ответа.
//
// Поведение/ошибки:
//   - ErrInvalidArgument — пустой parent_id/username/content, длинный content;
//   - ErrNotFound — родительский комментарий отсутствует;
//   - ErrUnavailable / ErrInternal — по слою storage.
func (s *Service) CreateReply(ctx context.Context, in CreateReplyInput) (*models.Reply, error) {
	const op = "service/comments/CreateReply"

	in.ParentID = strings.TrimSpace(in.ParentID)
	lg := log.From(ctx).With("op", op, "parent_id", in.ParentID)

	if in.ParentID == "" {
		lg.Warn("invalid argument: empty parent_id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	username, content, err := s.validateAuthored(in.Username, in.Content)
	if err != nil {
		lg.Warn("invalid argument", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avatar := strings.TrimSpace(in.Avatar)
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	reply := models.Reply{
		ReplyToUser: strings.TrimSpace(in.ReplyToUser),
		Username:    username,
		Avatar:      avatar,
		Content:     content,
		CreatedAt:   in.CreatedAt,
	}

	result, err := s.storage.AppendReply(ctx, in.ParentID, reply)
	if err != nil {
		mapped := mapStorageErr(err)
		switch {
		case errors.Is(mapped, ErrNotFound):
			lg.Warn("parent not found")
		case errors.Is(mapped, ErrInternal):
			lg.Error("storage error on AppendReply", "err", err)
		default:
			lg.Warn("append rejected", "err", err)
		}
		return nil, fmt.Errorf("%s: %w", op, mapped)
	}

	return result, nil
}

// ToggleLike — переключение лайка комментария или ответа.
//
// Валидация:
//   - UserID обязателен (аноним -> ErrUnauthenticated);
//   - CommentID обязателен; Action — строго "like"/"unlike".
//
// Поведение/ошибки:
//   - ErrAlreadyLiked — повторный like (явная ошибка, не no-op);
//   - ErrNotLiked — unlike без лайка;
//   - ErrNotFound — нет комментария/ответа;
//   - ErrUnavailable / ErrInternal — по слою storage.
//
// Возвращает итоговый счётчик лайков и новое состояние hasLiked.
func (s *Service) ToggleLike(ctx context.Context, in ToggleLikeInput) (int64, bool, error) {
	const op = "service/comments/ToggleLike"

	in.CommentID = strings.TrimSpace(in.CommentID)
	in.ReplyID = strings.TrimSpace(in.ReplyID)

	lg := log.From(ctx).With(
		"op", op,
		"comment_id", in.CommentID,
		"reply_id", in.ReplyID,
		"action", in.Action,
	)

	if in.UserID == "" {
		lg.Warn("unauthenticated like attempt")
		return 0, false, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if in.CommentID == "" {
		lg.Warn("invalid argument: empty comment_id")
		return 0, false, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if in.Action != ActionLike && in.Action != ActionUnlike {
		lg.Warn("invalid argument: bad action")
		return 0, false, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	var (
		likes int64
		err   error
	)

	switch {
	case in.ReplyID == "" && in.Action == ActionLike:
		likes, err = s.storage.LikeComment(ctx, in.CommentID, in.UserID)
	case in.ReplyID == "" && in.Action == ActionUnlike:
		likes, err = s.storage.UnlikeComment(ctx, in.CommentID, in.UserID)
	case in.Action == ActionLike:
		likes, err = s.storage.LikeReply(ctx, in.CommentID, in.ReplyID, in.UserID)
	default:
		likes, err = s.storage.UnlikeReply(ctx, in.CommentID, in.ReplyID, in.UserID)
	}

	if err != nil {
		mapped := mapStorageErr(err)
		if errors.Is(mapped, ErrInternal) {
			lg.Error("storage error on ToggleLike", "err", err)
		} else {
			lg.Warn("toggle rejected", "err", err)
		}
		return 0, false, fmt.Errorf("%s: %w", op, mapped)
	}

	return likes, in.Action == ActionLike, nil
}

// CountComments — суммарное количество: корневые комментарии + все ответы.
func (s *Service) CountComments(ctx context.Context) (int64, error) {
	const op = "service/comments/CountComments"

	lg := log.From(ctx).With("op", op)

	total, err := s.storage.CountAll(ctx)
	if err != nil {
		mapped := mapStorageErr(err)
		if errors.Is(mapped, ErrInternal) {
			lg.Error("storage error on CountAll", "err", err)
		}
		return 0, fmt.Errorf("%s: %w", op, mapped)
	}

	return total, nil
}
