package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-blog-comments/internal/models"
)

var (
	// ErrNotFound — комментарий/ответ отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyLiked — пользователь уже лайкнул этот объект.
	ErrAlreadyLiked = errors.New("already liked")
	// ErrNotLiked — пользователь ещё не лайкал этот объект.
	ErrNotLiked = errors.New("not liked")
	// ErrUnavailable — таймаут/обрыв соединения с БД; безопасно ретраить.
	ErrUnavailable = errors.New("storage unavailable")
)

// Storage описывает операции над комментариями и встроенными ответами.
//
// Дисциплина мутаций: like/unlike выражаются ОДНИМ условным атомарным
// обновлением (предикат членства в liked_by стоит в фильтре), поэтому
// likes не может разойтись с len(liked_by) даже при гонке одинаковых
// запросов одного пользователя.
type Storage interface {
	// InsertComment сохраняет корневой комментарий.
	// Присваивает ID, нормализует временные поля, инициализирует
	// likes=0, liked_by=[], replies=[]. Возвращает сохранённую запись.
	InsertComment(ctx context.Context, comment models.Comment) (*models.Comment, error)

	// AppendReply дозаписывает ответ в конец replies родителя,
	// генерируя свежий UUID-идентификатор ответа.
	// Если родитель не найден — ErrNotFound.
	AppendReply(ctx context.Context, parentID string, reply models.Reply) (*models.Reply, error)

	// Page возвращает страницу корневых комментариев.
	// Сортировка: created_at DESC, при равенстве — _id DESC (стабильно).
	// page >= 1; пропускается (page-1)*limit записей.
	Page(ctx context.Context, page, limit int64) ([]models.Comment, error)

	// CountComments возвращает точное количество корневых комментариев.
	CountComments(ctx context.Context) (int64, error)

	// CountAll возвращает корневые комментарии + все встроенные ответы.
	CountAll(ctx context.Context) (int64, error)

	// LikeComment добавляет лайк пользователя комментарию.
	// Возвращает итоговый счётчик. Ошибки: ErrNotFound, ErrAlreadyLiked.
	LikeComment(ctx context.Context, commentID, userID string) (int64, error)

	// UnlikeComment снимает лайк пользователя с комментария.
	// Возвращает итоговый счётчик. Ошибки: ErrNotFound, ErrNotLiked.
	UnlikeComment(ctx context.Context, commentID, userID string) (int64, error)

	// LikeReply добавляет лайк ответу, адресуемому стабильным reply id
	// (не позиционным индексом). Ошибки: ErrNotFound, ErrAlreadyLiked.
	LikeReply(ctx context.Context, parentID, replyID, userID string) (int64, error)

	// UnlikeReply снимает лайк с ответа. Ошибки: ErrNotFound, ErrNotLiked.
	UnlikeReply(ctx context.Context, parentID, replyID, userID string) (int64, error)

	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}
