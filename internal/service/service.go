// service содержит бизнес-логику blog-comments-сервиса.
package service

import (
	"errors"

	"github.com/pribylovaa/go-blog-comments/internal/config"
	"github.com/pribylovaa/go-blog-comments/internal/storage"
)

var (
	// ErrInvalidArgument — неверные входные параметры запроса к сервису.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — комментарий/ответ отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyLiked — повторный like от того же пользователя.
	ErrAlreadyLiked = errors.New("already liked")
	// ErrNotLiked — unlike без предшествующего like.
	ErrNotLiked = errors.New("not liked")
	// ErrUnauthenticated — операция требует валидного пользователя.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnavailable — хранилище недоступно/таймаут; безопасно ретраить.
	ErrUnavailable = errors.New("unavailable")
	// ErrNotModified — содержимое ленты не изменилось относительно
	// клиентского валидатора (сигнал для HTTP 304, не сбой).
	ErrNotModified = errors.New("not modified")
	// ErrInternal — внутренняя ошибка (сторадж/БД/контекст/и т.д.).
	ErrInternal = errors.New("internal")
)

// Service — бизнес-логика blog-comments-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.Config
}

// New создает новый экземпляр Service.
func New(storage storage.Storage, cfg config.Config) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// mapStorageErr — общая трансляция ошибок стораджа в сервисные.
// Неизвестные ошибки схлопываются в ErrInternal, чтобы наружу
// никогда не утекали детали драйвера.
func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrAlreadyLiked):
		return ErrAlreadyLiked
	case errors.Is(err, storage.ErrNotLiked):
		return ErrNotLiked
	case errors.Is(err, storage.ErrUnavailable):
		return ErrUnavailable
	default:
		return ErrInternal
	}
}
