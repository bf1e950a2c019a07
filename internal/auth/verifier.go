// auth — потребляемая сервисом возможность «проверить токен -> user id».
// Выпуск токенов (регистрация/логин) живёт во внешнем идентити-провайдере
// и этим пакетом не реализуется.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken — токен отсутствует/просрочен/не прошёл проверку.
	// Транспорт деградирует такие случаи до анонима на чтении и
	// отвечает 401 на операциях, требующих пользователя.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier проверяет bearer-токен и возвращает идентификатор
// пользователя. Невалидность выражается ошибкой ErrInvalidToken,
// никогда — паникой или пустым id без ошибки.
type TokenVerifier interface {
	ResolveUserID(ctx context.Context, token string) (string, error)
}
