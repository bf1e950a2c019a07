package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWT — верификатор HS256-токенов идентити-провайдера.
// Полезная нагрузка токена: claims "userId" и "username"
// (схема провайдера; здесь читается только userId).
type JWT struct {
	secret []byte
}

// NewJWT создаёт верификатор с общим секретом провайдера.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

// ResolveUserID проверяет подпись и срок действия и возвращает userId.
// Любой дефект токена — ErrInvalidToken без деталей наружу.
func (j *JWT) ResolveUserID(_ context.Context, token string) (string, error) {
	const op = "auth/jwt/ResolveUserID"

	if token == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return j.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return userID, nil
}
