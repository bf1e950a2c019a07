package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-blog-comments/internal/auth"
	logctx "github.com/pribylovaa/go-blog-comments/pkg/log"
)

// AuthBearer извлекает Bearer-токен из Authorization, проверяет его через
// verifier и кладёт user id в контекст. Отсутствие или невалидность токена
// НИКОГДА не прерывает запрос — он продолжается как анонимный; операции,
// требующие пользователя, сами ответят 401 на пустой user id.
func AuthBearer(verifier auth.TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))

			if token != "" && verifier != nil {
				userID, err := verifier.ResolveUserID(r.Context(), token)
				switch {
				case err == nil:
					r = r.WithContext(WithUserID(r.Context(), userID))
				case errors.Is(err, auth.ErrInvalidToken):
					// Деградация до анонима.
				default:
					logctx.From(r.Context()).Warn("token verification failed", "err", err)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "

	if header == "" || !strings.HasPrefix(header, prefix) || len(header) == len(prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}
