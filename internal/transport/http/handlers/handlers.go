package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-blog-comments/internal/service"
)

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	svc *service.Service
	// debug включает диагностическое detail в ответах об ошибках
	// (env local/dev); на проде всегда false.
	debug bool
}

func New(svc *service.Service, debug bool) *Handlers {
	return &Handlers{svc: svc, debug: debug}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через httperr.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
