package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"budget-buddy/internal/service"
	"budget-buddy/internal/transport/http/httperr"
)

// Handlers агрегирует зависимости auth-эндпойнтов.
type Handlers struct {
	svc *service.Service
	// secureCookies включает флаг Secure у token-cookie;
	// выключается только в локальном окружении без TLS.
	secureCookies bool
}

func New(svc *service.Service, secureCookies bool) *Handlers {
	return &Handlers{svc: svc, secureCookies: secureCookies}
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
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %s", httperr.ErrBadRequest, "malformed json body")
	}
	return nil
}
