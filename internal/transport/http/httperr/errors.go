// httperr стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку (обычно сентинел из service),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Ключевые свойства:
//   - неизвестный email и неверный пароль дают байт-в-байт одинаковый
//     ответ (невозможно перечислять зарегистрированные адреса);
//   - просроченный токен (token_expired) отличим от подделанного
//     (unauthenticated): первому клиенту следует пойти в refresh,
//     второму — перелогиниться;
//   - любая ошибка хранилища/реестра — generic 500 без деталей,
//     безопасная для повторной попытки.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"budget-buddy/internal/service"
)

// ErrBadRequest — локальная ошибка разбора входных данных HTTP-слоя
// (битый JSON, неизвестные поля, отсутствующая cookie).
var ErrBadRequest = errors.New("invalid argument")

// APIError — единый формат ошибки для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный
// ответ для фронта.
//
// Поведение:
//   - err == nil — это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - неизвестная ошибка (хранилище, реестр) — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := mapError(err)

	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if r != nil {
		if rid := r.Header.Get("X-Request-Id"); rid != "" {
			resp.Error.RequestID = rid
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// mapError — таблица маппинга доменных ошибок на HTTP/FE-код/сообщение:
//   - битые входные данные / email / пароль -> 400
//   - занятый email -> 400 (контракт фронта, см. register)
//   - неверные учётные данные -> 400 (unknown-email и wrong-password неразличимы)
//   - просроченный токен -> 401 token_expired (клиенту — в refresh)
//   - невалидный/вытесненный токен -> 401 unauthenticated
//   - отменённый/просроченный контекст -> 499/504
//   - прочее (хранилище, реестр, паника) -> 500/internal
func mapError(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrInvalidEmail):
		return http.StatusBadRequest, "invalid_argument", "invalid email"
	case errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest, "invalid_argument", "invalid password"
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "email_taken", "email already registered"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, "invalid_credentials", "invalid email or password"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token expired"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// Нестандартный код, часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499
