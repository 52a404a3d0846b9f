// apierrors стандартизирует ответы об ошибках HTTP-слоя шлюза.
// На вход — ошибка доменного слоя (session, clients/auth), на выход:
//   - корректный HTTP-статус;
//   - единый конверт {"error":{code,message,request_id}}.
//
// Сообщения апстрима с клиентскими статусами (4xx) отдаются фронту как есть —
// это человекочитаемые ответы auth-сервиса ("invalid credentials" и т.п.).
// Серверные сбои (5xx, транспорт) наружу уходят с фиксированным safe-текстом.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	authclient "github.com/viridial-group/viridial/internal/clients/auth"
	"github.com/viridial-group/viridial/internal/session"
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — человекочитаемое описание.
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

// ErrInvalidArgument — локальная ошибка разбора входного JSON.
var ErrInvalidArgument = errors.New("invalid argument")

// ToHTTP конвертирует ошибку доменного слоя в HTTP-статус и конверт.
//
// err == nil — программная ошибка вызова: возвращаем 500/internal,
// чтобы не отдать "200 OK" с телом ошибки и не замаскировать баг.
func ToHTTP(err error) (int, ErrorResponse) {
	switch {
	case err == nil:
		return respond(http.StatusInternalServerError, "internal", "internal error")

	case errors.Is(err, ErrInvalidArgument):
		return respond(http.StatusBadRequest, "invalid_argument", "invalid argument")

	case errors.Is(err, session.ErrNoRefreshToken),
		errors.Is(err, session.ErrNotAuthenticated):
		return respond(http.StatusUnauthorized, "unauthenticated", "unauthenticated")

	case errors.Is(err, session.ErrEmptyTokenPair):
		return respond(http.StatusBadGateway, "upstream_error", "auth service returned malformed response")

	case errors.Is(err, context.DeadlineExceeded):
		return respond(http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded")
	}

	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) {
		return fromUpstream(apiErr)
	}

	return respond(http.StatusInternalServerError, "internal", "internal error")
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// fromUpstream — маппинг ошибки auth-клиента.
//   - StatusCode 0 (ответа не было) -> 503/upstream_unavailable;
//   - 4xx -> тот же статус, сообщение сервера как есть;
//   - всё остальное -> 502/upstream_error без деталей.
func fromUpstream(e *authclient.APIError) (int, ErrorResponse) {
	switch {
	case e.StatusCode == 0:
		return respond(http.StatusServiceUnavailable, "upstream_unavailable", "auth service unavailable")

	case e.StatusCode >= 400 && e.StatusCode < 500:
		return respond(e.StatusCode, codeForStatus(e.StatusCode), e.Message)

	default:
		return respond(http.StatusBadGateway, "upstream_error", "auth service error")
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	default:
		return "failed_precondition"
	}
}

func respond(status int, code, message string) (int, ErrorResponse) {
	return status, ErrorResponse{Error: APIError{Code: code, Message: message}}
}
