package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	authclient "github.com/viridial-group/viridial/internal/clients/auth"
	"github.com/viridial-group/viridial/internal/session"
	"github.com/viridial-group/viridial/internal/web/apierrors"
)

// Handlers агрегирует зависимости HTTP-слоя: контроллер сессии
// и auth-клиент (для health-прокси).
type Handlers struct {
	Session *session.Controller
	Auth    *authclient.Client
}

func New(sess *session.Controller, auth *authclient.Client) *Handlers {
	return &Handlers{Session: sess, Auth: auth}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
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
		return fmt.Errorf("%w: %v", apierrors.ErrInvalidArgument, err)
	}

	return nil
}
