// token — локальный разбор access-токена без проверки подписи.
//
// Декодер носит исключительно консультативный характер: по нему шлюз решает,
// показывать ли пользователю авторизованный UI и не пора ли обновить пару
// токенов. Подпись и срок действия независимо перепроверяет каждый
// backend-сервис, получающий токен как bearer-учётку; решения о доступе
// на локальном разборе не принимаются.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken — токен не разобрать: не три сегмента, битый base64url
// или невалидный JSON в payload. Наружу не транслируется — для вызывающих
// это эквивалент «токена нет».
var ErrMalformedToken = errors.New("malformed token")

// Claims — payload access-токена, зеркалит claims auth-сервиса.
type Claims struct {
	UserID         string `json:"uid"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// Decode разбирает payload токена без криптографической проверки.
// На любом некорректном входе возвращает ErrMalformedToken и никогда
// не паникует.
func Decode(raw string) (*Claims, error) {
	const op = "token.Decode"

	if raw == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	claims := &Claims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	return claims, nil
}

// IsExpired сравнивает exp токена с локальными часами.
// true — если токен не разобрать, exp отсутствует или уже в прошлом.
func IsExpired(raw string) bool {
	claims, err := Decode(raw)
	if err != nil {
		return true
	}

	exp := claims.ExpiresAt
	if exp == nil {
		return true
	}

	return time.Now().After(exp.Time)
}
