// Модели REST-контракта auth-сервиса. Имена JSON-полей зеркалят апстрим
// (camelCase), поэтому эти же структуры используются и в ответах шлюза.
package models

import "github.com/google/uuid"

// Credentials — тело POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest — тело POST /auth/signup.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// RefreshRequest — тело POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// User — профиль пользователя, каким его отдаёт /auth/me и login/signup/refresh.
// OrganizationID пустой у пользователей вне агентства (например, у админов платформы).
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
}

// AuthResponse — успешный ответ login/signup/refresh.
// Сервер ротирует оба токена при каждом refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// HealthResponse — ответ GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// SessionResponse — ответ шлюза о состоянии локальной сессии.
type SessionResponse struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}
