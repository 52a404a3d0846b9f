// auth — REST-клиент auth-сервиса. Один метод на удалённый вызов,
// каждый маппит HTTP-статус либо в полезную нагрузку, либо в *APIError.
//
// Клиент не хранит состояния между вызовами; bearer-токен передаётся
// параметром, а не берётся из глобального хранилища.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	logctx "github.com/viridial-group/viridial/internal/pkg/log"
	"github.com/viridial-group/viridial/internal/models"
)

// maxErrorBody — предел чтения тела ошибочного ответа.
const maxErrorBody = 1 << 20

// APIError — ошибка удалённого вызова.
//
// StatusCode == 0 — транспортный сбой: ответ не получен вовсе
// (DNS, connection refused, таймаут). Любое другое значение —
// HTTP-статус ответа апстрима, Message — сообщение сервера, если его
// удалось извлечь из тела, иначе синтезированное "HTTP <код>: <текст>".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("auth: network failure: %s", e.Message)
	}

	return fmt.Sprintf("auth: %s", e.Message)
}

// IsNetworkError — err является транспортным сбоем (ответа не было).
func IsNetworkError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 0
}

// Client — HTTP-клиент auth-сервиса.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт (тесты, кастомный TLS).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithTimeout задаёт дедлайн одного вызова. Значение <=0 отключает
// собственный таймаут клиента (остаётся только дедлайн контекста).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New создаёт клиент. По умолчанию — собственный http.Client с cookie jar:
// апстрим дублирует сессию в httpOnly-куках, и мы их возвращаем.
func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "clients/auth.New"

	if baseURL == "" {
		return nil, fmt.Errorf("%s: empty base url", op)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.httpc = &http.Client{Jar: jar}
	}

	return c, nil
}

// Login — POST /auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	const op = "clients/auth.Login"

	var out models.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login",
		models.Credentials{Email: email, Password: password}, "", &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Signup — POST /auth/signup.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	const op = "clients/auth.Signup"

	var out models.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/signup", req, "", &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Refresh — POST /auth/refresh. Сервер ротирует оба токена.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	const op = "clients/auth.Refresh"

	var out models.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh",
		models.RefreshRequest{RefreshToken: refreshToken}, "", &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// CurrentUser — GET /auth/me с bearer-заголовком.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "clients/auth.CurrentUser"

	var out models.User
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, accessToken, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// HealthCheck — GET /health.
func (c *Client) HealthCheck(ctx context.Context) (*models.HealthResponse, error) {
	const op = "clients/auth.HealthCheck"

	var out models.HealthResponse
	if err := c.call(ctx, http.MethodGet, "/health", nil, "", &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// call — общий путь всех вызовов: сериализация тела, заголовки,
// собственный таймаут, маппинг ответа.
func (c *Client) call(ctx context.Context, method, path string, body any, bearer string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		logctx.From(ctx).Warn("auth_upstream_unreachable",
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return &APIError{StatusCode: 0, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed response body: %v", err),
		}
	}

	return nil
}

// errorMessage достаёт сообщение сервера из тела ошибки.
// Поддерживаются оба формата апстримов: {"message": "..."} и
// конверт шлюза {"error": {"message": "..."}}. Если разобрать не удалось —
// синтезируем "HTTP <код>: <текст статуса>".
func errorMessage(status int, body []byte) string {
	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Message != "" {
		return flat.Message
	}

	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}

	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}
