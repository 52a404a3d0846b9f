package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	logctx "github.com/viridial-group/viridial/internal/pkg/log"
	"github.com/viridial-group/viridial/internal/models"
	"github.com/viridial-group/viridial/internal/token"
)

var (
	// ErrNoRefreshToken — refresh запрошен, а refresh-токена в хранилище нет.
	// Сетевой вызов при этом не выполняется. HTTP-слой: 401.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrNotAuthenticated — операция требует активной сессии, а её нет.
	// HTTP-слой: 401.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyTokenPair — апстрим ответил успехом, но не прислал оба токена.
	// Такой ответ трактуем как сбой апстрима. HTTP-слой: 502.
	ErrEmptyTokenPair = errors.New("empty token pair in auth response")
)

// State — состояние сессии.
type State int32

const (
	// StateInitializing — начальная проверка сохранённых токенов ещё идёт.
	StateInitializing State = iota
	// StateUnauthenticated — активной сессии нет.
	StateUnauthenticated
	// StateAuthenticated — в хранилище неистёкший access-токен
	// (или идёт его обновление).
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// AuthAPI — операции auth-сервиса, нужные контроллеру.
// Реализуется clients/auth.Client; в тестах подменяется моком.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// Metrics — хук для счётчиков исходов login/refresh. Может быть nil.
type Metrics interface {
	LoginResult(ok bool)
	RefreshResult(ok bool)
}

// Controller — владелец состояния сессии. Один экземпляр на процесс,
// передаётся зависимостям явно (никаких пакетных синглтонов).
//
// Инварианты:
//   - State() == StateAuthenticated влечёт AccessToken() != "";
//   - конкурентные Refresh сливаются в один вызов апстрима (singleflight),
//     гонки «последняя запись побеждает» с инвалидацией чужого токена нет.
type Controller struct {
	store   TokenStore
	api     AuthAPI
	metrics Metrics

	mu     sync.RWMutex
	state  State
	access string

	refreshGroup singleflight.Group
}

// New создаёт контроллер в состоянии StateInitializing.
// До первого Bootstrap route guard не принимает решений о редиректе.
func New(store TokenStore, api AuthAPI) *Controller {
	return &Controller{
		store: store,
		api:   api,
		state: StateInitializing,
	}
}

// SetMetrics подключает счётчики исходов (опционально).
func (c *Controller) SetMetrics(m Metrics) {
	c.metrics = m
}

// Bootstrap — стартовый переход: восстановить сессию из сохранённых токенов.
//
//   - access есть и не истёк              -> Authenticated;
//   - access истёк/отсутствует, refresh есть -> одна попытка Refresh;
//   - токенов нет                          -> Unauthenticated, без сетевых вызовов.
//
// При неудачном refresh хранилище уже очищено и состояние Unauthenticated;
// ошибка возвращается вызывающему только для логирования.
func (c *Controller) Bootstrap(ctx context.Context) error {
	const op = "session.Bootstrap"

	lg := logctx.From(ctx)

	access := c.store.AccessToken()
	if access != "" && !token.IsExpired(access) {
		c.setAuthenticated(access)
		lg.Info("session_restored", slog.String("op", op))
		return nil
	}

	if c.store.RefreshToken() == "" {
		c.setUnauthenticated()
		return nil
	}

	if err := c.Refresh(ctx); err != nil {
		lg.Warn("session_restore_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("session_refreshed_on_start", slog.String("op", op))
	return nil
}

// Login выполняет вход. При успехе пара токенов сохранена и сессия активна;
// при ошибке состояние — Unauthenticated, ошибка отдаётся вызывающему
// (показ пользователю — забота UI-слоя).
func (c *Controller) Login(ctx context.Context, email, password string) (*models.User, error) {
	const op = "session.Login"

	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.reset()
		c.reportLogin(false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.adopt(resp); err != nil {
		c.reportLogin(false)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.reportLogin(true)
	logctx.From(ctx).Info("login_ok", slog.String("op", op))

	return &resp.User, nil
}

// Signup — регистрация; по контракту апстрима сразу выдаёт пару токенов,
// дальше поведение идентично Login.
func (c *Controller) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	const op = "session.Signup"

	resp, err := c.api.Signup(ctx, req)
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.adopt(resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("signup_ok", slog.String("op", op))

	return &resp.User, nil
}

// Refresh обновляет пару токенов по сохранённому refresh-токену.
// Без refresh-токена завершается ErrNoRefreshToken, не ходя в сеть.
// Неудача фатальна для сессии: хранилище очищается, состояние —
// Unauthenticated, ошибка возвращается, чтобы вызывающий мог среагировать.
//
// Конкурентные вызовы дедуплицируются: все ждут один запрос к апстриму
// и одну запись в хранилище.
func (c *Controller) Refresh(ctx context.Context) error {
	const op = "session.Refresh"

	refresh := c.store.RefreshToken()
	if refresh == "" {
		return fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		resp, err := c.api.Refresh(ctx, refresh)
		if err != nil {
			return nil, err
		}

		return nil, c.adopt(resp)
	})

	if err != nil {
		c.reset()
		c.reportRefresh(false)
		logctx.From(ctx).Warn("refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	c.reportRefresh(true)
	return nil
}

// Logout завершает сессию. Синхронный, не может завершиться ошибкой:
// сбой очистки файла состояния не повод оставить пользователя «вошедшим».
func (c *Controller) Logout() {
	c.reset()
}

// CurrentUser запрашивает профиль текущего пользователя по access-токену.
func (c *Controller) CurrentUser(ctx context.Context) (*models.User, error) {
	const op = "session.CurrentUser"

	access := c.AccessToken()
	if access == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	user, err := c.api.CurrentUser(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// State возвращает текущее состояние сессии.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsLoading — начальная проверка токенов ещё не завершилась.
func (c *Controller) IsLoading() bool { return c.State() == StateInitializing }

// IsAuthenticated — сессия активна.
func (c *Controller) IsAuthenticated() bool { return c.State() == StateAuthenticated }

// AccessToken — текущий access-токен для bearer-заголовков ("" — нет сессии).
func (c *Controller) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

// adopt сохраняет пару из ответа апстрима и переводит сессию в Authenticated.
// Состояние и хранилище меняются под одной блокировкой, чтобы читатели
// не увидели Authenticated без токена.
func (c *Controller) adopt(resp *models.AuthResponse) error {
	if resp == nil || resp.AccessToken == "" || resp.RefreshToken == "" {
		c.reset()
		return ErrEmptyTokenPair
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		c.state = StateUnauthenticated
		c.access = ""
		return err
	}

	c.state = StateAuthenticated
	c.access = resp.AccessToken

	return nil
}

func (c *Controller) setAuthenticated(access string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAuthenticated
	c.access = access
}

func (c *Controller) setUnauthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateUnauthenticated
	c.access = ""
}

// reset очищает хранилище и переводит сессию в Unauthenticated.
func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.store.Clear()
	c.state = StateUnauthenticated
	c.access = ""
}

func (c *Controller) reportLogin(ok bool) {
	if c.metrics != nil {
		c.metrics.LoginResult(ok)
	}
}

func (c *Controller) reportRefresh(ok bool) {
	if c.metrics != nil {
		c.metrics.RefreshResult(ok)
	}
}
