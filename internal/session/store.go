// session — клиентская часть жизненного цикла access-токена:
// хранилище пары токенов и контроллер состояния сессии.
package session

import "sync"

// TokenStore — хранилище пары токенов. Чистое хранение, без политики:
// валидацией и обновлением занимается Controller.
//
// Реализации обязаны быть безопасными для конкурентного использования.
type TokenStore interface {
	// AccessToken возвращает сохранённый access-токен ("" — токена нет).
	AccessToken() string
	// RefreshToken возвращает сохранённый refresh-токен ("" — токена нет).
	RefreshToken() string
	// SetTokens атомарно сохраняет новую пару.
	SetTokens(access, refresh string) error
	// Clear удаляет сохранённую пару. Идемпотентен.
	Clear() error
}

// MemoryStore — хранилище в памяти процесса. Используется в тестах
// и как рабочий вариант для короткоживущих сессий.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *MemoryStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

func (s *MemoryStore) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	return nil
}

// NoopStore — заглушка для окружений без персистентности (нет каталога
// состояния, read-only ФС). Чтение возвращает пустые значения, запись
// молча отбрасывается. Это документированная деградация, не ошибка:
// сессия просто живёт не дольше процесса.
type NoopStore struct{}

func NewNoopStore() NoopStore { return NoopStore{} }

func (NoopStore) AccessToken() string         { return "" }
func (NoopStore) RefreshToken() string        { return "" }
func (NoopStore) SetTokens(_, _ string) error { return nil }
func (NoopStore) Clear() error                { return nil }
