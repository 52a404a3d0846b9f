package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// stateFile — формат файла состояния. Токены — непрозрачные строки,
// никакой другой информации в файле намеренно нет.
type stateFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FileStore — пара токенов в одном JSON-файле (0600).
// Запись атомарная: во временный файл рядом + rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// DefaultStatePath — путь состояния по умолчанию:
// <каталог конфигурации пользователя>/viridial/session.json.
func DefaultStatePath() (string, error) {
	const op = "session.DefaultStatePath"

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return filepath.Join(dir, "viridial", "session.json"), nil
}

// NewFileStore создаёт файловое хранилище. Пустой path — DefaultStatePath().
// Сам файл при создании не читается и не создаётся.
func NewFileStore(path string) (*FileStore, error) {
	const op = "session.NewFileStore"

	if path == "" {
		p, err := DefaultStatePath()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		path = p
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) AccessToken() string {
	st, _ := s.load()
	return st.AccessToken
}

func (s *FileStore) RefreshToken() string {
	st, _ := s.load()
	return st.RefreshToken
}

func (s *FileStore) SetTokens(access, refresh string) error {
	const op = "session.FileStore.SetTokens"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	data, err := json.Marshal(stateFile{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *FileStore) Clear() error {
	const op = "session.FileStore.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// load читает файл состояния; любая ошибка (нет файла, битый JSON)
// трактуется как пустое хранилище.
func (s *FileStore) load() (stateFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st stateFile

	data, err := os.ReadFile(s.path)
	if err != nil {
		return stateFile{}, err
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return stateFile{}, err
	}

	return st, nil
}
