package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore хранит состояние сессии в JSON файле с правами 0600.
// Файл перечитывается при каждом обращении, чтобы несколько процессов CLI видели один и тот же токен.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore создает хранилище <dir>/session-<profile>.json.
func NewFileStore(dir, profile string) (*FileStore, error) {
	if profile == "" {
		profile = "default"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "session-"+profile+".json")}, nil
}

// Path возвращает путь к файлу сессии.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Save(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(st)
}

func (s *FileStore) AccessToken(ctx context.Context) (string, error) {
	st, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return st.AccessToken, nil
}

func (s *FileStore) ClearTokens(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.read()
	if err != nil {
		// Поврежденный файл все равно перезаписываем без токенов
		st = State{}
	}
	st.AccessToken = ""
	st.RefreshToken = ""
	return s.write(st)
}

func (s *FileStore) Locale(ctx context.Context) string {
	st, err := s.Load(ctx)
	if err != nil {
		return ""
	}
	return st.Locale
}

func (s *FileStore) read() (State, error) {
	var st State
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("corrupted session file %s: %w", s.path, err)
	}
	return st, nil
}

// write пишет во временный файл и переименовывает его, чтобы не оставить обрезанный JSON.
func (s *FileStore) write(st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
