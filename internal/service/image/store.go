package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	filePrefix = "generated_image_"
	fileExt    = ".jpg"
	// Сколько раз пробуем новое имя, если файл с таким именем уже существует.
	maxNameAttempts = 3
)

// Store сохраняет изображения в плоскую папку. Существующие файлы никогда не перезаписываются.
type Store struct {
	dir string
}

// NewStore создаёт папку dir (если её нет) и возвращает хранилище.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save записывает data в новый файл generated_image_<32 hex>.jpg и возвращает путь к нему.
func (s *Store) Save(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("store: empty image")
	}
	for range maxNameAttempts {
		path := filepath.Join(s.dir, newFileName())
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			_ = os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("store: no free file name after %d attempts", maxNameAttempts)
}

// newFileName возвращает имя со случайным UUID v4 без дефисов.
func newFileName() string {
	id := uuid.New()
	return filePrefix + strings.ReplaceAll(id.String(), "-", "") + fileExt
}
