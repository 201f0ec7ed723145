package image

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Generator: источник байтов изображения (адаптер внешнего API).
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Result: сгенерированное изображение. В режиме memory заполнено Data, в режиме disk заполнен Path.
type Result struct {
	Data []byte
	Path string
}

// Service выдаёт изображение либо в памяти, либо файлом на диске, в зависимости от наличия Store.
type Service struct {
	gen    Generator
	store  *Store
	logger *zap.SugaredLogger
}

// NewService создаёт сервис. store == nil означает режим memory.
func NewService(gen Generator, store *Store, logger *zap.SugaredLogger) *Service {
	return &Service{gen: gen, store: store, logger: logger}
}

// Persists сообщает, сохраняет ли сервис изображения на диск.
func (s *Service) Persists() bool { return s.store != nil }

// Generate вызывает генератор ровно один раз. Любая ошибка даёт (Result{}, false).
func (s *Service) Generate(ctx context.Context, prompt string) (Result, bool) {
	start := time.Now()
	data, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Errorw("Ошибка генерации изображения", "prompt", prompt, "duration", time.Since(start).String(), "error", err)
		return Result{}, false
	}
	if len(data) == 0 {
		s.logger.Errorw("Генератор вернул пустое изображение", "prompt", prompt)
		return Result{}, false
	}

	if s.store == nil {
		return Result{Data: data}, true
	}
	path, err := s.store.Save(data)
	if err != nil {
		s.logger.Errorw("Не удалось сохранить изображение", "dir", s.store.Dir(), "error", err)
		return Result{}, false
	}
	s.logger.Infow("Изображение сохранено", "path", path, "bytes", len(data))
	return Result{Path: path}, true
}
