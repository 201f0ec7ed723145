package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cleaner удаляет старые сгенерированные изображения по TTL в заданной директории.
// По умолчанию не используется: без IMAGES_TTL файлы живут вечно.
type Cleaner struct {
	logger *zap.SugaredLogger
}

func NewCleaner(logger *zap.SugaredLogger) *Cleaner { return &Cleaner{logger: logger} }

// Run вызывает Clean каждые interval до отмены ctx.
func (c *Cleaner) Run(ctx context.Context, dir string, ttl time.Duration, interval time.Duration) {
	if ttl <= 0 || dir == "" {
		return
	}
	if interval <= 0 {
		interval = ttl
	}
	c.logger.Infow("Очистка старых изображений включена", "dir", dir, "ttl", ttl.String(), "interval", interval.String())
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Clean(dir, ttl, time.Now())
		}
	}
}

// Clean удаляет из dir файлы generated_image_*.jpg, изменённые раньше now-ttl. Возвращает число удалённых.
func (c *Cleaner) Clean(dir string, ttl time.Duration, now time.Time) int {
	if ttl <= 0 || dir == "" {
		return 0
	}

	deadline := now.Add(-ttl)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0
		}
		c.logger.Warnw("Не удалось прочитать директорию для очистки", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(strings.ToLower(name), fileExt) {
			continue
		}
		fi, statErr := e.Info()
		if statErr != nil {
			c.logger.Warnw("Не удалось получить информацию о файле при очистке", "name", name, "error", statErr)
			continue
		}
		if fi.ModTime().Before(deadline) {
			full := filepath.Join(dir, name)
			if err := os.Remove(full); err != nil {
				c.logger.Warnw("Не удалось удалить старый файл", "path", full, "error", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		c.logger.Infow("Очистка старых изображений выполнена", "dir", dir, "removed", removed, "before", deadline.Format(time.RFC3339))
	}
	return removed
}
