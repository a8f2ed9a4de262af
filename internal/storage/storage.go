// storage определяет контракты сохранения результатов прогонов и пула прокси.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-feed-collector/internal/models"
)

var (
	// ErrNotFound — в хранилище ещё нет сохранённого списка прокси.
	ErrNotFound = errors.New("not found")
	// ErrNotMigrated — схема хранилища не создана (миграции не применены).
	ErrNotMigrated = errors.New("storage schema is not migrated")
)

// ResultStorage сохраняет результаты прогона. Сохранение только дописывает:
// ранее сохранённые записи не меняются.
type ResultStorage interface {
	// SaveRecords дописывает набор данных под именем name.
	// Если под этим именем уже лежат данные с другой схемой — models.ErrSchema.
	SaveRecords(ctx context.Context, runID uuid.UUID, name string, t *models.Table) error
	// SaveLog дописывает таблицу лога и её текстовое представление.
	SaveLog(ctx context.Context, runID uuid.UUID, name string, t *models.Table, text []string) error
}

// ProxyStorage хранит пул прокси между прогонами.
type ProxyStorage interface {
	// LoadProxies возвращает сохранённый пул в исходном порядке; ErrNotFound, если пула нет.
	LoadProxies(ctx context.Context) ([]models.Proxy, error)
	// SaveProxies целиком заменяет сохранённый пул.
	SaveProxies(ctx context.Context, list []models.Proxy) error
}

// Storage — полный контракт хранилища коллектора.
type Storage interface {
	ResultStorage
	ProxyStorage
	Close()
}
