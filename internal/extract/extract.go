// extract — реестр экстракторов: превращают один загруженный ответ в набор записей.
//
// Экстрактор разрешается по имени один раз на элемент при подготовке прогона,
// дальше движок работает только с интерфейсом Extractor.
package extract

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/models"
)

var (
	// ErrUnknownType — в реестре нет экстрактора с таким именем.
	ErrUnknownType = errors.New("unknown extractor type")
	// ErrInvalidConfig — конфигурация экстрактора некорректна.
	ErrInvalidConfig = errors.New("invalid extractor config")
)

// Response — загруженный ответ, передаваемый экстрактору.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// FetchedAt — момент получения ответа; им штампуются записи.
	FetchedAt time.Time
}

// Batch — результат извлечения.
type Batch struct {
	Records []models.Record
	// Status — код ответа, который экстрактор считает итоговым (обычно 2xx).
	Status string
}

// Extractor извлекает записи из ответа.
//
// Требования к реализации:
//  1. отсутствие необязательного подполя даёт null в этом поле, а не ошибку;
//  2. каждая запись штампуется полями source и fetched_at;
//  3. ошибка возвращается только когда документ целиком непригоден (битый XML и т.п.).
type Extractor interface {
	Extract(resp Response, source string) (Batch, error)
}

// Factory создаёт экстрактор под конфигурацию конкретного источника.
type Factory func(cfg map[string]string) (Extractor, error)

// Registry — таблица фабрик экстракторов по имени типа.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default возвращает реестр со встроенными экстракторами.
func Default() *Registry {
	r := NewRegistry()
	r.Register("rss", NewFeed)
	r.Register("feed", NewFeed)
	r.Register("atom", NewFeed)
	r.Register("html", NewHTML)
	r.Register("scrape", NewHTML)

	return r
}

// Register добавляет (или заменяет) фабрику. Имя нечувствительно к регистру.
func (r *Registry) Register(name string, f Factory) {
	r.factories[normalize(name)] = f
}

// Names возвращает зарегистрированные имена в алфавитном порядке.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// Resolve находит фабрику по имени и строит экстрактор.
func (r *Registry) Resolve(name string, cfg map[string]string) (Extractor, error) {
	const op = "extract.Resolve"

	f, ok := r.factories[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownType, name)
	}

	ex, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, name, err)
	}

	return ex, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// stamp проставляет обязательные служебные поля записи.
func stamp(rec models.Record, source string, fetchedAt time.Time) models.Record {
	rec[models.FieldSource] = models.Str(source)
	rec[models.FieldFetchedAt] = models.Str(fetchedAt.UTC().Format(time.RFC3339))

	return rec
}

// optional превращает пустую после TrimSpace строку в null.
func optional(s string) models.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Null()
	}

	return models.Str(s)
}

// option возвращает cfg[key] или def, если ключа нет или он пуст.
func option(cfg map[string]string, key, def string) string {
	if v := strings.TrimSpace(cfg[key]); v != "" {
		return v
	}

	return def
}
