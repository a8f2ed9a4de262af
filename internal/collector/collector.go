// collector — движок сбора: загрузка элементов с повторами и ротацией прокси.
//
// Один вызов Run — это пакетное задание: раунды попыток по множеству
// ожидающих элементов, при необходимости — по очереди через каждый прокси пула,
// с накоплением данных и лога в колоночные таблицы.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-feed-collector/internal/extract"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"
	"github.com/pribylovaa/go-feed-collector/internal/report"
)

var (
	// ErrInvalidOptions — некорректные параметры прогона.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrNoProxies — выбран режим прокси, но пул пуст.
	ErrNoProxies = errors.New("proxy mode requires a non-empty proxy pool")
)

// DefaultUserAgent отправляется, если Options.UserAgent пуст.
const DefaultUserAgent = "feed-collector/1.0"

// Options — параметры одного прогона.
type Options struct {
	// Tries — число раундов попыток (на каждый прокси в режиме прокси).
	Tries int
	// WaitingTime — таймаут одного запроса; 0 — без таймаута.
	WaitingTime time.Duration
	// Delay — пауза после каждого запроса.
	Delay time.Duration
	// ProxyMode включает ротацию по Proxies.
	ProxyMode bool
	Proxies   []models.Proxy
	// Workers — число параллельных загрузок внутри раунда; 0 или 1 — последовательно.
	Workers int
	// DataFields — схема набора данных.
	DataFields []string
	// CountFields — поля, по которым в лог пишется число непустых значений.
	// Обязано содержать title: по нему принимается решение об успехе.
	CountFields []string
	UserAgent   string
}

func (o Options) validate() error {
	switch {
	case o.Tries < 1:
		return fmt.Errorf("%w: number of tries must be >= 1", ErrInvalidOptions)
	case o.WaitingTime < 0 || o.Delay < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidOptions)
	case o.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidOptions)
	case len(o.DataFields) == 0:
		return fmt.Errorf("%w: data fields are required", ErrInvalidOptions)
	case !slices.Contains(o.CountFields, models.FieldTitle):
		return fmt.Errorf("%w: log fields must include %q", ErrInvalidOptions, models.FieldTitle)
	case o.ProxyMode && len(o.Proxies) == 0:
		return ErrNoProxies
	}

	return nil
}

// Result — итог прогона.
type Result struct {
	RunID uuid.UUID
	// Data — набор записей со схемой Options.DataFields.
	Data *models.Table
	// Log — по строке на каждую выполненную попытку плюс колонка TIME.
	Log *models.Table
	// Text — лог в виде ASCII-таблицы (без колонки TIME).
	Text []string
	// WorkingProxies — прокси, через которые успешно загрузился хотя бы один элемент.
	WorkingProxies []models.Proxy
	// Failed — источники, не получившие успеха ни в одной попытке.
	Failed []string
}

// Doer выполняет HTTP-запрос (реализуется *http.Client).
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientFactory строит клиента для прокси; p == nil — прямое соединение.
type ClientFactory func(p *models.Proxy) (Doer, error)

// Collector — движок сбора. Безопасен для последовательных вызовов Run;
// состояние прогона живёт только внутри вызова.
type Collector struct {
	registry *extract.Registry
	clients  ClientFactory
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option настраивает Collector.
type Option func(*Collector)

// WithClientFactory подменяет построение HTTP-клиентов (тесты, кастомный транспорт).
func WithClientFactory(f ClientFactory) Option {
	return func(c *Collector) { c.clients = f }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithSleeper подменяет паузу между запросами.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) { c.sleep = sleep }
}

// New создаёт движок поверх реестра экстракторов.
func New(registry *extract.Registry, opts ...Option) *Collector {
	if registry == nil {
		registry = extract.Default()
	}

	c := &Collector{
		registry: registry,
		clients:  DefaultClients,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}

	return c
}

// prepared — элемент с уже разрешённым экстрактором.
type prepared struct {
	item      models.FetchItem
	extractor extract.Extractor
}

// Run выполняет прогон по items.
//
// Ошибка возвращается только при некорректной конфигурации (параметры,
// экстракторы, пустой пул прокси), при models.ErrSchema или отмене ctx —
// в последнем случае вместе с частичным результатом. Неуспешные элементы
// ошибкой не считаются: они остаются в логе с последней причиной.
func (c *Collector) Run(ctx context.Context, items []models.FetchItem, opts Options) (*Result, error) {
	const op = "collector.Run"

	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prep := make([]prepared, len(items))
	for i, it := range items {
		ex, err := c.registry.Resolve(it.ExtractorType, it.ExtractorConfig)
		if err != nil {
			return nil, fmt.Errorf("%s: item %d (%s): %w", op, i, it.Source, err)
		}
		prep[i] = prepared{item: it, extractor: ex}
	}

	res := &Result{RunID: uuid.New()}
	ctx = log.With(ctx, slog.String("run_id", res.RunID.String()))
	lg := log.From(ctx)

	acc := newAggregate(opts.DataFields, models.LogSchema{
		WithProxy:   opts.ProxyMode,
		CountFields: opts.CountFields,
	})

	lg.Info("run_start",
		slog.String("op", op),
		slog.Int("items", len(items)),
		slog.Int("tries", opts.Tries),
		slog.Bool("proxy_mode", opts.ProxyMode),
		slog.Int("proxies", len(opts.Proxies)),
	)

	var (
		failed  []int
		runErr  error
		pending = allIndices(len(prep))
	)

	switch {
	case len(prep) == 0:
	case opts.ProxyMode:
		res.WorkingProxies, failed, runErr = c.rotate(ctx, prep, pending, opts, acc)
	default:
		client, err := c.clients(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: client: %w", op, err)
		}
		failed, runErr = c.retry(ctx, prep, pending, cycle{client: client}, opts, acc)
	}

	if errors.Is(runErr, models.ErrSchema) {
		return nil, fmt.Errorf("%s: %w", op, runErr)
	}

	at := c.now()
	res.Data = acc.data
	res.Text = report.Format(acc.log, at)
	acc.log.AddColumn(models.LogTime, models.Str(at.Format(report.BannerTimeLayout)))
	res.Log = acc.log

	for _, idx := range failed {
		res.Failed = append(res.Failed, prep[idx].item.Source)
	}

	lg.Info("run_done",
		slog.String("op", op),
		slog.Int("records", res.Data.Len()),
		slog.Int("attempts", res.Log.Len()),
		slog.Int("failed", len(res.Failed)),
		slog.Int("working_proxies", len(res.WorkingProxies)),
	)

	if runErr != nil {
		return res, fmt.Errorf("%s: %w", op, runErr)
	}

	return res, nil
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
