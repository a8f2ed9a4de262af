// proxies — получение пула прокси из публичных списков.
package proxies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/pribylovaa/go-feed-collector/internal/pkg/log"
)

// ErrUnknownKind — неизвестный формат списка прокси.
var ErrUnknownKind = errors.New("unknown proxy source kind")

// Виды списков.
const (
	KindHTML = "html"
	KindText = "text"
)

// StoredSource — метка прокси, прочитанных из хранилища.
const StoredSource = "stored"

const (
	defaultTimeout = 20 * time.Second
	maxListBytes   = 5 << 20
)

// Source — источник адресов прокси. Scrape только скачивает и разбирает
// список, работоспособность не проверяется.
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]models.Proxy, error)
}

// Doer выполняет HTTP-запрос.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Spec — описание источника из конфига.
type Spec struct {
	Name      string
	URL       string
	Kind      string
	HTTPSOnly bool
}

// filtered оборачивает источник фильтром по схеме https.
type filtered struct {
	Source
}

func (f filtered) Scrape(ctx context.Context) ([]models.Proxy, error) {
	list, err := f.Source.Scrape(ctx)
	if err != nil {
		return nil, err
	}

	return HTTPSOnly(list), nil
}

// FromSpecs строит источники по описаниям. client == nil — http.Client с таймаутом 20s.
func FromSpecs(specs []Spec, client Doer) ([]Source, error) {
	const op = "proxies.FromSpecs"

	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	out := make([]Source, 0, len(specs))
	for _, s := range specs {
		var src Source
		switch strings.ToLower(strings.TrimSpace(s.Kind)) {
		case KindHTML, "":
			src = NewHTMLList(s.Name, s.URL, client)
		case KindText:
			src = NewTextList(s.Name, s.URL, client)
		default:
			return nil, fmt.Errorf("%s: %s: %w: %q", op, s.Name, ErrUnknownKind, s.Kind)
		}

		if s.HTTPSOnly {
			src = filtered{src}
		}
		out = append(out, src)
	}

	return out, nil
}

// Gather опрашивает все источники и возвращает объединённый список без дублей.
// Ошибка отдельного источника логируется и не прерывает сбор.
func Gather(ctx context.Context, sources []Source) []models.Proxy {
	const op = "proxies.Gather"

	lg := log.From(ctx)

	lists := make([][]models.Proxy, 0, len(sources))
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}

		list, err := src.Scrape(ctx)
		if err != nil {
			lg.Warn("proxy_source_failed",
				slog.String("op", op),
				slog.String("source", src.Name()),
				slog.String("err", err.Error()),
			)
			continue
		}

		lg.Info("proxy_source_done",
			slog.String("op", op),
			slog.String("source", src.Name()),
			slog.Int("count", len(list)),
		)
		lists = append(lists, list)
	}

	return Merge(lists...)
}

// Merge склеивает списки по порядку, оставляя первое вхождение каждого адреса.
func Merge(lists ...[]models.Proxy) []models.Proxy {
	seen := make(map[string]struct{})

	var out []models.Proxy
	for _, list := range lists {
		for _, p := range list {
			if strings.TrimSpace(p.Address) == "" {
				continue
			}

			k := p.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, p)
		}
	}

	return out
}

// HTTPSOnly оставляет прокси со схемой https.
func HTTPSOnly(list []models.Proxy) []models.Proxy {
	var out []models.Proxy
	for _, p := range list {
		u, err := p.URL()
		if err == nil && u.Scheme == "https" {
			out = append(out, p)
		}
	}

	return out
}

// download скачивает страницу списка.
func download(ctx context.Context, client Doer, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; feed-collector/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
