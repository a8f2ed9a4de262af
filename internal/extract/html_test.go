package extract

import (
	"errors"
	"net/http"
	"testing"

	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/stretchr/testify/require"
)

// Unit-тесты HTML-экстрактора (html.go) и реестра (extract.go).

const listingHTML = `<!doctype html>
<html><body>
  <div class="news">
    <article class="card">
      <h2><a href="/news/1">  Первая
        новость </a></h2>
      <p class="lead">Коротко</p>
      <time datetime="2025-09-16T08:00:00Z">16 сентября</time>
      <span class="tag">экономика</span>
    </article>
    <article class="card">
      <h2><a href="https://other.example/2">Вторая</a></h2>
    </article>
    <article class="card">
      <p class="lead">без заголовка</p>
    </article>
  </div>
</body></html>`

func htmlResp(body string) Response {
	return Response{
		URL:        "https://site.example/list?page=1",
		StatusCode: http.StatusOK,
		Body:       []byte(body),
		FetchedAt:  fetchedAt,
	}
}

// TestHTML_Listing — записи по item_selector, относительные ссылки становятся абсолютными.
func TestHTML_Listing(t *testing.T) {
	t.Parallel()

	ex, err := NewHTML(map[string]string{
		"item_selector":    "article.card",
		"title_selector":   "h2",
		"summary_selector": "p.lead",
		"date_selector":    "time",
		"link_selector":    "h2 a",
		"type_selector":    ".tag",
	})
	require.NoError(t, err)

	b, err := ex.Extract(htmlResp(listingHTML), "site")
	require.NoError(t, err)
	require.Equal(t, "200", b.Status)
	require.Len(t, b.Records, 3)

	first := b.Records[0]
	require.Equal(t, models.Str("Первая новость"), first[models.FieldTitle])
	require.Equal(t, models.Str("https://site.example/news/1"), first[models.FieldLink])
	require.Equal(t, models.Str("Коротко"), first[models.FieldSummary])
	require.Equal(t, models.Str("2025-9-16"), first[models.FieldDate])
	require.Equal(t, models.Str("экономика"), first[models.FieldType])
	require.Equal(t, models.Str("site"), first[models.FieldSource])

	second := b.Records[1]
	require.Equal(t, models.Str("https://other.example/2"), second[models.FieldLink])
	require.False(t, second[models.FieldSummary].Valid)
	require.False(t, second[models.FieldDate].Valid)

	third := b.Records[2]
	require.False(t, third[models.FieldTitle].Valid, "без заголовка -> null, а не ошибка")
}

// TestHTML_WholePage — без item_selector вся страница — одна запись.
func TestHTML_WholePage(t *testing.T) {
	t.Parallel()

	ex, err := NewHTML(map[string]string{"title_selector": "h2"})
	require.NoError(t, err)

	b, err := ex.Extract(htmlResp(listingHTML), "site")
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	require.Equal(t, models.Str("Первая новость"), b.Records[0][models.FieldTitle])
}

// TestHTML_NoMatches — нет совпадений -> пустой результат.
func TestHTML_NoMatches(t *testing.T) {
	t.Parallel()

	ex, err := NewHTML(map[string]string{"item_selector": ".missing", "title_selector": "h2"})
	require.NoError(t, err)

	b, err := ex.Extract(htmlResp(listingHTML), "site")
	require.NoError(t, err)
	require.Empty(t, b.Records)
}

// TestNewHTML_RequiresTitleSelector — без title_selector фабрика возвращает ErrInvalidConfig.
func TestNewHTML_RequiresTitleSelector(t *testing.T) {
	t.Parallel()

	_, err := NewHTML(map[string]string{"item_selector": "article"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// TestRegistry_Resolve — имена нечувствительны к регистру, неизвестный тип -> ErrUnknownType.
func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	r := Default()
	require.Equal(t, []string{"atom", "feed", "html", "rss", "scrape"}, r.Names())

	ex, err := r.Resolve(" RSS ", nil)
	require.NoError(t, err)
	require.NotNil(t, ex)

	_, err = r.Resolve("json", nil)
	require.True(t, errors.Is(err, ErrUnknownType))

	_, err = r.Resolve("html", nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

type stubExtractor struct{}

func (stubExtractor) Extract(Response, string) (Batch, error) { return Batch{Status: "204"}, nil }

// TestRegistry_RegisterCustom — пользовательская фабрика заменяет/дополняет встроенные.
func TestRegistry_RegisterCustom(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("Custom", func(map[string]string) (Extractor, error) { return stubExtractor{}, nil })

	ex, err := r.Resolve("custom", nil)
	require.NoError(t, err)

	b, err := ex.Extract(Response{}, "s")
	require.NoError(t, err)
	require.Equal(t, "204", b.Status)
}
