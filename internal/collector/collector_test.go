package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pribylovaa/go-feed-collector/internal/extract"
	"github.com/pribylovaa/go-feed-collector/internal/models"
	"github.com/stretchr/testify/require"
)

// Unit-тесты движка сбора (collector.go, fetch.go, retry.go, rotation.go).
//
// Покрытие:
//  - завершение повторов: всегда неуспешный элемент получает ровно N попыток;
//  - досрочный выход: успех на 2-й попытке -> ровно 2 попытки;
//  - тай-брейк: 200 без заголовков -> повтор, 200 с одним заголовком -> успех;
//  - сквозной сценарий 500, 500, 200 -> 1 запись, 3 строки лога;
//  - классификация: транспорт, HTTP, экстрактор, паника экстрактора;
//  - инвариант равной длины колонок данных и лога, колонка TIME;
//  - пауза после каждого запроса, порядок строк при нескольких воркерах;
//  - ошибки конфигурации: tries, title, пустой пул прокси, неизвестный экстрактор.

var (
	dataFields  = []string{"title", "summary", "date", "link", "type", "source", "fetched_at"}
	countFields = []string{"title", "summary", "date", "link", "type"}
)

func rssWith(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel>`)
	for i, t := range titles {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://x/%d</link></item>`, t, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// scripted — сервер, отвечающий по сценарию: i-й запрос к пути получает script[i]
// (последний ответ повторяется). Ответ "500" — код ошибки, иначе — тело RSS с кодом 200.
type scripted struct {
	mu     sync.Mutex
	script map[string][]string
	hits   map[string]int
}

func newScripted(script map[string][]string) (*scripted, *httptest.Server) {
	s := &scripted{script: script, hits: make(map[string]int)}
	return s, httptest.NewServer(s)
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	steps := s.script[r.URL.Path]
	n := s.hits[r.URL.Path]
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	if len(steps) == 0 {
		http.NotFound(w, r)
		return
	}

	resp := steps[min(n, len(steps)-1)]
	switch resp {
	case "500":
		w.WriteHeader(http.StatusInternalServerError)
	case "404":
		w.WriteHeader(http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(resp))
	}
}

func (s *scripted) hitsOf(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func rssItem(source, url string) models.FetchItem {
	return models.FetchItem{Source: source, URL: url, ExtractorType: "rss"}
}

func baseOpts(tries int) Options {
	return Options{
		Tries:       tries,
		WaitingTime: 2 * time.Second,
		DataFields:  dataFields,
		CountFields: countFields,
	}
}

func newTestCollector(opts ...Option) *Collector {
	fixed := time.Date(2025, 9, 16, 10, 0, 0, 0, time.UTC)
	all := append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return New(extract.Default(), all...)
}

// requireColumnsAligned — все колонки таблицы одной длины.
func requireColumnsAligned(t *testing.T, tb *models.Table) {
	t.Helper()
	for _, f := range tb.Fields() {
		require.Len(t, tb.Column(f), tb.Len(), "column %q", f)
	}
}

// rowsOf — строки лога, относящиеся к источнику.
func rowsOf(tb *models.Table, source string) []models.Record {
	var out []models.Record
	for i := 0; i < tb.Len(); i++ {
		r := tb.Row(i)
		if r[models.LogSource].String == source {
			out = append(out, r)
		}
	}
	return out
}

// TestRun_EndToEnd_500_500_200 — сквозной сценарий из двух ошибок и успеха.
func TestRun_EndToEnd_500_500_200(t *testing.T) {
	t.Parallel()

	srv, ts := newScripted(map[string][]string{"/feed": {"500", "500", rssWith("only")}})
	defer ts.Close()

	res, err := newTestCollector().Run(context.Background(),
		[]models.FetchItem{rssItem("src", ts.URL+"/feed")}, baseOpts(3))
	require.NoError(t, err)

	require.Equal(t, 1, res.Data.Len())
	require.Equal(t, []string{"only"}, res.Data.Strings("title"))
	require.Equal(t, []string{"src"}, res.Data.Strings("source"))

	require.Equal(t, 3, res.Log.Len())
	require.Equal(t, []string{"500", "500", "200"}, res.Log.Strings(models.LogStatusCode))
	require.Equal(t, []string{"1", "2", "3"}, res.Log.Strings(models.LogTry))
	require.Equal(t, []string{"", "", "1"}, res.Log.Strings("title"))
	require.Equal(t, 3, srv.hitsOf("/feed"))
	require.Empty(t, res.Failed)

	requireColumnsAligned(t, res.Data)
	requireColumnsAligned(t, res.Log)
}

// TestRun_CountFieldsWithLogColumns — log_fields в старом формате (source, STATUS_CODE, ERROR
// рядом со счётчиками) не затирают источник и код ответа.
func TestRun_CountFieldsWithLogColumns(t *testing.T) {
	t.Parallel()

	_, ts := newScripted(map[string][]string{"/feed": {rssWith("a", "b")}})
	defer ts.Close()

	opts := baseOpts(1)
	opts.CountFields = []string{models.LogSource, models.LogStatusCode, models.LogError, "title"}

	res, err := newTestCollector().Run(context.Background(),
		[]models.FetchItem{rssItem("habr", ts.URL+"/feed")}, opts)
	require.NoError(t, err)

	require.Equal(t,
		[]string{models.LogSource, models.LogStatusCode, models.LogError, models.LogTry, "title", models.LogTime},
		res.Log.Fields())
	require.Equal(t, []string{"habr"}, res.Log.Strings(models.LogSource))
	require.Equal(t, []string{"200"}, res.Log.Strings(models.LogStatusCode))
	require.Equal(t, []string{"2"}, res.Log.Strings("title"))
	requireColumnsAligned(t, res.Log)
}

// TestRun_AlwaysFailing_ExactlyNTries — всегда неуспешный элемент: ровно N попыток.
func TestRun_AlwaysFailing_ExactlyNTries(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 5} {
		srv, ts := newScripted(map[string][]string{"/bad": {"500"}})

		res, err := newTestCollector().Run(context.Background(),
			[]models.FetchItem{rssItem("bad", ts.URL+"/bad")}, baseOpts(n))
		ts.Close()

		require.NoError(t, err, "неуспешные элементы не являются ошибкой прогона")
		require.Equal(t, n, srv.hitsOf("/bad"))
		require.Equal(t, n, res.Log.Len())
		require.Equal(t, 0, res.Data.Len())
		require.Equal(t, []string{"bad"}, res.Failed)
	}
}

// TestRun_ShortCircuit — успех на 2-й попытке из 5: ровно 2 попытки.
func TestRun_ShortCircuit(t *testing.T) {
	t.Parallel()

	srv, ts := newScripted(map[string][]string{
		"/a": {"404", rssWith("a1", "a2")},
		"/b": {rssWith("b1")},
	})
	defer ts.Close()

	items := []models.FetchItem{rssItem("a", ts.URL+"/a"), rssItem("b", ts.URL+"/b")}
	res, err := newTestCollector().Run(context.Background(), items, baseOpts(5))
	require.NoError(t, err)

	require.Equal(t, 2, srv.hitsOf("/a"))
	require.Equal(t, 1, srv.hitsOf("/b"))
	require.Len(t, rowsOf(res.Log, "a"), 2)
	require.Len(t, rowsOf(res.Log, "b"), 1)

	// Раунд 1: a, b; раунд 2: только a.
	require.Equal(t, []string{"a", "b", "a"}, res.Log.Strings(models.LogSource))
	require.Equal(t, []string{"b1", "a1", "a2"}, res.Data.Strings("title"))
}

// TestRun_TieBreak_TitleCount — 200 без заголовков повторяется, 200 с заголовком — нет.
func TestRun_TieBreak_TitleCount(t *testing.T) {
	t.Parallel()

	empty := `<rss><channel><item><link>https://x/1</link><description>no title</description></item></channel></rss>`

	srv, ts := newScripted(map[string][]string{
		"/empty": {empty},
		"/one":   {rssWith("t")},
	})
	defer ts.Close()

	items := []models.FetchItem{rssItem("empty", ts.URL+"/empty"), rssItem("one", ts.URL+"/one")}
	res, err := newTestCollector().Run(context.Background(), items, baseOpts(3))
	require.NoError(t, err)

	require.Equal(t, 3, srv.hitsOf("/empty"), "200 без заголовков — неуспех")
	require.Equal(t, 1, srv.hitsOf("/one"))

	emptyRows := rowsOf(res.Log, "empty")
	require.Len(t, emptyRows, 3)
	for _, r := range emptyRows {
		require.Equal(t, "200", r[models.LogStatusCode].String)
		require.Equal(t, "0", r["title"].String)
		require.Equal(t, "1", r["summary"].String, "частичное извлечение не спасает от повтора")
	}

	// Записи без заголовка всё равно попадают в данные (по одной на каждую попытку).
	require.Equal(t, 3+1, res.Data.Len())
	require.Equal(t, []string{"empty"}, res.Failed)
}

// Test_failed — критерий неуспеха по счётчику title.
func Test_failed(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{"": true, "0": true, "1": false, "12": false}
	for count, want := range cases {
		row := models.LogRow{Counts: map[string]string{models.FieldTitle: count}}
		require.Equal(t, want, failed(row), "count=%q", count)
	}
	require.True(t, failed(models.LogRow{}))
}

// TestRun_TransportError — недоступный адрес: ERROR заполнен, STATUS_CODE пуст.
func TestRun_TransportError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL + "/gone"
	ts.Close()

	res, err := newTestCollector().Run(context.Background(),
		[]models.FetchItem{rssItem("down", url)}, baseOpts(2))
	require.NoError(t, err)

	require.Equal(t, 2, res.Log.Len())
	for _, r := range rowsOf(res.Log, "down") {
		require.Empty(t, r[models.LogStatusCode].String)
		require.NotEmpty(t, r[models.LogError].String)
		require.Empty(t, r["title"].String)
	}
}

// TestRun_Timeout — ответ дольше WaitingTime считается ошибкой транспорта.
func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	opts := baseOpts(1)
	opts.WaitingTime = 50 * time.Millisecond

	res, err := newTestCollector().Run(context.Background(),
		[]models.FetchItem{rssItem("slow", ts.URL)}, opts)
	require.NoError(t, err)
	require.Equal(t, 1, res.Log.Len())
	require.Contains(t, res.Log.Strings(models.LogError)[0], "deadline exceeded")
}

// TestRun_ExtractError — битая лента: статус и ошибка в логе, прогон продолжается.
func TestRun_ExtractError(t *testing.T) {
	t.Parallel()

	_, ts := newScripted(map[string][]string{
		"/broken": {`<rss><channel><item><title>A`},
		"/ok":     {rssWith("fine")},
	})
	defer ts.Close()

	items := []models.FetchItem{rssItem("broken", ts.URL+"/broken"), rssItem("ok", ts.URL+"/ok")}
	res, err := newTestCollector().Run(context.Background(), items, baseOpts(2))
	require.NoError(t, err)

	broken := rowsOf(res.Log, "broken")
	require.Len(t, broken, 2)
	require.Equal(t, "200", broken[0][models.LogStatusCode].String)
	require.Contains(t, broken[0][models.LogError].String, "extract.feed.Extract")
	require.Equal(t, []string{"fine"}, res.Data.Strings("title"))
}

type panicExtractor struct{}

func (panicExtractor) Extract(extract.Response, string) (extract.Batch, error) {
	panic("boom")
}

// TestRun_ExtractorPanic — паника экстрактора превращается в ошибку элемента.
func TestRun_ExtractorPanic(t *testing.T) {
	t.Parallel()

	_, ts := newScripted(map[string][]string{"/p": {rssWith("x")}})
	defer ts.Close()

	reg := extract.NewRegistry()
	reg.Register("panic", func(map[string]string) (extract.Extractor, error) { return panicExtractor{}, nil })

	res, err := New(reg).Run(context.Background(),
		[]models.FetchItem{{Source: "p", URL: ts.URL + "/p", ExtractorType: "panic"}}, baseOpts(1))
	require.NoError(t, err)
	require.Contains(t, res.Log.Strings(models.LogError)[0], "extractor panic: boom")
}

// TestRun_TimeColumnAndText — TIME дописывается в конце, текстовый лог без TIME.
func TestRun_TimeColumnAndText(t *testing.T) {
	t.Parallel()

	_, ts := newScripted(map[string][]string{"/f": {"500", rssWith("t")}})
	defer ts.Close()

	res, err := newTestCollector().Run(context.Background(),
		[]models.FetchItem{rssItem("f", ts.URL+"/f")}, baseOpts(2))
	require.NoError(t, err)

	fields := res.Log.Fields()
	require.Equal(t, models.LogTime, fields[len(fields)-1])
	require.Equal(t, []string{"2025-09-16 10:00:00.000000", "2025-09-16 10:00:00.000000"},
		res.Log.Strings(models.LogTime))

	require.Equal(t, "TIME: 2025-09-16 10:00:00.000000", res.Text[1])
	require.NotContains(t, res.Text[3], models.LogTime+" ")
	require.Contains(t, res.Text[3], models.LogStatusCode)
	// баннер(2) + sep + шапка + sep + 2*(строка+sep) + пустая строка.
	require.Len(t, res.Text, 2+3+4+1)
}

// TestRun_DelayAfterEachRequest — пауза выдерживается после каждого запроса.
func TestRun_DelayAfterEachRequest(t *testing.T) {
	t.Parallel()

	_, ts := newScripted(map[string][]string{
		"/a": {"500", rssWith("a")},
		"/b": {rssWith("b")},
	})
	defer ts.Close()

	var sleeps, slept atomic.Int64
	c := newTestCollector(WithSleeper(func(_ context.Context, d time.Duration) error {
		sleeps.Add(1)
		slept.Add(int64(d))
		return nil
	}))

	opts := baseOpts(3)
	opts.Delay = 5 * time.Millisecond

	res, err := c.Run(context.Background(),
		[]models.FetchItem{rssItem("a", ts.URL+"/a"), rssItem("b", ts.URL+"/b")}, opts)
	require.NoError(t, err)
	require.Equal(t, 3, res.Log.Len())
	require.EqualValues(t, 3, sleeps.Load())
	require.EqualValues(t, 3*5*time.Millisecond, slept.Load())
}

// TestRun_WorkersKeepOrder — при нескольких воркерах порядок строк как у pending.
func TestRun_WorkersKeepOrder(t *testing.T) {
	t.Parallel()

	script := make(map[string][]string)
	var items []models.FetchItem
	var want []string
	for i := 0; i < 8; i++ {
		path := fmt.Sprintf("/f%d", i)
		script[path] = []string{rssWith(fmt.Sprintf("t%d", i))}
		items = append(items, rssItem(fmt.Sprintf("s%d", i), path))
		want = append(want, fmt.Sprintf("s%d", i))
	}
	_, ts := newScripted(script)
	defer ts.Close()
	for i := range items {
		items[i].URL = ts.URL + items[i].URL
	}

	opts := baseOpts(1)
	opts.Workers = 4

	res, err := newTestCollector().Run(context.Background(), items, opts)
	require.NoError(t, err)
	require.Equal(t, want, res.Log.Strings(models.LogSource))
	require.Equal(t, 8, res.Data.Len())
}

// TestRun_NoItems — пустой вход: пустые таблицы, без ошибки.
func TestRun_NoItems(t *testing.T) {
	t.Parallel()

	res, err := newTestCollector().Run(context.Background(), nil, baseOpts(1))
	require.NoError(t, err)
	require.Equal(t, 0, res.Data.Len())
	require.Equal(t, 0, res.Log.Len())
	require.True(t, res.Log.Has(models.LogTime))
}

// TestRun_InvalidOptions — ошибки конфигурации возвращаются до сетевых запросов.
func TestRun_InvalidOptions(t *testing.T) {
	t.Parallel()

	items := []models.FetchItem{rssItem("x", "http://127.0.0.1:1/")}

	cases := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{"zero tries", func(o *Options) { o.Tries = 0 }, ErrInvalidOptions},
		{"no title in counts", func(o *Options) { o.CountFields = []string{"summary"} }, ErrInvalidOptions},
		{"no data fields", func(o *Options) { o.DataFields = nil }, ErrInvalidOptions},
		{"negative delay", func(o *Options) { o.Delay = -time.Second }, ErrInvalidOptions},
		{"proxy mode without pool", func(o *Options) { o.ProxyMode = true }, ErrNoProxies},
	}
	for _, tc := range cases {
		opts := baseOpts(2)
		tc.mutate(&opts)

		_, err := newTestCollector().Run(context.Background(), items, opts)
		require.Error(t, err, tc.name)
		require.True(t, errors.Is(err, tc.want), tc.name)
	}
}

// TestRun_UnknownExtractor — неизвестный тип экстрактора — ошибка конфигурации.
func TestRun_UnknownExtractor(t *testing.T) {
	t.Parallel()

	_, err := newTestCollector().Run(context.Background(),
		[]models.FetchItem{{Source: "x", URL: "http://x", ExtractorType: "yaml"}}, baseOpts(1))
	require.ErrorIs(t, err, extract.ErrUnknownType)
}

// TestRun_ContextCancelled — отмена ctx прерывает прогон с частичным результатом.
func TestRun_ContextCancelled(t *testing.T) {
	t.Parallel()

	_, ts := newScripted(map[string][]string{"/f": {"500"}})
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestCollector(WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	res, err := c.Run(ctx, []models.FetchItem{rssItem("f", ts.URL+"/f")}, baseOpts(10))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Equal(t, 1, res.Log.Len())
}
